package analysis

import (
	"strconv"
	"strings"

	"github.com/KaramelBytes/dqcheck/internal/dataset"
)

// ColumnMissing is the missing-value count for one column.
type ColumnMissing struct {
	Column string `json:"column" yaml:"column"`
	Count  int    `json:"count" yaml:"count"`
}

// profile is the single statistics pass shared by the summary, the
// not-null expectations and the chart.
type profile struct {
	nullCounts []int
	missing    int
	duplicates int
}

func profileTable(t *dataset.Table) profile {
	p := profile{nullCounts: t.NullCounts()}
	for _, n := range p.nullCounts {
		p.missing += n
	}
	p.duplicates = countDuplicateRows(t)
	return p
}

// columnKind is how cell text is compared for equality within a column.
type columnKind uint8

const (
	textColumn columnKind = iota
	intColumn
	floatColumn
)

// columnKinds types each column from its non-null values: integer when every
// value parses as int64, float when every value parses as float64, else text.
// An all-null column is text.
func columnKinds(t *dataset.Table) []columnKind {
	kinds := make([]columnKind, t.NumCols())
	for j := range kinds {
		kinds[j] = kindOf(t, j)
	}
	return kinds
}

func kindOf(t *dataset.Table, col int) columnKind {
	kind, seen := intColumn, false
	for _, row := range t.Rows {
		c := row[col]
		if c.Null {
			continue
		}
		seen = true
		if kind == intColumn {
			if _, err := strconv.ParseInt(c.Value, 10, 64); err == nil {
				continue
			}
			kind = floatColumn
		}
		if _, err := strconv.ParseFloat(c.Value, 64); err != nil {
			return textColumn
		}
	}
	if !seen {
		return textColumn
	}
	return kind
}

// cellKey is the comparison form of a non-null cell: the canonical number for
// numeric columns, the raw text otherwise.
func cellKey(v string, kind columnKind) string {
	switch kind {
	case intColumn:
		n, _ := strconv.ParseInt(v, 10, 64)
		return strconv.FormatInt(n, 10)
	case floatColumn:
		f, _ := strconv.ParseFloat(v, 64)
		if f == 0 {
			f = 0 // -0 equals 0
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return v
}

// countDuplicateRows counts rows equal to some earlier row. Missing cells compare
// equal; numeric columns compare by value.
func countDuplicateRows(t *dataset.Table) int {
	kinds := columnKinds(t)
	seen := make(map[string]struct{}, len(t.Rows))
	dup := 0
	var b strings.Builder
	for _, row := range t.Rows {
		b.Reset()
		for j, c := range row {
			if c.Null {
				b.WriteString("-1:")
				continue
			}
			k := cellKey(c.Value, kinds[j])
			b.WriteString(strconv.Itoa(len(k)))
			b.WriteByte(':')
			b.WriteString(k)
		}
		k := b.String()
		if _, ok := seen[k]; ok {
			dup++
			continue
		}
		seen[k] = struct{}{}
	}
	return dup
}
