package analysis

import (
	"fmt"

	"github.com/KaramelBytes/dqcheck/internal/dataset"
)

// CheckKind names a structural expectation.
type CheckKind string

const (
	KindNotNull         CheckKind = "expect_column_values_to_not_be_null"
	KindUnique          CheckKind = "expect_column_values_to_be_unique"
	KindRowCountBetween CheckKind = "expect_table_row_count_to_be_between"
)

// Check is a declarative expectation: a kind plus its target column or bounds.
type Check struct {
	Kind   CheckKind `json:"kind" yaml:"kind"`
	Column string    `json:"column,omitempty" yaml:"column,omitempty"`
	Min    int       `json:"min,omitempty" yaml:"min,omitempty"`
	Max    int       `json:"max,omitempty" yaml:"max,omitempty"`
}

// Name is the human-readable label used in validation output.
func (c Check) Name() string {
	if c.Column != "" {
		return fmt.Sprintf("%s (%s)", c.Kind, c.Column)
	}
	return string(c.Kind)
}

// Expectation is the outcome of evaluating one Check.
type Expectation struct {
	Check   Check `json:"check" yaml:"check"`
	Success bool  `json:"success" yaml:"success"`
	// Observed is the null count (not-null), the number of rows holding a
	// repeated value (unique) or the row count (row-count bounds).
	Observed int `json:"observed" yaml:"observed"`
}

// DefaultChecks builds the fixed battery for t: not-null on every column,
// uniqueness on the identifier column and the row-count bounds.
func DefaultChecks(t *dataset.Table, opt Options) ([]Check, error) {
	if t.NumCols() == 0 {
		return nil, fmt.Errorf("table has no columns")
	}
	checks := make([]Check, 0, t.NumCols()+2)
	for _, c := range t.Columns {
		checks = append(checks, Check{Kind: KindNotNull, Column: c})
	}
	id := opt.IDColumn
	if id == "" {
		id = t.Columns[0]
	} else if t.ColumnIndex(id) < 0 {
		return nil, fmt.Errorf("id column %q not found", id)
	}
	checks = append(checks,
		Check{Kind: KindUnique, Column: id},
		Check{Kind: KindRowCountBetween, Min: opt.MinRows, Max: opt.MaxRows},
	)
	return checks, nil
}

// Evaluate runs every check against t. nullCounts must come from the same
// profiling pass that feeds the report so both agree.
func Evaluate(t *dataset.Table, checks []Check, nullCounts []int) ([]Expectation, error) {
	out := make([]Expectation, 0, len(checks))
	for _, c := range checks {
		var e Expectation
		switch c.Kind {
		case KindNotNull:
			idx := t.ColumnIndex(c.Column)
			if idx < 0 {
				return nil, fmt.Errorf("%s: column %q not found", c.Kind, c.Column)
			}
			e = Expectation{Check: c, Observed: nullCounts[idx], Success: nullCounts[idx] == 0}
		case KindUnique:
			idx := t.ColumnIndex(c.Column)
			if idx < 0 {
				return nil, fmt.Errorf("%s: column %q not found", c.Kind, c.Column)
			}
			n := repeatedValueRows(t, idx)
			e = Expectation{Check: c, Observed: n, Success: n == 0}
		case KindRowCountBetween:
			rows := t.NumRows()
			e = Expectation{Check: c, Observed: rows, Success: rows >= c.Min && rows <= c.Max}
		default:
			return nil, fmt.Errorf("unknown check kind %q", c.Kind)
		}
		out = append(out, e)
	}
	return out, nil
}

// repeatedValueRows counts non-null cells whose value occurs more than once in
// the column. Numeric columns compare by value, so 1 and 1.0 repeat.
func repeatedValueRows(t *dataset.Table, col int) int {
	kind := kindOf(t, col)
	seen := make(map[string]int, len(t.Rows))
	for _, row := range t.Rows {
		if c := row[col]; !c.Null {
			seen[cellKey(c.Value, kind)]++
		}
	}
	n := 0
	for _, cnt := range seen {
		if cnt > 1 {
			n += cnt
		}
	}
	return n
}
