package dataset

// Table is an in-memory delimited-text dataset. It lives for one analysis call.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]Cell
}

// Cell is one table entry. Null marks a missing value.
type Cell struct {
	Value string
	Null  bool
}

// NumRows returns the number of data rows (header excluded).
func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// ColumnIndex returns the index of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// NullCounts returns the number of missing values per column, in column order.
func (t *Table) NullCounts() []int {
	counts := make([]int, len(t.Columns))
	for _, row := range t.Rows {
		for j, c := range row {
			if c.Null {
				counts[j]++
			}
		}
	}
	return counts
}
