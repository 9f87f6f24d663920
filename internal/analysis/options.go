package analysis

import "github.com/KaramelBytes/dqcheck/internal/dataset"

// Options controls which expectations run and how input is parsed.
type Options struct {
	// IDColumn is the column that must hold unique values. Empty means the first column.
	IDColumn string
	// MinRows and MaxRows bound the accepted row count (inclusive).
	MinRows int
	MaxRows int
	// Load configures delimiter, encoding and missing-value tokens.
	Load dataset.LoadOptions
}

// DefaultOptions returns the standard battery: first column as identifier and
// a row count between 1 and 1,000,000.
func DefaultOptions() Options {
	return Options{
		MinRows: 1,
		MaxRows: 1_000_000,
	}
}
