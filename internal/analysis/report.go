package analysis

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout formats the Analysis Time summary field.
const TimeLayout = "2006-01-02 15:04:05"

// Report is the outcome of a successful analysis.
type Report struct {
	ID           string
	Name         string
	Rows         int
	Cols         int
	Missing      int
	Duplicates   int
	Success      bool
	AnalyzedAt   time.Time
	Columns      []ColumnMissing // every column, in table order
	Expectations []Expectation
	// Chart is the PNG diagnostic chart; nil when no renderer was configured.
	Chart []byte
}

// Summary holds the six summary fields in their presentation order.
type Summary struct {
	TotalRows         int    `json:"Total Rows" yaml:"Total Rows"`
	TotalColumns      int    `json:"Total Columns" yaml:"Total Columns"`
	MissingValues     int    `json:"Missing Values" yaml:"Missing Values"`
	DuplicateRows     int    `json:"Duplicate Rows" yaml:"Duplicate Rows"`
	ValidationSuccess bool   `json:"Validation Success" yaml:"Validation Success"`
	AnalysisTime      string `json:"Analysis Time" yaml:"Analysis Time"`
}

// ErrorSummary replaces Summary when analysis fails.
type ErrorSummary struct {
	Error string `json:"Error" yaml:"Error"`
}

func (r *Report) Summary() Summary {
	return Summary{
		TotalRows:         r.Rows,
		TotalColumns:      r.Cols,
		MissingValues:     r.Missing,
		DuplicateRows:     r.Duplicates,
		ValidationSuccess: r.Success,
		AnalysisTime:      r.AnalyzedAt.Format(TimeLayout),
	}
}

// MissingBars returns the columns with at least one missing value, in table order.
func (r *Report) MissingBars() []ColumnMissing {
	var out []ColumnMissing
	for _, c := range r.Columns {
		if c.Count > 0 {
			out = append(out, c)
		}
	}
	return out
}

// ValidationLines renders one bullet per expectation.
func (r *Report) ValidationLines() []string {
	lines := make([]string, 0, len(r.Expectations))
	for _, e := range r.Expectations {
		status := "✅ Passed"
		if !e.Success {
			status = "❌ Failed"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", e.Check.Name(), status))
	}
	return lines
}

func (r *Report) ValidationText() string {
	return strings.Join(r.ValidationLines(), "\n")
}

// Markdown renders the report as sectioned plain text.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[QUALITY SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", r.Cols))
	b.WriteString(fmt.Sprintf("Missing values: %d\n", r.Missing))
	b.WriteString(fmt.Sprintf("Duplicate rows: %d\n", r.Duplicates))
	verdict := "PASSED"
	if !r.Success {
		verdict = "FAILED"
	}
	b.WriteString(fmt.Sprintf("Validation: %s\n", verdict))
	b.WriteString(fmt.Sprintf("Analyzed: %s\n\n", r.AnalyzedAt.Format(TimeLayout)))

	b.WriteString("[EXPECTATIONS]\n")
	for _, l := range r.ValidationLines() {
		b.WriteString(l)
		b.WriteString("\n")
	}

	if bars := r.MissingBars(); len(bars) > 0 {
		b.WriteString("\n[MISSING VALUES BY COLUMN]\n")
		for _, c := range bars {
			pct := 0.0
			if r.Rows > 0 {
				pct = float64(c.Count) * 100.0 / float64(r.Rows)
			}
			b.WriteString(fmt.Sprintf("- %s: %d (%.1f%%)\n", safeName(c.Column), c.Count, pct))
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
