package analysis

import "fmt"

// FailureKind classifies why an analysis produced no report.
type FailureKind string

const (
	KindEmptyInput FailureKind = "empty_input"
	KindParse      FailureKind = "parse_error"
	KindValidation FailureKind = "validation_error"
	KindRender     FailureKind = "render_error"
)

// EmptyFileMessage is the error summary for input without data rows.
const EmptyFileMessage = "The uploaded file is empty"

// Failure is a tagged analysis error carried inside a Result.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string { return fmt.Sprintf("%s: %s", f.Kind, f.Message) }

func (f *Failure) Unwrap() error { return f.Err }

func failure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Message: err.Error(), Err: err}
}

// Result holds either a Report or a Failure, never both.
type Result struct {
	Report  *Report
	Failure *Failure
}

func (r Result) OK() bool { return r.Failure == nil && r.Report != nil }

// Outcome is "success" or the failure kind; used as a metric label.
func (r Result) Outcome() string {
	if r.OK() {
		return "success"
	}
	return string(r.Failure.Kind)
}

// Summary returns a Summary, or an ErrorSummary on failure.
func (r Result) Summary() any {
	if r.OK() {
		return r.Report.Summary()
	}
	return ErrorSummary{Error: r.Failure.Message}
}

// ValidationText returns the validation bullets, or the error line on failure.
func (r Result) ValidationText() string {
	if r.OK() {
		return r.Report.ValidationText()
	}
	if r.Failure.Kind == KindEmptyInput {
		return "Error: Empty file"
	}
	return "Error occurred during analysis: " + r.Failure.Message
}

// Chart returns the PNG bytes; nil on failure.
func (r Result) Chart() []byte {
	if r.OK() {
		return r.Report.Chart
	}
	return nil
}

// Markdown renders the report, or a single error section on failure.
func (r Result) Markdown() string {
	if r.OK() {
		return r.Report.Markdown()
	}
	return fmt.Sprintf("[QUALITY SUMMARY]\nError: %s\n", r.Failure.Message)
}

// Document is the JSON/YAML encoding of a Result.
type Document struct {
	ID              string          `json:"id,omitempty" yaml:"id,omitempty"`
	Source          string          `json:"source" yaml:"source"`
	Summary         any             `json:"summary" yaml:"summary"`
	Validation      []string        `json:"validation" yaml:"validation"`
	Expectations    []Expectation   `json:"expectations,omitempty" yaml:"expectations,omitempty"`
	MissingByColumn []ColumnMissing `json:"missing_by_column,omitempty" yaml:"missing_by_column,omitempty"`
	FailureKind     FailureKind     `json:"failure_kind,omitempty" yaml:"failure_kind,omitempty"`
}

// Document builds the structured encoding for source.
func (r Result) Document(source string) Document {
	d := Document{Source: source, Summary: r.Summary()}
	if !r.OK() {
		d.Validation = []string{r.ValidationText()}
		d.FailureKind = r.Failure.Kind
		return d
	}
	d.ID = r.Report.ID
	d.Validation = r.Report.ValidationLines()
	d.Expectations = r.Report.Expectations
	d.MissingByColumn = r.Report.Columns
	return d
}
