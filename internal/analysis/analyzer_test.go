package analysis

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/KaramelBytes/dqcheck/internal/dataset"
)

type fakeChart struct {
	bars []ColumnMissing
	err  error
}

func (f *fakeChart) RenderMissing(bars []ColumnMissing) ([]byte, error) {
	f.bars = bars
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png"), nil
}

type countingRecorder struct {
	outcomes     []string
	expectations int
}

func (c *countingRecorder) RecordAnalysis(outcome string, rows int, elapsed time.Duration) {
	c.outcomes = append(c.outcomes, outcome)
}

func (c *countingRecorder) RecordExpectation(kind string, success bool) { c.expectations++ }

func frozenClock(t *testing.T) {
	t.Helper()
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)))
	t.Cleanup(func() { SetClock(nil) })
}

func TestAnalyzeSmallTableWithNullAndRepeatedID(t *testing.T) {
	frozenClock(t)
	ch := &fakeChart{}
	res := New(DefaultOptions(), ch, nil).Analyze(strings.NewReader("A,B\n1,x\n1,\n2,z\n"), "small.csv")
	if !res.OK() {
		t.Fatalf("unexpected failure: %v", res.Failure)
	}
	s, ok := res.Summary().(Summary)
	if !ok {
		t.Fatalf("summary type = %T", res.Summary())
	}
	want := Summary{
		TotalRows:         3,
		TotalColumns:      2,
		MissingValues:     1,
		DuplicateRows:     0,
		ValidationSuccess: false,
		AnalysisTime:      "2024-05-06 07:08:09",
	}
	if s != want {
		t.Fatalf("summary = %+v, want %+v", s, want)
	}
	wantText := strings.Join([]string{
		"- expect_column_values_to_not_be_null (A): ✅ Passed",
		"- expect_column_values_to_not_be_null (B): ❌ Failed",
		"- expect_column_values_to_be_unique (A): ❌ Failed",
		"- expect_table_row_count_to_be_between: ✅ Passed",
	}, "\n")
	if got := res.ValidationText(); got != wantText {
		t.Fatalf("validation text:\n%s\nwant:\n%s", got, wantText)
	}
	if string(res.Chart()) != "png" {
		t.Fatalf("chart = %q", res.Chart())
	}
	if len(ch.bars) != 1 || ch.bars[0] != (ColumnMissing{Column: "B", Count: 1}) {
		t.Fatalf("bars = %+v", ch.bars)
	}
}

func TestAnalyzeCleanTablePasses(t *testing.T) {
	frozenClock(t)
	ch := &fakeChart{}
	res := New(DefaultOptions(), ch, nil).Analyze(strings.NewReader("id,v\n1,a\n2,b\n"), "clean.csv")
	if !res.OK() || !res.Report.Success {
		t.Fatalf("expected passing report, got %+v", res)
	}
	if len(ch.bars) != 0 {
		t.Fatalf("clean table should ask for placeholder, got bars %+v", ch.bars)
	}
	if strings.Contains(res.ValidationText(), "Failed") {
		t.Fatalf("validation text = %s", res.ValidationText())
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	for name, in := range map[string]string{"no bytes": "", "header only": "a,b\n"} {
		res := New(DefaultOptions(), &fakeChart{}, nil).Analyze(strings.NewReader(in), "e.csv")
		if res.OK() || res.Failure.Kind != KindEmptyInput {
			t.Fatalf("%s: expected empty_input, got %+v", name, res)
		}
		if got := res.Summary(); got != (ErrorSummary{Error: "The uploaded file is empty"}) {
			t.Fatalf("%s: summary = %+v", name, got)
		}
		if res.ValidationText() != "Error: Empty file" {
			t.Fatalf("%s: text = %q", name, res.ValidationText())
		}
		if res.Chart() != nil {
			t.Fatalf("%s: chart should be absent", name)
		}
	}
}

func TestAnalyzeParseFailure(t *testing.T) {
	res := New(DefaultOptions(), &fakeChart{}, nil).Analyze(strings.NewReader("a,b\n1,2,3\n"), "bad.csv")
	if res.OK() || res.Failure.Kind != KindParse {
		t.Fatalf("expected parse_error, got %+v", res)
	}
	var pe *dataset.ParseError
	if !errors.As(res.Failure, &pe) {
		t.Fatalf("failure should wrap ParseError: %v", res.Failure)
	}
	if !strings.HasPrefix(res.ValidationText(), "Error occurred during analysis: ") {
		t.Fatalf("text = %q", res.ValidationText())
	}
	es, ok := res.Summary().(ErrorSummary)
	if !ok || es.Error != res.Failure.Message {
		t.Fatalf("summary = %+v", res.Summary())
	}
}

func TestAnalyzeMissingIDColumn(t *testing.T) {
	opt := DefaultOptions()
	opt.IDColumn = "nope"
	res := New(opt, &fakeChart{}, nil).Analyze(strings.NewReader("a\n1\n"), "x.csv")
	if res.OK() || res.Failure.Kind != KindValidation {
		t.Fatalf("expected validation_error, got %+v", res)
	}
}

func TestAnalyzeRenderFailure(t *testing.T) {
	res := New(DefaultOptions(), &fakeChart{err: errors.New("boom")}, nil).Analyze(strings.NewReader("a\n1\n"), "x.csv")
	if res.OK() || res.Failure.Kind != KindRender {
		t.Fatalf("expected render_error, got %+v", res)
	}
	if res.Chart() != nil {
		t.Fatalf("no partial chart on failure")
	}
}

func TestAnalyzeRowBoundsAndCustomID(t *testing.T) {
	opt := DefaultOptions()
	opt.IDColumn = "key"
	opt.MaxRows = 2
	res := New(opt, nil, nil).Analyze(strings.NewReader("n,key\n1,a\n1,b\n1,c\n"), "x.csv")
	if !res.OK() {
		t.Fatalf("unexpected failure: %v", res.Failure)
	}
	exps := res.Report.Expectations
	last := exps[len(exps)-1]
	if last.Check.Kind != KindRowCountBetween || last.Success || last.Observed != 3 {
		t.Fatalf("row count expectation = %+v", last)
	}
	uniq := exps[len(exps)-2]
	if uniq.Check.Column != "key" || !uniq.Success {
		t.Fatalf("unique expectation = %+v", uniq)
	}
	if res.Report.Chart != nil {
		t.Fatalf("nil renderer should skip the chart")
	}
}

func TestRowCountBoundsAreInclusive(t *testing.T) {
	in := "id\n1\n2\n3\n"
	cases := []struct {
		name     string
		min, max int
		want     bool
	}{
		{"max equals rows", 1, 3, true},
		{"min equals rows", 3, 10, true},
		{"min and max equal rows", 3, 3, true},
		{"max below rows", 1, 2, false},
		{"min above rows", 4, 10, false},
	}
	for _, tc := range cases {
		opt := DefaultOptions()
		opt.MinRows, opt.MaxRows = tc.min, tc.max
		res := New(opt, nil, nil).Analyze(strings.NewReader(in), "b.csv")
		if !res.OK() {
			t.Fatalf("%s: unexpected failure: %v", tc.name, res.Failure)
		}
		exps := res.Report.Expectations
		last := exps[len(exps)-1]
		if last.Check.Kind != KindRowCountBetween || last.Success != tc.want || last.Observed != 3 {
			t.Fatalf("%s: row count expectation = %+v, want success=%v", tc.name, last, tc.want)
		}
		if res.Report.Success != tc.want {
			t.Fatalf("%s: validation success = %v", tc.name, res.Report.Success)
		}
	}
}

func TestAnalyzeComparesNumbersByValue(t *testing.T) {
	res := New(DefaultOptions(), nil, nil).Analyze(strings.NewReader("id,v\n1,1\n1.0,1.0\n"), "n.csv")
	if !res.OK() {
		t.Fatalf("unexpected failure: %v", res.Failure)
	}
	if res.Report.Duplicates != 1 {
		t.Fatalf("duplicates = %d, want 1", res.Report.Duplicates)
	}
	if !strings.Contains(res.ValidationText(), "- expect_column_values_to_be_unique (id): ❌ Failed") {
		t.Fatalf("validation text = %s", res.ValidationText())
	}
}

func TestAnalyzeKeepsQuoteInsideUnquotedField(t *testing.T) {
	res := New(DefaultOptions(), nil, nil).Analyze(strings.NewReader("id,name\n1,O\"Brien\n2,Smith\n"), "q.csv")
	if !res.OK() || res.Report.Rows != 2 || !res.Report.Success {
		t.Fatalf("result = %+v, failure = %v", res.Report, res.Failure)
	}
}

func TestMissingBarsSumMatchesSummary(t *testing.T) {
	in := "a,b,c\n,1,\nNA,,x\n3,4,5\n"
	res := New(DefaultOptions(), nil, nil).Analyze(strings.NewReader(in), "m.csv")
	if !res.OK() {
		t.Fatalf("unexpected failure: %v", res.Failure)
	}
	sum := 0
	for _, b := range res.Report.MissingBars() {
		sum += b.Count
	}
	if sum != res.Report.Missing || sum != 4 {
		t.Fatalf("bar sum %d, missing %d", sum, res.Report.Missing)
	}
}

func TestAnalyzeIdempotentApartFromTimestamp(t *testing.T) {
	frozenClock(t)
	a := New(DefaultOptions(), nil, nil)
	in := "a,b\n1,2\n1,2\n,3\n"
	r1 := a.Analyze(strings.NewReader(in), "x.csv")
	r2 := a.Analyze(strings.NewReader(in), "x.csv")
	if r1.Summary() != r2.Summary() || r1.ValidationText() != r2.ValidationText() {
		t.Fatalf("results differ: %+v vs %+v", r1.Summary(), r2.Summary())
	}
	if r1.Report.Duplicates != 1 {
		t.Fatalf("duplicates = %d, want 1", r1.Report.Duplicates)
	}
}

func TestAnalyzeFileAndRecorder(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "d.csv")
	if err := os.WriteFile(p, []byte("id\n1\n2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rec := &countingRecorder{}
	a := New(DefaultOptions(), nil, nil).WithRecorder(rec)
	if res := a.AnalyzeFile(p); !res.OK() || res.Report.Name != "d.csv" {
		t.Fatalf("AnalyzeFile = %+v", res)
	}
	if res := a.AnalyzeFile(filepath.Join(dir, "missing.csv")); res.OK() || res.Failure.Kind != KindParse {
		t.Fatalf("missing file = %+v", res)
	}
	if len(rec.outcomes) != 2 || rec.outcomes[0] != "success" || rec.outcomes[1] != "parse_error" {
		t.Fatalf("outcomes = %v", rec.outcomes)
	}
	if rec.expectations != 3 {
		t.Fatalf("expectations recorded = %d, want 3", rec.expectations)
	}
}

func TestMarkdownAndDocument(t *testing.T) {
	frozenClock(t)
	res := New(DefaultOptions(), nil, nil).Analyze(strings.NewReader("A,B\n1,\n2,y\n"), "doc.csv")
	md := res.Markdown()
	for _, want := range []string{"[QUALITY SUMMARY]", "File: doc.csv", "Validation: FAILED", "[MISSING VALUES BY COLUMN]", "- B: 1 (50.0%)"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
	d := res.Document("doc.csv")
	if d.ID == "" || len(d.Validation) != 4 || len(d.MissingByColumn) != 2 {
		t.Fatalf("document = %+v", d)
	}

	bad := New(DefaultOptions(), nil, nil).Analyze(strings.NewReader(""), "e.csv")
	bd := bad.Document("e.csv")
	if bd.FailureKind != KindEmptyInput || bd.ID != "" {
		t.Fatalf("failure document = %+v", bd)
	}
	if !strings.Contains(bad.Markdown(), "Error: The uploaded file is empty") {
		t.Fatalf("failure markdown = %s", bad.Markdown())
	}
}
