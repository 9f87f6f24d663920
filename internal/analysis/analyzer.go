package analysis

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/dqcheck/internal/dataset"
)

// ChartRenderer draws the missing-values chart. bars holds only columns with
// missing values; an empty slice asks for the placeholder image.
type ChartRenderer interface {
	RenderMissing(bars []ColumnMissing) ([]byte, error)
}

// Recorder receives per-analysis measurements.
type Recorder interface {
	RecordAnalysis(outcome string, rows int, elapsed time.Duration)
	RecordExpectation(kind string, success bool)
}

// Analyzer runs the ingest, validate, summarize and visualize pipeline.
// It holds no mutable state and is safe for concurrent use.
type Analyzer struct {
	opt      Options
	chart    ChartRenderer
	recorder Recorder
	logger   *slog.Logger
}

// New returns an Analyzer. A nil chart skips rendering; a nil logger uses slog.Default.
func New(opt Options, chart ChartRenderer, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{opt: opt, chart: chart, logger: logger}
}

// WithRecorder returns a copy of a that reports measurements to rec.
func (a *Analyzer) WithRecorder(rec Recorder) *Analyzer {
	cp := *a
	cp.recorder = rec
	return &cp
}

// WithOptions returns a copy of a using opt.
func (a *Analyzer) WithOptions(opt Options) *Analyzer {
	cp := *a
	cp.opt = opt
	return &cp
}

func (a *Analyzer) Options() Options { return a.opt }

// AnalyzeFile loads path and analyzes it. Open errors are parse failures.
func (a *Analyzer) AnalyzeFile(path string) Result {
	start := clock.Now()
	t, err := dataset.LoadFile(path, a.opt.Load)
	if err != nil {
		return a.fail(filepath.Base(path), start, failure(KindParse, err))
	}
	return a.analyze(t, start)
}

// Analyze parses r as delimited text named name and analyzes it.
func (a *Analyzer) Analyze(r io.Reader, name string) Result {
	start := clock.Now()
	t, err := dataset.Load(r, name, a.opt.Load)
	if err != nil {
		return a.fail(filepath.Base(name), start, failure(KindParse, err))
	}
	return a.analyze(t, start)
}

// AnalyzeTable analyzes an already loaded table.
func (a *Analyzer) AnalyzeTable(t *dataset.Table) Result {
	return a.analyze(t, clock.Now())
}

func (a *Analyzer) analyze(t *dataset.Table, start time.Time) Result {
	if t.NumRows() == 0 {
		return a.fail(t.Name, start, failure(KindEmptyInput, errors.New(EmptyFileMessage)))
	}
	checks, err := DefaultChecks(t, a.opt)
	if err != nil {
		return a.fail(t.Name, start, failure(KindValidation, err))
	}
	p := profileTable(t)
	exps, err := Evaluate(t, checks, p.nullCounts)
	if err != nil {
		return a.fail(t.Name, start, failure(KindValidation, err))
	}

	rep := &Report{
		ID:           uuid.NewString(),
		Name:         t.Name,
		Rows:         t.NumRows(),
		Cols:         t.NumCols(),
		Missing:      p.missing,
		Duplicates:   p.duplicates,
		Success:      true,
		Columns:      make([]ColumnMissing, t.NumCols()),
		Expectations: exps,
	}
	for i, c := range t.Columns {
		rep.Columns[i] = ColumnMissing{Column: c, Count: p.nullCounts[i]}
	}
	for _, e := range exps {
		if !e.Success {
			rep.Success = false
			break
		}
	}

	if a.chart != nil {
		png, err := a.chart.RenderMissing(rep.MissingBars())
		if err != nil {
			return a.fail(t.Name, start, failure(KindRender, fmt.Errorf("render chart: %w", err)))
		}
		rep.Chart = png
	}
	rep.AnalyzedAt = clock.Now()

	if a.recorder != nil {
		a.recorder.RecordAnalysis("success", rep.Rows, clock.Since(start))
		for _, e := range exps {
			a.recorder.RecordExpectation(string(e.Check.Kind), e.Success)
		}
	}
	a.logger.Debug("analysis complete",
		"source", rep.Name,
		"rows", rep.Rows,
		"columns", rep.Cols,
		"missing", rep.Missing,
		"duplicates", rep.Duplicates,
		"validation_success", rep.Success,
	)
	return Result{Report: rep}
}

func (a *Analyzer) fail(name string, start time.Time, f *Failure) Result {
	if a.recorder != nil {
		a.recorder.RecordAnalysis(string(f.Kind), 0, clock.Since(start))
	}
	a.logger.Error("analysis failed", "source", name, "kind", string(f.Kind), "error", f.Message)
	return Result{Failure: f}
}
