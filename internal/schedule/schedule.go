// Package schedule runs analyses of a fixed target list on a cron schedule.
package schedule

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/KaramelBytes/dqcheck/internal/analysis"
	"github.com/KaramelBytes/dqcheck/internal/publish"
)

var parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks a six-field (seconds first) cron expression or a descriptor such as "@hourly".
func Validate(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Target is one dataset to analyze on every tick.
type Target struct {
	Location string
	Options  analysis.Options
}

// OpenFunc resolves a location to a reader and display name.
type OpenFunc func(ctx context.Context, location string) (io.ReadCloser, string, error)

// Outcome is the result of analyzing one target.
type Outcome struct {
	Target Target
	Name   string
	Result analysis.Result
}

// Scheduler manages cron-based analysis runs.
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	targets  []Target
	analyzer *analysis.Analyzer
	open     OpenFunc
	sink     *publish.Sink
	logger   *slog.Logger

	mu      sync.Mutex
	entry   cron.EntryID
	onTick  func([]Outcome)
	running bool
}

// New builds a Scheduler. sink may be nil.
func New(spec string, targets []Target, a *analysis.Analyzer, open OpenFunc, sink *publish.Sink, logger *slog.Logger) (*Scheduler, error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets to schedule")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		spec:     spec,
		targets:  targets,
		analyzer: a,
		open:     open,
		sink:     sink,
		logger:   logger,
	}, nil
}

// OnTick registers fn to receive the outcomes of every scheduled run.
func (s *Scheduler) OnTick(fn func([]Outcome)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTick = fn
}

// RunOnce analyzes every target once. Each target is an independent analysis;
// a failure on one does not stop the rest.
func (s *Scheduler) RunOnce(ctx context.Context) []Outcome {
	out := make([]Outcome, 0, len(s.targets))
	for _, t := range s.targets {
		if ctx.Err() != nil {
			break
		}
		out = append(out, s.runTarget(ctx, t))
	}
	return out
}

func (s *Scheduler) runTarget(ctx context.Context, t Target) Outcome {
	a := s.analyzer.WithOptions(t.Options)
	rc, name, err := s.open(ctx, t.Location)
	var res analysis.Result
	if err != nil {
		name = t.Location
		res = analysis.Result{Failure: &analysis.Failure{Kind: analysis.KindParse, Message: err.Error(), Err: err}}
		s.logger.Error("open scheduled dataset failed", "location", t.Location, "error", err)
	} else {
		res = a.Analyze(rc, name)
		_ = rc.Close()
	}
	s.logger.Info("scheduled analysis",
		"location", t.Location,
		"outcome", res.Outcome(),
		"validation_success", res.OK() && res.Report.Success,
	)
	s.sink.Send(ctx, name, res)
	return Outcome{Target: t, Name: name, Result: res}
}

// Start registers the job and starts the cron scheduler in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	id, err := s.cron.AddFunc(s.spec, func() {
		outcomes := s.RunOnce(ctx)
		s.mu.Lock()
		fn := s.onTick
		s.mu.Unlock()
		if fn != nil {
			fn(outcomes)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}
	s.entry = id
	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started", "schedule", s.spec, "targets", len(s.targets))
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cron.Remove(s.entry)
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}
