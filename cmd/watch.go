package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/dqcheck/internal/analysis"
	"github.com/KaramelBytes/dqcheck/internal/schedule"
)

var (
	watchChecks      checkFlags
	watchSuite       string
	watchSchedule    string
	watchOnce        bool
	watchMetricsAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch [path|s3://bucket/key...]",
	Short: "Re-check datasets on a cron schedule and publish each result",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		base, err := baseOptions(c)
		if err != nil {
			return err
		}
		if err := watchChecks.apply(cmd.Flags(), &base); err != nil {
			return err
		}

		spec := c.WatchSchedule
		var targets []schedule.Target
		if watchSuite != "" || len(args) == 0 {
			s, err := suiteByNameOrCwd(watchSuite)
			if err != nil {
				return err
			}
			st, err := s.Targets(base)
			if err != nil {
				return err
			}
			targets = append(targets, st...)
			if s.Schedule != "" {
				spec = s.Schedule
			}
		}
		if len(args) > 0 {
			files, err := expandInputs(args)
			if err != nil {
				return err
			}
			for _, f := range files {
				targets = append(targets, schedule.Target{Location: f, Options: base})
			}
		}
		if watchSchedule != "" {
			spec = watchSchedule
		}

		sink, err := newSink(true)
		if err != nil {
			return err
		}
		defer sink.Close()

		sched, err := schedule.New(spec, targets, newAnalyzer(base, false), newOpener().Open, sink, logger)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		if watchOnce {
			printOutcomes(out, sched.RunOnce(parent))
			return nil
		}
		sched.OnTick(func(o []schedule.Outcome) { printOutcomes(out, o) })

		ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return sched.Run(gctx) })
		if watchMetricsAddr != "" {
			appMetrics()
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			ms := &http.Server{Addr: watchMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			g.Go(func() error {
				logger.Info("metrics server starting", "addr", watchMetricsAddr)
				if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("metrics server: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return ms.Shutdown(shutdownCtx)
			})
		}
		fmt.Fprintf(out, "Watching %d dataset(s) on schedule %q (Ctrl+C to stop)\n", len(targets), spec)
		return g.Wait()
	},
}

func printOutcomes(w io.Writer, outcomes []schedule.Outcome) {
	for _, o := range outcomes {
		fmt.Fprintln(w, outcomeLine(o.Name, o.Result))
	}
}

func outcomeLine(name string, res analysis.Result) string {
	if !res.OK() {
		return fmt.Sprintf("✗ %s: %s (%s)", name, res.Outcome(), res.Failure.Message)
	}
	status := "PASSED"
	mark := "✓"
	if !res.Report.Success {
		status, mark = "FAILED", "⚠"
	}
	return fmt.Sprintf("%s %s: %d rows, %d missing, %d duplicate rows, validation %s (%s)",
		mark, name, res.Report.Rows, res.Report.Missing, res.Report.Duplicates, status,
		res.Report.AnalyzedAt.Format(analysis.TimeLayout))
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchChecks.register(watchCmd.Flags())
	watchCmd.Flags().StringVarP(&watchSuite, "suite", "s", "", "suite whose datasets to watch (default with no datasets: the suite enclosing the working directory)")
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "cron schedule, six fields with seconds first (overrides suite and config)")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "run every dataset once and exit")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while watching")
}
