package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dqcheck/internal/analysis"
	"github.com/KaramelBytes/dqcheck/internal/schedule"
	"github.com/KaramelBytes/dqcheck/internal/source"
	"github.com/KaramelBytes/dqcheck/internal/utils"
)

var (
	abChecks        checkFlags
	abSuite         string
	abOutDir        string
	abFormat        string
	abCharts        bool
	abPublish       bool
	abQuiet         bool
	abFailOnInvalid bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch [files...]",
	Short: "Check many datasets (globs, s3:// URIs or a suite) with progress and per-dataset reports",
	Long: `Check many datasets with progress and per-dataset reports. With no files and no
--suite, the suite enclosing the working directory (found by its suite.yaml) is checked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(abFormat)
		ext := ".report.md"
		switch format {
		case "md", "markdown":
			format = "markdown"
		case "json":
			ext = ".report.json"
		default:
			return fmt.Errorf("unsupported --format: %s (use md|json)", abFormat)
		}

		base, err := baseOptions(settings())
		if err != nil {
			return err
		}
		if err := abChecks.apply(cmd.Flags(), &base); err != nil {
			return err
		}

		var targets []schedule.Target
		outDir := abOutDir
		if abSuite != "" || len(args) == 0 {
			s, err := suiteByNameOrCwd(abSuite)
			if err != nil {
				return err
			}
			st, err := s.Targets(base)
			if err != nil {
				return err
			}
			targets = append(targets, st...)
			if outDir == "" {
				outDir = s.ReportsDir()
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
		if outDir != "" {
			if err := utils.EnsureDir(outDir); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
		}

		sink, err := newSink(abPublish)
		if err != nil {
			return err
		}
		defer sink.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		opener := newOpener()
		analyzer := newAnalyzer(base, abCharts && outDir != "")
		out := cmd.OutOrStdout()

		total := len(targets)
		var passed, invalid, failed int
		for i, t := range targets {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, displayName(t.Location))
			}
			var res analysis.Result
			name := displayName(t.Location)
			rc, n, err := opener.Open(ctx, t.Location)
			if err != nil {
				res = analysis.Result{Failure: &analysis.Failure{Kind: analysis.KindParse, Message: err.Error(), Err: err}}
			} else {
				name = n
				res = analyzer.WithOptions(t.Options).Analyze(rc, name)
				_ = rc.Close()
			}
			sink.Send(ctx, name, res)

			switch {
			case !res.OK():
				failed++
				if !abQuiet {
					fmt.Fprintf(out, "✗ %s: %s\n", name, res.Failure.Message)
				}
			case !res.Report.Success:
				invalid++
			default:
				passed++
			}

			body, err := formatResult(res, name, format)
			if err != nil {
				return err
			}
			if outDir == "" {
				if !abQuiet {
					fmt.Fprintln(out, strings.TrimRight(string(body), "\n"))
				}
				continue
			}
			stem := reportStem(name)
			path := uniquePath(outDir, stem, ext)
			if path != filepath.Join(outDir, stem+ext) && !abQuiet {
				fmt.Fprintf(out, "⚠ Detected existing report, writing to %s to avoid overwrite.\n", filepath.Base(path))
			}
			if err := utils.SafeWriteFile(path, body); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if png := res.Chart(); png != nil {
				chartPath := strings.TrimSuffix(path, ext) + ".missing.png"
				if err := os.WriteFile(chartPath, png, 0o644); err != nil {
					return fmt.Errorf("write chart: %w", err)
				}
			}
			if !abQuiet {
				fmt.Fprintf(out, "✓ Wrote %s\n", path)
			}
		}

		fmt.Fprintf(out, "Checked %d dataset(s): %d passed, %d failed expectations, %d errored\n", total, passed, invalid, failed)
		if abFailOnInvalid && (invalid > 0 || failed > 0) {
			return fmt.Errorf("%d of %d dataset(s) did not pass", invalid+failed, total)
		}
		return nil
	},
}

// expandInputs resolves globs, keeps s3:// URIs as-is and returns a sorted, deduplicated list.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		var matches []string
		if source.IsS3(arg) {
			matches = []string{arg}
		} else {
			matches, _ = filepath.Glob(arg)
			if len(matches) == 0 {
				// treat as literal path if exists
				if _, err := os.Stat(arg); err == nil {
					matches = []string{arg}
				}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func displayName(location string) string {
	if source.IsS3(location) {
		return location
	}
	return filepath.Base(location)
}

func reportStem(name string) string {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "dataset"
	}
	return stem
}

// uniquePath returns dir/stem+ext, or dir/stem__N+ext when that already exists.
func uniquePath(dir, stem, ext string) string {
	p := filepath.Join(dir, stem+ext)
	if _, err := os.Stat(p); err != nil {
		return p
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d%s", stem, idx, ext))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand
		}
	}
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abChecks.register(analyzeBatchCmd.Flags())
	analyzeBatchCmd.Flags().StringVarP(&abSuite, "suite", "s", "", "suite whose datasets to check (default with no files: the suite enclosing the working directory)")
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory for per-dataset reports (default: stdout, or the suite's reports dir)")
	analyzeBatchCmd.Flags().StringVar(&abFormat, "format", "md", "report format: md|json")
	analyzeBatchCmd.Flags().BoolVar(&abCharts, "charts", false, "write a missing-values PNG next to each report")
	analyzeBatchCmd.Flags().BoolVar(&abPublish, "publish", false, "send each result to the configured publisher")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	analyzeBatchCmd.Flags().BoolVar(&abFailOnInvalid, "fail-on-invalid", false, "exit non-zero when any dataset fails analysis or expectations")
}
