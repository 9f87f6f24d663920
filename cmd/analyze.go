package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/dqcheck/internal/analysis"
	"github.com/KaramelBytes/dqcheck/internal/utils"
)

var (
	anaChecks        checkFlags
	anaFormat        string
	anaOutputPath    string
	anaChartPath     string
	anaPublish       bool
	anaFailOnInvalid bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path|s3://bucket/key|->",
	Short: "Run data quality checks on one dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		location := args[0]
		opt, err := baseOptions(settings())
		if err != nil {
			return err
		}
		if err := anaChecks.apply(cmd.Flags(), &opt); err != nil {
			return err
		}
		sink, err := newSink(anaPublish)
		if err != nil {
			return err
		}
		defer sink.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		rc, name, err := newOpener().Open(ctx, location)
		if err != nil {
			return err
		}
		res := newAnalyzer(opt, anaChartPath != "").Analyze(rc, name)
		rc.Close()
		sink.Send(ctx, name, res)

		out, err := formatResult(res, name, anaFormat)
		if err != nil {
			return err
		}
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote report to %s\n", anaOutputPath)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(out), "\n"))
		}

		if anaChartPath != "" {
			if png := res.Chart(); png != nil {
				if err := os.WriteFile(anaChartPath, png, 0o644); err != nil {
					return fmt.Errorf("write chart: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote chart to %s\n", anaChartPath)
			} else {
				fmt.Fprintln(cmd.ErrOrStderr(), "⚠ No chart produced (analysis failed)")
			}
		}
		if anaFailOnInvalid && (!res.OK() || !res.Report.Success) {
			return fmt.Errorf("data quality check failed for %s", name)
		}
		return nil
	},
}

// formatResult renders res as text (summary and validation panes), markdown, json or yaml.
func formatResult(res analysis.Result, name, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "text":
		summary, err := utils.PrettyJSON(res.Summary())
		if err != nil {
			return nil, err
		}
		return []byte(string(summary) + "\n\n" + res.ValidationText() + "\n"), nil
	case "markdown", "md":
		return []byte(res.Markdown()), nil
	case "json":
		b, err := utils.PrettyJSON(res.Document(name))
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case "yaml", "yml":
		b, err := yaml.Marshal(res.Document(name))
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported --format: %s (use text|json|yaml|markdown)", format)
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaChecks.register(analyzeCmd.Flags())
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "text", "output format: text|json|yaml|markdown")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "write the report to this path instead of stdout")
	analyzeCmd.Flags().StringVar(&anaChartPath, "chart", "", "write the missing-values PNG chart to this path")
	analyzeCmd.Flags().BoolVar(&anaPublish, "publish", false, "send the result to the configured publisher")
	analyzeCmd.Flags().BoolVar(&anaFailOnInvalid, "fail-on-invalid", false, "exit non-zero when the analysis fails or any expectation fails")
}
