package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dqcheck/internal/analysis"
	"github.com/KaramelBytes/dqcheck/internal/chart"
	cfgpkg "github.com/KaramelBytes/dqcheck/internal/config"
	"github.com/KaramelBytes/dqcheck/internal/dataset"
	"github.com/KaramelBytes/dqcheck/internal/observability"
	"github.com/KaramelBytes/dqcheck/internal/publish"
	"github.com/KaramelBytes/dqcheck/internal/source"
)

var (
	cfgFile   string
	debug     bool
	logFormat string

	// Loaded configuration
	cfg *cfgpkg.Global

	logger = slog.Default()

	metricsOnce sync.Once
	metrics     *observability.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "dqcheck",
	Short: "dqcheck: data quality checks for delimited text datasets",
	Long: `dqcheck profiles CSV/TSV files for missing values and duplicate rows, runs structural
expectations (non-null columns, unique identifier, row-count bounds) and renders a
missing-values chart. Use it from the command line, as an upload UI (serve) or on a
schedule (watch).`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.dqcheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text|json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so commands still run
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Defaults()
	}
	cfg = c

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	format := cfg.LogFormat
	if logFormat != "" {
		format = logFormat
	}
	logger = observability.NewLogger(level, format, os.Stderr)
	slog.SetDefault(logger)
}

// settings returns the loaded configuration, or defaults when none was loaded.
func settings() *cfgpkg.Global {
	if cfg == nil {
		return cfgpkg.Defaults()
	}
	return cfg
}

// appMetrics registers the process-wide collectors on first use.
func appMetrics() *observability.Metrics {
	metricsOnce.Do(func() { metrics = observability.NewMetrics() })
	return metrics
}

// baseOptions builds analysis options from configuration.
func baseOptions(c *cfgpkg.Global) (analysis.Options, error) {
	opt := analysis.DefaultOptions()
	opt.IDColumn = c.IDColumn
	if c.MinRows > 0 || c.MaxRows > 0 {
		opt.MinRows, opt.MaxRows = c.MinRows, c.MaxRows
	}
	d, err := dataset.ParseDelimiter(c.Delimiter)
	if err != nil {
		return opt, fmt.Errorf("config delimiter: %w", err)
	}
	opt.Load.Delimiter = d
	opt.Load.Encoding = c.Encoding
	if len(c.NAValues) > 0 {
		opt.Load.NAValues = c.NAValues
	}
	return opt, nil
}

// newAnalyzer wires the chart renderer (optional), metrics and logger.
func newAnalyzer(opt analysis.Options, withChart bool) *analysis.Analyzer {
	var r analysis.ChartRenderer
	if withChart {
		c := settings()
		r = chart.New(c.ChartWidthIn, c.ChartHeightIn)
	}
	return analysis.New(opt, r, logger).WithRecorder(appMetrics())
}

func newOpener() *source.Opener {
	c := settings()
	return source.NewOpener(source.S3Config{
		Endpoint:        c.S3Endpoint,
		Region:          c.S3Region,
		AccessKeyID:     c.S3AccessKeyID,
		SecretAccessKey: c.S3SecretAccessKey,
		UsePathStyle:    c.S3UsePathStyle,
	})
}

// newSink returns a delivery sink for the configured publisher, or nil when disabled.
func newSink(enabled bool) (*publish.Sink, error) {
	if !enabled {
		return nil, nil
	}
	c := settings()
	pub, err := publish.New(publish.Config{
		Kind:         c.Publisher,
		KafkaBrokers: c.KafkaBrokers,
		KafkaTopic:   c.KafkaTopic,
		MQTTBroker:   c.MQTTBroker,
		MQTTTopic:    c.MQTTTopic,
		MQTTClientID: c.MQTTClientID,
		MQTTQoS:      c.MQTTQoS,
	}, logger)
	if err != nil {
		return nil, err
	}
	return publish.NewSink(pub, logger, appMetrics()), nil
}
