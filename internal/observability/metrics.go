package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dqcheck"

// Metrics holds the Prometheus collectors for analyses and publishing.
type Metrics struct {
	Analyses         *prometheus.CounterVec // labels: outcome={success,empty_input,parse_error,validation_error,render_error}
	AnalysisDuration prometheus.Histogram
	RowsAnalyzed     prometheus.Histogram
	Expectations     *prometheus.CounterVec // labels: kind, result={passed,failed}
	PublishErrors    prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyses run, by outcome.",
		}, []string{"outcome"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of one analysis including parsing and chart rendering.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RowsAnalyzed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rows_analyzed",
			Help:      "Data rows per successful analysis.",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 7),
		}),
		Expectations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expectations_total",
			Help:      "Evaluated expectations by kind and result.",
		}, []string{"kind", "result"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Report events that could not be delivered to the configured sink.",
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Analyses,
		m.AnalysisDuration,
		m.RowsAnalyzed,
		m.Expectations,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// RecordAnalysis implements analysis.Recorder.
func (m *Metrics) RecordAnalysis(outcome string, rows int, elapsed time.Duration) {
	m.Analyses.WithLabelValues(outcome).Inc()
	m.AnalysisDuration.Observe(elapsed.Seconds())
	if outcome == "success" {
		m.RowsAnalyzed.Observe(float64(rows))
	}
}

// RecordExpectation implements analysis.Recorder.
func (m *Metrics) RecordExpectation(kind string, success bool) {
	result := "failed"
	if success {
		result = "passed"
	}
	m.Expectations.WithLabelValues(kind, result).Inc()
}

// RecordPublishError counts one failed delivery.
func (m *Metrics) RecordPublishError() { m.PublishErrors.Inc() }
