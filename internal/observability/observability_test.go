package observability

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("debug", "json", &buf)
	logger.Debug("analysis complete", "rows", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "analysis complete", rec["msg"])
	assert.Equal(t, float64(3), rec["rows"])
}

func TestNewLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", "text", &buf)
	logger.Info("hidden")
	assert.Empty(t, buf.String())
	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestMetricsRecord(t *testing.T) {
	m := NewMetricsForTesting()
	m.RecordAnalysis("success", 10, 20*time.Millisecond)
	m.RecordAnalysis("parse_error", 0, time.Millisecond)
	m.RecordExpectation("expect_column_values_to_be_unique", false)
	m.RecordPublishError()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Analyses.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Analyses.WithLabelValues("parse_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Expectations.WithLabelValues("expect_column_values_to_be_unique", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishErrors))
}
