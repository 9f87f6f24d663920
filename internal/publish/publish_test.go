package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/dqcheck/internal/analysis"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func sampleResult(t *testing.T) analysis.Result {
	t.Helper()
	res := analysis.New(analysis.DefaultOptions(), nil, quiet).Analyze(strings.NewReader("id,v\n1,\n2,b\n"), "orders.csv")
	require.True(t, res.OK())
	return res
}

func TestNewEvent(t *testing.T) {
	res := sampleResult(t)
	ev := NewEvent("orders.csv", res, time.Now())
	assert.Equal(t, res.Report.ID, ev.ReportID)
	assert.Equal(t, "success", ev.Outcome)
	assert.False(t, ev.ValidationSuccess)
	assert.Len(t, ev.Expectations, 4)

	failed := analysis.New(analysis.DefaultOptions(), nil, quiet).Analyze(strings.NewReader(""), "empty.csv")
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fev := NewEvent("empty.csv", failed, at)
	assert.Equal(t, "empty_input", fev.Outcome)
	assert.Empty(t, fev.ReportID)
	assert.Equal(t, at, fev.AnalyzedAt)
	assert.Equal(t, analysis.ErrorSummary{Error: analysis.EmptyFileMessage}, fev.Summary)
}

func TestSerializeToMessage(t *testing.T) {
	ev := NewEvent("orders.csv", sampleResult(t), time.Now())
	msg, err := serializeToMessage(ev)
	require.NoError(t, err)
	assert.Equal(t, "orders.csv", string(msg.Key))

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "false", headers["validation_success"])
	assert.Equal(t, "success", headers["outcome"])
	assert.Equal(t, ev.AnalyzedAt.Format(time.RFC3339), headers["analyzed_at"])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	summary := decoded["summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["Total Rows"])
}

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { f.closed = true; return nil }

func TestKafkaPublish(t *testing.T) {
	w := &fakeWriter{}
	var logs bytes.Buffer
	k := newKafka(w, slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	ev := NewEvent("a.csv", sampleResult(t), time.Now())
	require.NoError(t, k.Publish(context.Background(), ev))
	require.Len(t, w.msgs, 1)
	assert.Contains(t, logs.String(), "kafka report event written")
	assert.Contains(t, logs.String(), "report_id="+ev.ReportID)
	require.NoError(t, k.Close())
	assert.True(t, w.closed)

	w.err = errors.New("broker down")
	assert.ErrorContains(t, k.Publish(context.Background(), Event{Source: "a.csv"}), "broker down")
}

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeMQTTClient struct {
	mqtt.Client
	topic        string
	qos          byte
	payload      []byte
	err          error
	disconnected bool
}

func (c *fakeMQTTClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.topic, c.qos, c.payload = topic, qos, payload.([]byte)
	return newFakeToken(c.err)
}

func (c *fakeMQTTClient) Disconnect(uint) { c.disconnected = true }

func TestMQTTPublish(t *testing.T) {
	c := &fakeMQTTClient{}
	m := newMQTT(c, "dq/reports", 1, quiet)
	require.NoError(t, m.Publish(context.Background(), NewEvent("a.csv", sampleResult(t), time.Now())))
	assert.Equal(t, "dq/reports", c.topic)
	assert.Equal(t, byte(1), c.qos)
	assert.Contains(t, string(c.payload), `"source":"a.csv"`)

	c.err = errors.New("not connected")
	assert.Error(t, m.Publish(context.Background(), Event{}))
	require.NoError(t, m.Close())
	assert.True(t, c.disconnected)
}

func TestNewSelectsPublisher(t *testing.T) {
	p, err := New(Config{Kind: "none"}, quiet)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, p)

	p, err = New(Config{Kind: "kafka", KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "dq"}, quiet)
	require.NoError(t, err)
	assert.IsType(t, &Kafka{}, p)
	require.NoError(t, p.Close())

	_, err = New(Config{Kind: "kafka"}, quiet)
	assert.Error(t, err)
	_, err = New(Config{Kind: "mqtt"}, quiet)
	assert.Error(t, err)
	_, err = New(Config{Kind: "carrier-pigeon"}, quiet)
	assert.Error(t, err)
}

type counter struct{ n int }

func (c *counter) RecordPublishError() { c.n++ }

func TestSinkSwallowsAndCountsErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("boom")}
	errs := &counter{}
	s := NewSink(newKafka(w, quiet), quiet, errs)
	s.Send(context.Background(), "a.csv", sampleResult(t))
	assert.Equal(t, 1, errs.n)

	w.err = nil
	s.Send(context.Background(), "a.csv", sampleResult(t))
	assert.Equal(t, 1, errs.n)
	assert.Len(t, w.msgs, 1)

	var nilSink *Sink
	nilSink.Send(context.Background(), "a.csv", sampleResult(t))
	assert.NoError(t, nilSink.Close())
}
