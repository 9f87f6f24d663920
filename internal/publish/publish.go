// Package publish delivers completed analyses to an optional message sink.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KaramelBytes/dqcheck/internal/analysis"
)

// Event is the payload published for one analysis.
type Event struct {
	ReportID          string                 `json:"report_id,omitempty"`
	Source            string                 `json:"source"`
	Outcome           string                 `json:"outcome"`
	ValidationSuccess bool                   `json:"validation_success"`
	Summary           any                    `json:"summary"`
	Expectations      []analysis.Expectation `json:"expectations,omitempty"`
	AnalyzedAt        time.Time              `json:"analyzed_at"`
}

// NewEvent builds the event for res. at is used when res carries no report timestamp.
func NewEvent(source string, res analysis.Result, at time.Time) Event {
	ev := Event{
		Source:     source,
		Outcome:    res.Outcome(),
		Summary:    res.Summary(),
		AnalyzedAt: at.UTC(),
	}
	if res.OK() {
		ev.ReportID = res.Report.ID
		ev.ValidationSuccess = res.Report.Success
		ev.Expectations = res.Report.Expectations
		ev.AnalyzedAt = res.Report.AnalyzedAt.UTC()
	}
	return ev
}

// Publisher sends events to a sink.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Config selects and configures a Publisher.
type Config struct {
	Kind         string // none|kafka|mqtt
	KafkaBrokers []string
	KafkaTopic   string
	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string
	MQTTQoS      int
}

// New returns the Publisher named by cfg.Kind. MQTT connects eagerly.
func New(cfg Config, logger *slog.Logger) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", "none":
		return Noop{}, nil
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 || cfg.KafkaTopic == "" {
			return nil, fmt.Errorf("kafka publisher needs kafka_brokers and kafka_topic")
		}
		return NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, logger), nil
	case "mqtt":
		if cfg.MQTTBroker == "" || cfg.MQTTTopic == "" {
			return nil, fmt.Errorf("mqtt publisher needs mqtt_broker and mqtt_topic")
		}
		return DialMQTT(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic, cfg.MQTTQoS, logger)
	default:
		return nil, fmt.Errorf("unknown publisher %q (want none, kafka or mqtt)", cfg.Kind)
	}
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// ErrorCounter counts failed deliveries.
type ErrorCounter interface {
	RecordPublishError()
}

// Sink publishes results without letting delivery failures reach the caller.
type Sink struct {
	pub    Publisher
	logger *slog.Logger
	errs   ErrorCounter
}

// NewSink wraps pub. errs may be nil.
func NewSink(pub Publisher, logger *slog.Logger, errs ErrorCounter) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{pub: pub, logger: logger, errs: errs}
}

// Send publishes the event for res. Failures are logged and counted only.
func (s *Sink) Send(ctx context.Context, source string, res analysis.Result) {
	if s == nil || s.pub == nil {
		return
	}
	if _, ok := s.pub.(Noop); ok {
		return
	}
	ev := NewEvent(source, res, time.Now())
	if err := s.pub.Publish(ctx, ev); err != nil {
		if s.errs != nil {
			s.errs.RecordPublishError()
		}
		s.logger.Warn("publish report event failed", "source", source, "error", err)
		return
	}
	s.logger.Debug("published report event", "source", source, "report_id", ev.ReportID)
}

// Close closes the underlying publisher.
func (s *Sink) Close() error {
	if s == nil || s.pub == nil {
		return nil
	}
	return s.pub.Close()
}
