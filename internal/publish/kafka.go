package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Kafka produces one message per event to a topic.
type Kafka struct {
	writer messageWriter
	logger *slog.Logger
}

// NewKafka creates a producer for topic on brokers.
func NewKafka(brokers []string, topic string, logger *slog.Logger) *Kafka {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newKafka(w, logger)
}

func newKafka(w messageWriter, logger *slog.Logger) *Kafka {
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{writer: w, logger: logger}
}

func (k *Kafka) Publish(ctx context.Context, ev Event) error {
	msg, err := serializeToMessage(ev)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	k.logger.Debug("kafka report event written", "source", ev.Source, "report_id", ev.ReportID, "outcome", ev.Outcome)
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

// serializeToMessage keys the message by source so a dataset's reports stay ordered.
func serializeToMessage(ev Event) (kafkago.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ev.Source),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "outcome", Value: []byte(ev.Outcome)},
			{Key: "validation_success", Value: []byte(strconv.FormatBool(ev.ValidationSuccess))},
			{Key: "analyzed_at", Value: []byte(ev.AnalyzedAt.Format(time.RFC3339))},
		},
	}, nil
}
