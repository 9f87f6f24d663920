package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const mqttTimeout = 10 * time.Second

// MQTT publishes events as JSON to a single topic.
type MQTT struct {
	client mqtt.Client
	topic  string
	qos    byte
	logger *slog.Logger
}

// DialMQTT connects to broker and returns a publisher for topic.
func DialMQTT(broker, clientID, topic string, qos int, logger *slog.Logger) (*MQTT, error) {
	if qos < 0 || qos > 2 {
		return nil, fmt.Errorf("mqtt qos must be 0, 1 or 2, got %d", qos)
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(mqttTimeout)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "broker", broker, "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	logger.Info("mqtt publisher connected", "broker", broker, "topic", topic)
	return newMQTT(client, topic, byte(qos), logger), nil
}

func newMQTT(client mqtt.Client, topic string, qos byte, logger *slog.Logger) *MQTT {
	return &MQTT{client: client, topic: topic, qos: qos, logger: logger}
}

func (m *MQTT) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("serialize report event: %w", err)
	}
	token := m.client.Publish(m.topic, m.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	return nil
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
