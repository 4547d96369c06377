package trigger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqttcommon "github.com/arlebowski/Tiny-Time-sub002/common/mqtt"
)

// Subscriber is the slice of the MQTT client the source needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// MQTTSource maps host signals published on MQTT topics to trigger events.
// Payloads are optional; a JSON body may carry {"reason": "..."}.
type MQTTSource struct {
	hub
	client Subscriber
	topics map[string]Kind
	qos    byte
	logger *zap.Logger
}

// NewMQTTSource creates a source for topics, keyed by topic. Empty topics are ignored.
func NewMQTTSource(client Subscriber, topics map[Kind]string, qos byte, logger *zap.Logger) *MQTTSource {
	byTopic := make(map[string]Kind, len(topics))
	for kind, topic := range topics {
		if topic != "" {
			byTopic[topic] = kind
		}
	}
	return &MQTTSource{client: client, topics: byTopic, qos: qos, logger: logger}
}

// Start subscribes to every configured topic.
func (m *MQTTSource) Start() error {
	for topic := range m.topics {
		if err := m.client.Subscribe(topic, m.qos, m.handle); err != nil {
			return fmt.Errorf("failed to subscribe trigger topic: %w", err)
		}
		m.logger.Info("Subscribed to trigger topic", zap.String("topic", topic))
	}
	return nil
}

// Stop removes the subscriptions.
func (m *MQTTSource) Stop() error {
	if len(m.topics) == 0 {
		return nil
	}
	topics := make([]string, 0, len(m.topics))
	for topic := range m.topics {
		topics = append(topics, topic)
	}
	return m.client.Unsubscribe(topics...)
}

func (m *MQTTSource) handle(topic string, payload []byte) error {
	kind, ok := m.topics[topic]
	if !ok {
		return fmt.Errorf("no trigger bound to topic %s", topic)
	}

	reason := "mqtt:" + string(kind)
	if len(payload) > 0 {
		var body struct {
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(payload, &body); err == nil && body.Reason != "" {
			reason = body.Reason
		}
	}

	m.emit(Event{ID: uuid.NewString(), Kind: kind, Reason: reason, At: time.Now()})
	return nil
}
