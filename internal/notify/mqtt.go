package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
)

// MQTTClient is the publishing half of the MQTT client.
type MQTTClient interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTPublisher publishes the schedule as a retained message so a host
// that connects later still receives the current day.
type MQTTPublisher struct {
	client MQTTClient
	topic  string
	qos    byte
}

func NewMQTTPublisher(client MQTTClient, topic string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic, qos: qos}
}

func (p *MQTTPublisher) Notify(_ context.Context, sched *models.PersistedSchedule) error {
	data, err := json.Marshal(sched)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}
	return p.client.Publish(p.topic, p.qos, true, data)
}
