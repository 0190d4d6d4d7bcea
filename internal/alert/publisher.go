// Package alert broadcasts care-burden briefings for overloaded regions.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"eldercare-survey/internal/domain"
)

// Briefing one overloaded region during a weather or disaster alert.
type Briefing struct {
	Month     string                  `json:"month"`
	AlertType string                  `json:"alert_type"`
	Status    domain.CareBurdenStatus `json:"status"`
	IssuedAt  time.Time               `json:"issued_at"`
}

// Publisher delivers briefings to downstream subscribers.
type Publisher interface {
	Publish(ctx context.Context, b Briefing) error
}

// NopPublisher drops every briefing. Used when MQTT is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Briefing) error { return nil }

// mqttClient the part of the broker client the publisher needs.
type mqttClient interface {
	Publish(topic string, retained bool, payload []byte) error
}

// MQTTPublisher publishes each briefing as JSON to <topic>/<region>.
type MQTTPublisher struct {
	client mqttClient
	topic  string
	logger *zap.Logger
}

func NewMQTTPublisher(client mqttClient, topic string, logger *zap.Logger) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic, logger: logger}
}

func (p *MQTTPublisher) Publish(ctx context.Context, b Briefing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal briefing: %w", err)
	}
	topic := p.topic + "/" + b.Status.Region
	if err := p.client.Publish(topic, false, payload); err != nil {
		return err
	}
	p.logger.Info("Published care-burden alert",
		zap.String("topic", topic),
		zap.String("month", b.Month),
		zap.String("alert_type", b.AlertType),
		zap.Float64("ratio", b.Status.Ratio),
	)
	return nil
}
