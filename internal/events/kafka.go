// Package events publishes clearing outcomes to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/gridmarket/spot-engine/internal/model"
)

// TypeClearingUpdated marks an event emitted after a scenario changed
// and its equilibrium was recomputed.
const TypeClearingUpdated = "clearing_updated"

// ClearingEvent is the payload sent for every recomputed scenario.
type ClearingEvent struct {
	Type       string               `json:"type"`
	ScenarioID string               `json:"scenario_id"`
	Version    int64                `json:"version"`
	Cause      string               `json:"cause"` // e.g. "participant_added", "reset"
	Result     model.ClearingResult `json:"result"`
	Timestamp  time.Time            `json:"timestamp"`
}

// Publisher delivers clearing events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev ClearingEvent) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by scenario id, so
// all updates for one scenario land on one partition in version order.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Encode builds the Kafka message for ev.
func Encode(ev ClearingEvent) (kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode clearing event %s: %w", ev.ScenarioID, err)
	}
	return kafka.Message{
		Key:   []byte(ev.ScenarioID),
		Value: value,
		Time:  ev.Timestamp,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev ClearingEvent) error {
	msg, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish clearing event %s v%d: %w", ev.ScenarioID, ev.Version, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
