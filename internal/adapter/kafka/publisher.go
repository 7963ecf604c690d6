// Package kafka broadcasts stored disaster events to a downstream topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/disaster-event-graph/internal/domain"
)

// Publisher produces canonical events to a Kafka topic.
// It implements router.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the given brokers and topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes and writes events in a single WriteMessages call.
// Events sharing a source and start time hash to the same partition.
func (p *Publisher) Publish(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	publishedAt := domain.Now()
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i], publishedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	p.logger.Debug("events published", "topic", p.writer.Topic, "count", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// MessageKey identifies a logical event as source|start_time.
func MessageKey(e domain.Event) string {
	return e.Source + "|" + domain.Deref(e.StartTime)
}

// serializeToMessage marshals an Event into a Kafka message.
func serializeToMessage(event domain.Event, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize disaster event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(MessageKey(event)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "source", Value: []byte(event.Source)},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}
