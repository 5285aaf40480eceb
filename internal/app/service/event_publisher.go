package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/segmentio/kafka-go"
	"github.com/sifan077/QuickLink/internal/app/model"
)

// EventPublisher delivers link events to a message stream.
type EventPublisher interface {
	Publish(ctx context.Context, event model.LinkEvent) error
}

// JetStreamPublisher is the part of nats.JetStreamContext used for publishing.
type JetStreamPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSEventPublisher publishes link events to NATS JetStream.
type NATSEventPublisher struct {
	js      JetStreamPublisher
	subject string
}

// NewNATSEventPublisher creates a publisher on the link event subject.
func NewNATSEventPublisher(js JetStreamPublisher) *NATSEventPublisher {
	return &NATSEventPublisher{js: js, subject: model.LinkStreamSubject}
}

// Publish publishes a link event to the stream
func (p *NATSEventPublisher) Publish(ctx context.Context, event model.LinkEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal link event: %w", err)
	}

	// Deduplicates redeliveries of the same event within the stream window.
	if _, err := p.js.Publish(p.subject, data, nats.Context(ctx), nats.MsgId(event.ID)); err != nil {
		return fmt.Errorf("publish link event: %w", err)
	}
	return nil
}

// KafkaWriter is the part of *kafka.Writer used for publishing.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaEventPublisher publishes link events to a Kafka topic keyed by short code.
type KafkaEventPublisher struct {
	writer KafkaWriter
}

func NewKafkaEventPublisher(writer KafkaWriter) *KafkaEventPublisher {
	return &KafkaEventPublisher{writer: writer}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, event model.LinkEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal link event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ShortCode),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	})
	if err != nil {
		return fmt.Errorf("write link event: %w", err)
	}
	return nil
}
