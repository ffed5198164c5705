package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
	"github.com/custodia-labs/ontomap/internal/logger"
)

// Ensure Sink implements the interface.
var _ driven.MappingEventSink = (*Sink)(nil)

// EventType is the value of the event_type header on every message.
const EventType = "mapping.decided"

// messageWriter is the subset of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds Kafka producer configuration.
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	RequiredAcks int
}

// ConfigFrom maps the domain Kafka section onto producer settings.
func ConfigFrom(cfg domain.KafkaConfig) Config {
	return Config{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: int(kafka.RequireOne),
	}
}

// Sink writes one JSON message per mapping event, keyed by record key so
// decisions about the same record stay ordered within a partition.
type Sink struct {
	writer messageWriter
	topic  string
}

// NewSink creates a sink backed by a kafka.Writer.
func NewSink(cfg Config) *Sink {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		AllowAutoTopicCreation: true,
	}
	return &Sink{writer: writer, topic: cfg.Topic}
}

// Publish emits one event.
func (s *Sink) Publish(ctx context.Context, event domain.MappingEvent) error {
	if event.DecidedAt.IsZero() {
		event.DecidedAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal mapping event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.RecordKey),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventType)},
			{Key: "kind", Value: []byte(event.Kind)},
			{Key: "outcome", Value: []byte(event.Outcome)},
		},
	}

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", s.topic, err)
	}

	logger.Debug("Published mapping event for %s to %s", event.RecordID, s.topic)
	return nil
}

// Close flushes pending messages and closes the writer.
func (s *Sink) Close() error {
	return s.writer.Close()
}
