// Package events publishes local record lifecycle events to Kafka.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/encoding/json"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/catalog-search-service/internal/domain"
	"github.com/helixir/catalog-search-service/internal/observability"
)

const (
	// DefaultTopic is the topic record events go to when none is configured.
	DefaultTopic = "catalog.records"

	// DefaultWriteTimeout bounds a single publish.
	DefaultWriteTimeout = 5 * time.Second

	// ServiceName is stamped into every event's metadata as its source.
	ServiceName = "catalog-search-service"
)

// Publisher sends events to the event bus.
type Publisher interface {
	Publish(ctx context.Context, event *domain.Event) error
	Close() error
}

// NoopPublisher drops every event. It is used when Kafka is disabled.
type NoopPublisher struct{}

// Publish does nothing.
func (NoopPublisher) Publish(context.Context, *domain.Event) error { return nil }

// Close does nothing.
func (NoopPublisher) Close() error { return nil }

// messageWriter is the part of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds Kafka publisher settings.
type Config struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 10 * time.Millisecond
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
}

// KafkaPublisher writes events as JSON messages keyed by aggregate ID, so
// every event of one record lands on the same partition.
type KafkaPublisher struct {
	writer       messageWriter
	writeTimeout time.Duration
}

// NewKafkaPublisher creates a publisher backed by a kafka.Writer.
func NewKafkaPublisher(cfg Config) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher: at least one broker is required")
	}
	cfg.applyDefaults()

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, cfg.WriteTimeout), nil
}

func newKafkaPublisher(w messageWriter, writeTimeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{writer: w, writeTimeout: writeTimeout}
}

// envelope is the JSON value of a published message.
type envelope struct {
	EventID       string            `json:"event_id"`
	EventVersion  int               `json:"event_version"`
	EventType     string            `json:"event_type"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Publish writes one event.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.Event) error {
	msg, err := toMessage(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.EventType, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func toMessage(event *domain.Event) (kafka.Message, error) {
	value, err := json.Marshal(envelope{
		EventID:       event.EventID,
		EventVersion:  event.EventVersion,
		EventType:     event.EventType,
		AggregateID:   event.AggregateID,
		AggregateType: event.AggregateType,
		Payload:       event.Payload,
		Metadata:      event.Metadata,
		CreatedAt:     event.CreatedAt,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event %s: %w", event.EventID, err)
	}

	return kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}, nil
}

// RecordEmitter turns record mutations into published events. Publishing
// is best effort: failures are logged and counted but never returned.
type RecordEmitter struct {
	publisher Publisher
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// NewRecordEmitter creates an emitter. A nil publisher drops every event.
func NewRecordEmitter(publisher Publisher, logger zerolog.Logger, metrics *observability.Metrics) *RecordEmitter {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &RecordEmitter{
		publisher: publisher,
		logger:    logger.With().Str("component", "record_events").Logger(),
		metrics:   metrics,
	}
}

// Emit publishes eventType for rec on behalf of actor.
func (e *RecordEmitter) Emit(ctx context.Context, eventType string, rec *domain.Record, actor string) {
	logger := observability.WithRecordContext(observability.LoggerFromContext(ctx, e.logger), rec.ID.String())

	event, err := domain.NewEvent(eventType, rec.ID.String(), domain.AggregateTypeRecord, domain.NewRecordEventPayload(rec, actor))
	if err != nil {
		e.metrics.RecordEventFailed(eventType)
		logger.Error().Err(err).Str("event_type", eventType).Msg("failed to build record event")
		return
	}
	event.WithMetadata("source", ServiceName).
		WithMetadata("request_id", observability.RequestIDFromContext(ctx)).
		WithMetadata("correlation_id", observability.CorrelationIDFromContext(ctx))

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.metrics.RecordEventFailed(eventType)
		logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish record event")
		return
	}
	e.metrics.RecordEventPublished(eventType)
	logger.Debug().Str("event_type", eventType).Str("event_id", event.EventID).Msg("record event published")
}

// Close closes the underlying publisher.
func (e *RecordEmitter) Close() error {
	return e.publisher.Close()
}
