package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/segmentio/encoding/json"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/catalog-search-service/internal/domain"
	"github.com/helixir/catalog-search-service/internal/observability"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	deadline bool
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, w.deadline = ctx.Deadline()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakePublisher struct {
	events []*domain.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, e *domain.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func testRecord() *domain.Record {
	return &domain.Record{
		ID:       uuid.New(),
		TypeName: "Thesis",
		Status:   domain.RecordStatusPublished,
		Detail:   domain.Detail{Title: "On Graphs"},
	}
}

func TestNewKafkaPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(Config{})
	assert.Error(t, err)

	p, err := NewKafkaPublisher(Config{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	assert.Equal(t, DefaultWriteTimeout, p.writeTimeout)
	require.NoError(t, p.Close())
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, time.Second)
	rec := testRecord()

	event, err := domain.NewEvent(domain.EventTypeRecordCreated, rec.ID.String(), domain.AggregateTypeRecord,
		domain.NewRecordEventPayload(rec, "admin"))
	require.NoError(t, err)
	event.WithMetadata("source", ServiceName)

	require.NoError(t, p.Publish(context.Background(), event))
	require.Len(t, w.messages, 1)
	assert.True(t, w.deadline)

	msg := w.messages[0]
	assert.Equal(t, rec.ID.String(), string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, domain.EventTypeRecordCreated, string(msg.Headers[0].Value))

	var env envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, event.EventID, env.EventID)
	assert.Equal(t, domain.AggregateTypeRecord, env.AggregateType)
	assert.Equal(t, ServiceName, env.Metadata["source"])

	var payload domain.RecordEventPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "On Graphs", payload.Title)
	assert.Equal(t, "admin", payload.Actor)
}

func TestKafkaPublisher_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newKafkaPublisher(w, time.Second)

	event, err := domain.NewEvent(domain.EventTypeRecordDeleted, "id", domain.AggregateTypeRecord, nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record.deleted")
}

func TestRecordEmitter_Emit(t *testing.T) {
	pub := &fakePublisher{}
	metrics := observability.NewMetricsWithRegistry("test_events", prometheus.NewRegistry())
	emitter := NewRecordEmitter(pub, zerolog.Nop(), metrics)

	ctx := observability.WithRequestID(context.Background(), "req-1")
	emitter.Emit(ctx, domain.EventTypeRecordUpdated, testRecord(), "editor")

	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.EventTypeRecordUpdated, pub.events[0].EventType)
	assert.Equal(t, "req-1", pub.events[0].Metadata["request_id"])
	assert.NotContains(t, pub.events[0].Metadata, "correlation_id")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(domain.EventTypeRecordUpdated)))
}

func TestRecordEmitter_EmitSwallowsFailures(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	metrics := observability.NewMetricsWithRegistry("test_events_fail", prometheus.NewRegistry())
	emitter := NewRecordEmitter(pub, zerolog.Nop(), metrics)

	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), domain.EventTypeRecordCreated, testRecord(), "")
	})
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EventsFailed.WithLabelValues(domain.EventTypeRecordCreated)))
}

func TestRecordEmitter_NilPublisher(t *testing.T) {
	emitter := NewRecordEmitter(nil, zerolog.Nop(), nil)
	emitter.Emit(context.Background(), domain.EventTypeRecordCreated, testRecord(), "")
	assert.NoError(t, emitter.Close())
}
