package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for record lifecycle events.
const (
	EventTypeRecordCreated = "record.created"
	EventTypeRecordUpdated = "record.updated"
	EventTypeRecordDeleted = "record.deleted"
)

// AggregateTypeRecord is the aggregate type for local record events.
const AggregateTypeRecord = "record"

// Event is a lifecycle event published to the event bus.
type Event struct {
	EventID       string
	EventVersion  int
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       []byte
	Metadata      map[string]string
	CreatedAt     time.Time
}

// NewEvent creates a new event with the given parameters.
// The payload is JSON-serialized automatically.
func NewEvent(eventType, aggregateID, aggregateType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:       uuid.New().String(),
		EventVersion:  1,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payloadBytes,
		Metadata:      make(map[string]string),
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// WithMetadata sets a metadata key on the event and returns it for chaining.
func (e *Event) WithMetadata(key, value string) *Event {
	if value != "" {
		e.Metadata[key] = value
	}
	return e
}

// RecordEventPayload is the payload of record lifecycle events.
type RecordEventPayload struct {
	RecordID    string       `json:"record_id"`
	Title       string       `json:"title"`
	TypeName    string       `json:"type_name"`
	SubjectName string       `json:"subject_name,omitempty"`
	Status      RecordStatus `json:"status"`
	Actor       string       `json:"actor,omitempty"`
}

// NewRecordEventPayload builds an event payload from a record.
func NewRecordEventPayload(r *Record, actor string) RecordEventPayload {
	return RecordEventPayload{
		RecordID:    r.ID.String(),
		Title:       r.Detail.Title,
		TypeName:    r.TypeName,
		SubjectName: r.SubjectName,
		Status:      r.Status,
		Actor:       actor,
	}
}
