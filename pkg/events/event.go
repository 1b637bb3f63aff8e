// Package events defines the domain events emitted by the ingestion side of
// the pipeline.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeDocumentIndexed  = "document.indexed"
	TypeNamespaceDeleted = "namespace.deleted"
)

// Event defines the contract for all domain events.
type Event interface {
	// EventID is unique per emitted event and used for deduplication.
	EventID() string

	// EventType returns the event code, e.g. "document.indexed".
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

// Publisher emits events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// BaseEvent is the concrete Event used everywhere.
type BaseEvent struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e BaseEvent) EventID() string {
	return e.ID
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func newEvent(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

// DocumentIndexed reports a finished ingestion run.
func DocumentIndexed(namespace, documentID string, chunks, pruned int) BaseEvent {
	return newEvent(TypeDocumentIndexed, map[string]interface{}{
		"namespace":   namespace,
		"document_id": documentID,
		"chunks":      chunks,
		"pruned":      pruned,
	})
}

// NamespaceDeleted reports that every record of a namespace was removed.
func NamespaceDeleted(namespace string) BaseEvent {
	return newEvent(TypeNamespaceDeleted, map[string]interface{}{
		"namespace": namespace,
	})
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// StringField reads a string payload value, tolerating absent keys.
func StringField(e Event, key string) string {
	v, _ := e.Payload()[key].(string)
	return v
}
