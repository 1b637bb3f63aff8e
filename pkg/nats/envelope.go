package nats

import (
	"encoding/json"
	"fmt"
	"strings"

	"cv-rag/pkg/events"
)

const (
	StreamName    = "EVENTS"
	subjectPrefix = "events."
)

// Subject maps an event type to its subject, e.g. "events.document.indexed".
func Subject(eventType string) string {
	return subjectPrefix + eventType
}

func encode(event events.Event) ([]byte, error) {
	return json.Marshal(events.BaseEvent{
		ID:         event.EventID(),
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
}

// decode restores an event. Messages without an embedded type take it from
// the subject.
func decode(subject string, data []byte) (events.BaseEvent, error) {
	var e events.BaseEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("failed to unmarshal event data: %w", err)
	}
	if e.Type == "" {
		e.Type = strings.TrimPrefix(subject, subjectPrefix)
	}
	if e.Data == nil {
		e.Data = map[string]interface{}{}
	}
	return e, nil
}
