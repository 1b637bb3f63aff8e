package handler

import (
	"context"

	"cv-rag/internal/pkg/logger"
	"cv-rag/internal/repository/contract"
	"cv-rag/pkg/events"
	pktNats "cv-rag/pkg/nats"
)

// EventSubscriber registers durable event handlers.
type EventSubscriber interface {
	Subscribe(ctx context.Context, eventType, durableName string, handler pktNats.EventHandler) error
}

var _ EventSubscriber = &pktNats.Subscriber{}

// EventHandler reacts to domain events. Answers in the conversation history
// were produced from index content that a re-ingestion or reset replaced,
// so both events clear it.
type EventHandler struct {
	historyRepo contract.HistoryRepository
	logger      logger.ILogger
}

func NewEventHandler(historyRepo contract.HistoryRepository, log logger.ILogger) *EventHandler {
	return &EventHandler{historyRepo: historyRepo, logger: log}
}

// Register subscribes the handler to every event it understands.
func (h *EventHandler) Register(ctx context.Context, sub EventSubscriber) error {
	if err := sub.Subscribe(ctx, events.TypeDocumentIndexed, "cv-rag-history-document-indexed", h.Handle); err != nil {
		return err
	}
	return sub.Subscribe(ctx, events.TypeNamespaceDeleted, "cv-rag-history-namespace-deleted", h.Handle)
}

func (h *EventHandler) Handle(ctx context.Context, event events.Event) error {
	switch event.EventType() {
	case events.TypeDocumentIndexed, events.TypeNamespaceDeleted:
		if err := h.historyRepo.Clear(ctx); err != nil {
			h.logger.Error("EVENTS", "Failed to clear conversation history", map[string]interface{}{
				"event_id": event.EventID(), "event_type": event.EventType(), "error": err.Error(),
			})
			return err
		}
		h.logger.Info("EVENTS", "Conversation history cleared", map[string]interface{}{
			"event_id":    event.EventID(),
			"event_type":  event.EventType(),
			"namespace":   events.StringField(event, "namespace"),
			"document_id": events.StringField(event, "document_id"),
		})
	default:
		h.logger.Debug("EVENTS", "Ignoring event", map[string]interface{}{"event_type": event.EventType()})
	}
	return nil
}
