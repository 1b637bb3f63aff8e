package contract

import (
	"context"

	"cv-rag/internal/entity"

	"github.com/google/uuid"
)

// HistoryRepository keeps answered questions in chronological order.
type HistoryRepository interface {
	Append(ctx context.Context, entry *entity.ConversationEntry) error
	// List returns the newest limit entries, oldest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]*entity.ConversationEntry, error)
	// Delete removes one entry and reports whether it existed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Clear(ctx context.Context) error
}
