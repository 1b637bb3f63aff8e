package memory

import (
	"context"
	"sync"

	"cv-rag/internal/entity"
	"cv-rag/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const historyKey = "conversation_history"

// HistoryRepository is the in-process history used when Redis is not
// available. Entries live until Clear or process exit.
type HistoryRepository struct {
	mu         sync.Mutex
	cache      *cache.Cache
	maxEntries int
}

var _ contract.HistoryRepository = &HistoryRepository{}

func NewHistoryRepository(maxEntries int) *HistoryRepository {
	if maxEntries <= 0 {
		maxEntries = 500
	}
	return &HistoryRepository{
		cache:      cache.New(cache.NoExpiration, 0),
		maxEntries: maxEntries,
	}
}

func (r *HistoryRepository) load() []*entity.ConversationEntry {
	if x, found := r.cache.Get(historyKey); found {
		return x.([]*entity.ConversationEntry)
	}
	return nil
}

func (r *HistoryRepository) Append(_ context.Context, entry *entity.ConversationEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *entry
	cp.Sources = append([]entity.ConversationSource(nil), entry.Sources...)

	entries := append(r.load(), &cp)
	if over := len(entries) - r.maxEntries; over > 0 {
		entries = append([]*entity.ConversationEntry(nil), entries[over:]...)
	}
	r.cache.Set(historyKey, entries, cache.NoExpiration)
	return nil
}

func (r *HistoryRepository) List(_ context.Context, limit int) ([]*entity.ConversationEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.load()
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]*entity.ConversationEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (r *HistoryRepository) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.load()
	for i, e := range entries {
		if e.Id != id {
			continue
		}
		next := make([]*entity.ConversationEntry, 0, len(entries)-1)
		next = append(next, entries[:i]...)
		next = append(next, entries[i+1:]...)
		r.cache.Set(historyKey, next, cache.NoExpiration)
		return true, nil
	}
	return false, nil
}

func (r *HistoryRepository) Clear(_ context.Context) error {
	r.cache.Delete(historyKey)
	return nil
}
