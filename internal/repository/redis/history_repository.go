package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"cv-rag/internal/entity"
	"cv-rag/internal/mapper"
	"cv-rag/internal/model"
	"cv-rag/internal/repository/contract"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	ConversationKey = "chatbot:conversation_history"
	// DefaultMaxEntries caps the list; older entries are trimmed on append.
	DefaultMaxEntries = 500
)

type HistoryRepository struct {
	rdb        goredis.UniversalClient
	key        string
	maxEntries int64
	mapper     *mapper.ConversationMapper
}

var _ contract.HistoryRepository = &HistoryRepository{}

func NewHistoryRepository(rdb goredis.UniversalClient, key string, maxEntries int) *HistoryRepository {
	if key == "" {
		key = ConversationKey
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &HistoryRepository{
		rdb:        rdb,
		key:        key,
		maxEntries: int64(maxEntries),
		mapper:     mapper.NewConversationMapper(),
	}
}

func (r *HistoryRepository) Append(ctx context.Context, entry *entity.ConversationEntry) error {
	data, err := json.Marshal(r.mapper.ToModel(entry))
	if err != nil {
		return fmt.Errorf("marshal conversation entry: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.RPush(ctx, r.key, data)
	pipe.LTrim(ctx, r.key, -r.maxEntries, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append to %s: %w", r.key, err)
	}
	return nil
}

func (r *HistoryRepository) List(ctx context.Context, limit int) ([]*entity.ConversationEntry, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	raw, err := r.rdb.LRange(ctx, r.key, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.key, err)
	}

	entries := make([]*entity.ConversationEntry, 0, len(raw))
	for _, item := range raw {
		var m model.ConversationEntry
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			// Skip entries written by other tools.
			continue
		}
		entries = append(entries, r.mapper.ToEntity(&m))
	}
	return entries, nil
}

func (r *HistoryRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	raw, err := r.rdb.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", r.key, err)
	}
	for _, item := range raw {
		var m model.ConversationEntry
		if err := json.Unmarshal([]byte(item), &m); err != nil || m.ID != id.String() {
			continue
		}
		removed, err := r.rdb.LRem(ctx, r.key, 1, item).Result()
		if err != nil {
			return false, fmt.Errorf("remove from %s: %w", r.key, err)
		}
		return removed > 0, nil
	}
	return false, nil
}

func (r *HistoryRepository) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", r.key, err)
	}
	return nil
}
