package handler

import (
	"context"
	"errors"
	"testing"

	"cv-rag/internal/entity"
	"cv-rag/internal/pkg/logger"
	"cv-rag/internal/repository/memory"
	"cv-rag/pkg/events"
	pktNats "cv-rag/pkg/nats"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubscriber struct {
	types []string
	fail  bool
}

func (r *recordingSubscriber) Subscribe(_ context.Context, eventType, _ string, _ pktNats.EventHandler) error {
	if r.fail {
		return errors.New("nats down")
	}
	r.types = append(r.types, eventType)
	return nil
}

func TestRegisterSubscribesToDomainEvents(t *testing.T) {
	sub := &recordingSubscriber{}
	h := NewEventHandler(memory.NewHistoryRepository(10), logger.NewNopLogger())

	require.NoError(t, h.Register(context.Background(), sub))
	assert.Equal(t, []string{events.TypeDocumentIndexed, events.TypeNamespaceDeleted}, sub.types)

	assert.Error(t, h.Register(context.Background(), &recordingSubscriber{fail: true}))
}

func TestDocumentIndexedClearsHistory(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewHistoryRepository(10)
	require.NoError(t, repo.Append(ctx, &entity.ConversationEntry{Id: uuid.New(), Question: "q"}))

	h := NewEventHandler(repo, logger.NewNopLogger())
	require.NoError(t, h.Handle(ctx, events.DocumentIndexed("cv-rag", "cv", 3, 0)))

	entries, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUnknownEventsAreIgnored(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewHistoryRepository(10)
	require.NoError(t, repo.Append(ctx, &entity.ConversationEntry{Id: uuid.New(), Question: "q"}))

	h := NewEventHandler(repo, logger.NewNopLogger())
	require.NoError(t, h.Handle(ctx, events.BaseEvent{Type: "something.else"}))

	entries, _ := repo.List(ctx, 0)
	assert.Len(t, entries, 1)
}
