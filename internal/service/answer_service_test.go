package service

import (
	"context"
	"errors"
	"testing"

	"cv-rag/internal/dto"
	"cv-rag/internal/entity"
	"cv-rag/internal/pkg/logger"
	"cv-rag/internal/repository/memory"
	"cv-rag/pkg/apperror"
	"cv-rag/pkg/rag/executor"
	"cv-rag/pkg/rag/search"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnswerer struct {
	result   *executor.Result
	err      error
	question string
	filter   string
}

func (s *stubAnswerer) Answer(_ context.Context, question string, opts ...executor.AnswerOption) (*executor.Result, error) {
	s.question = question
	var cfg search.Config
	for _, opt := range opts {
		opt(&cfg)
	}
	s.filter = cfg.Filter.SourceDocID
	return s.result, s.err
}

type brokenHistory struct{ *memory.HistoryRepository }

func (*brokenHistory) Append(context.Context, *entity.ConversationEntry) error {
	return errors.New("redis: connection refused")
}

func TestAnswerRecordsHistory(t *testing.T) {
	stub := &stubAnswerer{result: &executor.Result{
		Answer:    "Estudió una Maestría en IA.",
		Sources:   []executor.Source{{ID: "cv#chunk_0002", Score: 0.83, SequenceIndex: 2}},
		Retrieved: 3,
	}}
	history := memory.NewHistoryRepository(10)
	svc := NewAnswerService(stub, history, logger.NewNopLogger())
	ctx := context.Background()

	res, err := svc.Answer(ctx, &dto.AnswerRequest{Question: "¿Qué estudió?", SourceDocId: "cv"})
	require.NoError(t, err)

	assert.Equal(t, "¿Qué estudió?", stub.question)
	assert.Equal(t, "cv", stub.filter)
	assert.Equal(t, "Estudió una Maestría en IA.", res.Answer)
	assert.Equal(t, []dto.SourceDTO{{Id: "cv#chunk_0002", Score: 0.83, SequenceIndex: 2}}, res.Sources)
	assert.Equal(t, 3, res.Retrieved)

	entries, err := svc.GetHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, res.Id, entries[0].Id)
	assert.Equal(t, res.Sources, entries[0].Sources)

	ok, err := svc.DeleteHistoryEntry(ctx, res.Id)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.DeleteHistoryEntry(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAnswerErrorsAreNotRecorded(t *testing.T) {
	stub := &stubAnswerer{err: apperror.Validation("answer", "question must not be empty")}
	history := memory.NewHistoryRepository(10)
	svc := NewAnswerService(stub, history, logger.NewNopLogger())

	_, err := svc.Answer(context.Background(), &dto.AnswerRequest{Question: " "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	entries, _ := svc.GetHistory(context.Background(), 0)
	assert.Empty(t, entries)
}

func TestAnswerSurvivesHistoryFailure(t *testing.T) {
	stub := &stubAnswerer{result: &executor.Result{Answer: "ok", NoContext: true}}
	svc := NewAnswerService(stub, &brokenHistory{memory.NewHistoryRepository(10)}, logger.NewNopLogger())

	res, err := svc.Answer(context.Background(), &dto.AnswerRequest{Question: "hola"})
	require.NoError(t, err)
	assert.True(t, res.NoContext)
	assert.Empty(t, res.Sources)

	entries, err := svc.GetHistory(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClearHistory(t *testing.T) {
	history := memory.NewHistoryRepository(10)
	require.NoError(t, history.Append(context.Background(), &entity.ConversationEntry{Id: uuid.New()}))
	svc := NewAnswerService(&stubAnswerer{}, history, logger.NewNopLogger())

	require.NoError(t, svc.ClearHistory(context.Background()))
	entries, _ := svc.GetHistory(context.Background(), 0)
	assert.Empty(t, entries)
}

func TestAnswerDocumentCommand(t *testing.T) {
	stub := &stubAnswerer{result: &executor.Result{Answer: "Go y Python."}}
	svc := NewAnswerService(stub, memory.NewHistoryRepository(10), logger.NewNopLogger())
	ctx := context.Background()

	_, err := svc.Answer(ctx, &dto.AnswerRequest{Question: "/doc:ana ¿Qué lenguajes usa?"})
	require.NoError(t, err)
	assert.Equal(t, "¿Qué lenguajes usa?", stub.question)
	assert.Equal(t, "ana", stub.filter)

	_, err = svc.Answer(ctx, &dto.AnswerRequest{Question: "/doc:ana ¿Qué lenguajes usa?", SourceDocId: "cv"})
	require.NoError(t, err)
	assert.Equal(t, "cv", stub.filter, "the explicit field wins over the inline command")

	entries, err := svc.GetHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "¿Qué lenguajes usa?", entries[0].Question)
}
