package service

import (
	"context"
	"time"

	"cv-rag/internal/dto"
	"cv-rag/internal/entity"
	"cv-rag/internal/pkg/logger"
	"cv-rag/internal/repository/contract"
	"cv-rag/pkg/rag/executor"
	"cv-rag/pkg/search"

	"github.com/google/uuid"
)

const answerModule = "ANSWER"

// Answerer is the query side of the pipeline.
type Answerer interface {
	Answer(ctx context.Context, question string, opts ...executor.AnswerOption) (*executor.Result, error)
}

type IAnswerService interface {
	Answer(ctx context.Context, request *dto.AnswerRequest) (*dto.AnswerResponse, error)
	GetHistory(ctx context.Context, limit int) ([]*dto.HistoryEntryResponse, error)
	DeleteHistoryEntry(ctx context.Context, id uuid.UUID) (bool, error)
	ClearHistory(ctx context.Context) error
}

type answerService struct {
	pipeline    Answerer
	historyRepo contract.HistoryRepository
	logger      logger.ILogger
}

func NewAnswerService(pipeline Answerer, historyRepo contract.HistoryRepository, log logger.ILogger) IAnswerService {
	return &answerService{
		pipeline:    pipeline,
		historyRepo: historyRepo,
		logger:      log,
	}
}

func (s *answerService) Answer(ctx context.Context, request *dto.AnswerRequest) (*dto.AnswerResponse, error) {
	query := search.ParseQuery(request.Question)
	docID := request.SourceDocId
	if docID == "" {
		docID = query.DocumentID
	}

	var opts []executor.AnswerOption
	if docID != "" {
		opts = append(opts, executor.WithSourceDocument(docID))
	}

	result, err := s.pipeline.Answer(ctx, query.Question, opts...)
	if err != nil {
		return nil, err
	}

	entry := &entity.ConversationEntry{
		Id:        uuid.New(),
		Question:  query.Question,
		Answer:    result.Answer,
		NoContext: result.NoContext,
		Sources:   make([]entity.ConversationSource, len(result.Sources)),
		CreatedAt: time.Now().UTC(),
	}
	sources := make([]dto.SourceDTO, len(result.Sources))
	for i, src := range result.Sources {
		entry.Sources[i] = entity.ConversationSource{ChunkId: src.ID, Score: src.Score, SequenceIndex: src.SequenceIndex}
		sources[i] = dto.SourceDTO{Id: src.ID, Score: src.Score, SequenceIndex: src.SequenceIndex}
	}

	// History is display-only; losing an entry must not fail the answer.
	if err := s.historyRepo.Append(ctx, entry); err != nil {
		s.logger.Warn(answerModule, "Failed to store conversation entry", map[string]interface{}{
			"entry_id": entry.Id.String(), "error": err.Error(),
		})
	}

	s.logger.Info(answerModule, "Question answered", map[string]interface{}{
		"entry_id":   entry.Id.String(),
		"retrieved":  result.Retrieved,
		"in_context": len(result.Sources),
		"no_context": result.NoContext,
	})

	return &dto.AnswerResponse{
		Id:        entry.Id,
		Answer:    result.Answer,
		Sources:   sources,
		Retrieved: result.Retrieved,
		NoContext: result.NoContext,
	}, nil
}

func (s *answerService) GetHistory(ctx context.Context, limit int) ([]*dto.HistoryEntryResponse, error) {
	entries, err := s.historyRepo.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		sources := make([]dto.SourceDTO, len(e.Sources))
		for i, src := range e.Sources {
			sources[i] = dto.SourceDTO{Id: src.ChunkId, Score: src.Score, SequenceIndex: src.SequenceIndex}
		}
		res = append(res, &dto.HistoryEntryResponse{
			Id:        e.Id,
			Question:  e.Question,
			Answer:    e.Answer,
			NoContext: e.NoContext,
			Sources:   sources,
			CreatedAt: e.CreatedAt,
		})
	}
	return res, nil
}

func (s *answerService) DeleteHistoryEntry(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.historyRepo.Delete(ctx, id)
}

func (s *answerService) ClearHistory(ctx context.Context) error {
	if err := s.historyRepo.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info(answerModule, "Conversation history cleared", nil)
	return nil
}
