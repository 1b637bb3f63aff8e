package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cv-rag/internal/dto"
	"cv-rag/internal/pkg/logger"
	"cv-rag/pkg/apperror"
	"cv-rag/pkg/chunker"
	"cv-rag/pkg/embedding"
	"cv-rag/pkg/events"
	"cv-rag/pkg/loader"
	"cv-rag/pkg/retry"
	"cv-rag/pkg/store"
	"cv-rag/pkg/vectorindex"

	"github.com/google/uuid"
)

const ingestModule = "INGEST"

// DocumentEmbedder embeds chunk texts in order.
type DocumentEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// DocumentIndex is the write side of the vector index.
type DocumentIndex interface {
	Spec() vectorindex.NamespaceSpec
	Upsert(ctx context.Context, records []store.IndexRecord) error
	Prune(ctx context.Context, sourceDocID string, keep []string) (int, error)
}

// DocumentLoader resolves a source reference into a document.
type DocumentLoader interface {
	Load(ctx context.Context, source string) (store.Document, error)
}

type IIngestionService interface {
	// Ingest handles an API request: inline text or a source to load.
	Ingest(ctx context.Context, request *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error)
	// IngestDocument chunks, embeds and upserts an already loaded document.
	IngestDocument(ctx context.Context, doc store.Document) (*dto.IngestDocumentResponse, error)
}

type ingestionService struct {
	chunker   *chunker.Chunker
	embedder  DocumentEmbedder
	index     DocumentIndex
	loader    DocumentLoader
	publisher events.Publisher
	policy    retry.Policy
	logger    logger.ILogger
}

func NewIngestionService(
	chk *chunker.Chunker,
	embedder DocumentEmbedder,
	index DocumentIndex,
	docLoader DocumentLoader,
	publisher events.Publisher,
	policy retry.Policy,
	log logger.ILogger,
) IIngestionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ingestionService{
		chunker:   chk,
		embedder:  embedder,
		index:     index,
		loader:    docLoader,
		publisher: publisher,
		policy:    policy,
		logger:    log,
	}
}

func (s *ingestionService) Ingest(ctx context.Context, request *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error) {
	var doc store.Document
	switch {
	case strings.TrimSpace(request.Text) != "":
		id := request.DocumentId
		if id == "" {
			id = "inline"
		}
		doc = store.Document{ID: id, Text: request.Text, Source: "inline", LoadedAt: time.Now().UTC()}
	case request.Source != "":
		if s.loader == nil {
			return nil, apperror.Configuration("ingest", "no document loader configured")
		}
		loaded, err := s.loader.Load(ctx, request.Source)
		if err != nil {
			return nil, err
		}
		doc = loaded
		if request.DocumentId != "" {
			doc.ID = request.DocumentId
		}
	default:
		return nil, apperror.Validation("ingest", "either text or source is required")
	}
	return s.IngestDocument(ctx, doc)
}

func (s *ingestionService) IngestDocument(ctx context.Context, doc store.Document) (*dto.IngestDocumentResponse, error) {
	started := time.Now()
	runID := uuid.NewString()
	spec := s.index.Spec()

	if doc.ID == "" {
		return nil, apperror.Validation("ingest", "document id must not be empty")
	}

	chunks := s.chunker.Chunk(doc)
	if len(chunks) == 0 {
		return nil, apperror.Validation("ingest", "document %s contains no text to index", doc.ID)
	}

	s.logger.Info(ingestModule, "Chunked document", map[string]interface{}{
		"run_id":      runID,
		"document_id": doc.ID,
		"strategy":    string(s.chunker.Options().Strategy),
		"chunks":      len(chunks),
	})

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := retry.Do(ctx, s.policy, func(ctx context.Context) ([][]float32, error) {
		return s.embedder.EmbedBatch(ctx, texts)
	}, s.notify(runID, "embed"))
	if err != nil {
		err = nameFailingChunk(chunks, err)
		s.logger.Error(ingestModule, "Embedding failed", map[string]interface{}{
			"run_id": runID, "document_id": doc.ID, "error": err.Error(),
		})
		return nil, err
	}

	extra := map[string]string{"ingest_run": runID}
	if doc.Source != "" {
		extra["source"] = doc.Source
	}
	records := make([]store.IndexRecord, len(chunks))
	keep := make([]string, len(chunks))
	for i, c := range chunks {
		records[i] = store.NewIndexRecord(c, vectors[i], extra)
		keep[i] = c.ID
	}

	_, err = retry.Do(ctx, s.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.index.Upsert(ctx, records)
	}, s.notify(runID, "upsert"))
	if err != nil {
		s.logger.Error(ingestModule, "Upsert failed", map[string]interface{}{
			"run_id": runID, "document_id": doc.ID, "error": err.Error(),
		})
		return nil, err
	}

	pruned, err := retry.Do(ctx, s.policy, func(ctx context.Context) (int, error) {
		return s.index.Prune(ctx, doc.ID, keep)
	}, s.notify(runID, "prune"))
	if err != nil {
		return nil, fmt.Errorf("prune stale chunks of %s: %w", doc.ID, err)
	}

	if err := s.publisher.Publish(ctx, events.DocumentIndexed(spec.Name, doc.ID, len(chunks), pruned)); err != nil {
		s.logger.Warn(ingestModule, "Failed to publish document.indexed", map[string]interface{}{
			"run_id": runID, "error": err.Error(),
		})
	}

	elapsed := time.Since(started)
	s.logger.Info(ingestModule, "Document indexed", map[string]interface{}{
		"run_id":      runID,
		"document_id": doc.ID,
		"namespace":   spec.Name,
		"chunks":      len(chunks),
		"pruned":      pruned,
		"duration_ms": elapsed.Milliseconds(),
	})

	return &dto.IngestDocumentResponse{
		RunId:      runID,
		DocumentId: doc.ID,
		Namespace:  spec.Name,
		Strategy:   string(s.chunker.Options().Strategy),
		Chunks:     len(chunks),
		Pruned:     pruned,
		DurationMs: elapsed.Milliseconds(),
	}, nil
}

func (s *ingestionService) notify(runID, step string) retry.NotifyFunc {
	return func(err error, wait time.Duration) {
		s.logger.Warn(ingestModule, "Retrying "+step, map[string]interface{}{
			"run_id": runID, "wait": wait.String(), "error": err.Error(),
		})
	}
}

// nameFailingChunk rewrites a batch position into chunk ids, keeping the
// error kind.
func nameFailingChunk(chunks []store.Chunk, err error) error {
	var item *embedding.BatchItemError
	if !errors.As(err, &item) || item.Index < 0 || item.Index >= len(chunks) {
		return err
	}
	if item.Count > 1 {
		last := item.Index + item.Count - 1
		if last >= len(chunks) {
			last = len(chunks) - 1
		}
		return fmt.Errorf("embed chunks %s..%s: %w", chunks[item.Index].ID, chunks[last].ID, item.Err)
	}
	return fmt.Errorf("embed chunk %s: %w", chunks[item.Index].ID, item.Err)
}

var _ DocumentLoader = &loader.Loader{}
