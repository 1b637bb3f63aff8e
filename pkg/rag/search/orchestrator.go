package search

import (
	"context"
	"fmt"
	"log"
	"time"

	"cv-rag/pkg/retry"
	"cv-rag/pkg/store"
	"cv-rag/pkg/vectorindex"
)

// QueryEmbedder embeds questions.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the query side of a bound vector index.
type Searcher interface {
	Query(ctx context.Context, vector []float32, topK int, filter vectorindex.Filter) ([]store.ScoredRecord, error)
}

// Orchestrator handles vector search and candidate filtering
type Orchestrator struct {
	embedder QueryEmbedder
	index    Searcher
	policy   retry.Policy
	logger   *log.Logger
}

func NewOrchestrator(embedder QueryEmbedder, index Searcher, policy retry.Policy, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		embedder: embedder,
		index:    index,
		policy:   policy,
		logger:   logger,
	}
}

// Config encapsulates search parameters
type Config struct {
	TopK int
	// MinScore drops hits scoring below it. 0 keeps everything.
	MinScore float64
	Filter   vectorindex.Filter
}

func DefaultConfig() Config {
	return Config{TopK: 3}
}

// Embed embeds the question, retrying transient failures.
func (o *Orchestrator) Embed(ctx context.Context, question string) ([]float32, error) {
	return retry.Do(ctx, o.policy, func(ctx context.Context) ([]float32, error) {
		return o.embedder.EmbedQuery(ctx, question)
	}, o.notify("embed_query"))
}

// Search queries the index and filters the hits.
func (o *Orchestrator) Search(ctx context.Context, vector []float32, cfg Config) ([]store.ScoredRecord, error) {
	hits, err := retry.Do(ctx, o.policy, func(ctx context.Context) ([]store.ScoredRecord, error) {
		return o.index.Query(ctx, vector, cfg.TopK, cfg.Filter)
	}, o.notify("index_query"))
	if err != nil {
		return nil, err
	}

	o.logger.Printf("[DEBUG] Raw search results: %d chunks", len(hits))
	candidates := o.filterAndDeduplicate(hits, cfg.MinScore)
	o.logger.Printf("[DEBUG] Filtered candidates: %d chunks", len(candidates))
	return candidates, nil
}

// Execute embeds the question and searches with it.
func (o *Orchestrator) Execute(ctx context.Context, question string, cfg Config) ([]store.ScoredRecord, error) {
	vector, err := o.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	return o.Search(ctx, vector, cfg)
}

func (o *Orchestrator) filterAndDeduplicate(hits []store.ScoredRecord, minScore float64) []store.ScoredRecord {
	candidates := make([]store.ScoredRecord, 0, len(hits))
	seen := make(map[string]bool, len(hits))

	for i, h := range hits {
		if seen[h.ID] {
			continue
		}
		if minScore > 0 && h.Score < minScore {
			o.logger.Printf("[DEBUG] Candidate %d: Score=%.4f [FILTERED]", i+1, h.Score)
			continue
		}
		seen[h.ID] = true
		candidates = append(candidates, h)
		o.logger.Printf("[DEBUG] Candidate %d: %s Score=%.4f [KEEP]", i+1, h.ID, h.Score)
	}
	return candidates
}

func (o *Orchestrator) notify(op string) retry.NotifyFunc {
	return func(err error, wait time.Duration) {
		o.logger.Printf("[WARN] %s failed, retrying in %s: %v", op, wait, err)
	}
}
