package executor

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"cv-rag/pkg/apperror"
	"cv-rag/pkg/llm"
	"cv-rag/pkg/rag/prompt"
	"cv-rag/pkg/rag/search"
	"cv-rag/pkg/retry"
	"cv-rag/pkg/store"
	"cv-rag/pkg/vectorindex"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("cv-rag/pkg/rag/executor")

// Config holds the per-process answer settings.
type Config struct {
	TopK        int
	MinScore    float64
	Temperature float64
	MaxTokens   int
	// CallTimeout bounds each generator call.
	CallTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{TopK: 3, Temperature: 0.7, MaxTokens: 1000, CallTimeout: 30 * time.Second}
}

// Source identifies a chunk that was placed in the prompt.
type Source struct {
	ID            string  `json:"id"`
	Score         float64 `json:"score"`
	SequenceIndex int     `json:"sequenceIndex"`
}

type Result struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	// Retrieved counts hits before the context budget was applied.
	Retrieved int  `json:"retrieved"`
	NoContext bool `json:"noContext"`
}

// AnswerOption adjusts a single Answer call.
type AnswerOption func(*search.Config)

// WithSourceDocument restricts retrieval to one ingested document.
func WithSourceDocument(id string) AnswerOption {
	return func(c *search.Config) { c.Filter = vectorindex.Filter{SourceDocID: id} }
}

// PipelineExecutor answers questions: embed, retrieve, assemble, generate.
// It keeps no per-request state and is safe for concurrent use.
type PipelineExecutor struct {
	search    *search.Orchestrator
	builder   *prompt.Builder
	generator llm.LLMProvider
	policy    retry.Policy
	cfg       Config
	logger    *log.Logger
}

func NewPipelineExecutor(
	searchOrchestrator *search.Orchestrator,
	builder *prompt.Builder,
	generator llm.LLMProvider,
	policy retry.Policy,
	cfg Config,
	logger *log.Logger,
) *PipelineExecutor {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &PipelineExecutor{
		search:    searchOrchestrator,
		builder:   builder,
		generator: generator,
		policy:    policy,
		cfg:       cfg,
		logger:    logger,
	}
}

func (p *PipelineExecutor) Answer(ctx context.Context, question string, opts ...AnswerOption) (*Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, apperror.Validation("answer", "question must not be empty")
	}
	if p.cfg.TopK <= 0 {
		return nil, apperror.Configuration("answer", "topK must be positive, got %d", p.cfg.TopK)
	}

	searchCfg := search.Config{TopK: p.cfg.TopK, MinScore: p.cfg.MinScore}
	for _, opt := range opts {
		opt(&searchCfg)
	}

	p.logger.Printf("[PIPELINE] Answering: %s", truncate(question, 50))

	vector, err := p.embed(ctx, question)
	if err != nil {
		return nil, err
	}

	hits, err := p.retrieve(ctx, vector, searchCfg)
	if err != nil {
		return nil, err
	}

	contextText, included := p.builder.BuildContext(hits)
	if len(included) < len(hits) {
		p.logger.Printf("[PIPELINE] Context budget kept %d of %d chunks", len(included), len(hits))
	}
	promptText := p.builder.Build(question, contextText)

	answer, err := p.generate(ctx, promptText)
	if err != nil {
		return nil, err
	}

	sources := make([]Source, len(included))
	for i, r := range included {
		sources[i] = Source{ID: r.ID, Score: r.Score, SequenceIndex: r.Metadata.SequenceIndex}
	}

	p.logger.Printf("[PIPELINE] Answer generated from %d chunks", len(included))

	return &Result{
		Answer:    answer,
		Sources:   sources,
		Retrieved: len(hits),
		NoContext: len(included) == 0,
	}, nil
}

func (p *PipelineExecutor) embed(ctx context.Context, question string) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "rag.embed_query")
	defer span.End()

	vector, err := p.search.Embed(ctx, question)
	if err != nil {
		endWithError(span, err)
		p.logger.Printf("[ERROR] Query embedding failed: %v", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("rag.vector_dimension", len(vector)))
	return vector, nil
}

func (p *PipelineExecutor) retrieve(ctx context.Context, vector []float32, cfg search.Config) ([]store.ScoredRecord, error) {
	ctx, span := tracer.Start(ctx, "rag.index_query", trace.WithAttributes(
		attribute.Int("rag.top_k", cfg.TopK),
		attribute.String("rag.source_doc_id", cfg.Filter.SourceDocID),
	))
	defer span.End()

	hits, err := p.search.Search(ctx, vector, cfg)
	if err != nil {
		err = classifyCancel(apperror.KindIndexUnavailable, "index_query", err)
		endWithError(span, err)
		p.logger.Printf("[ERROR] Vector search failed: %v", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("rag.hits", len(hits)))
	return hits, nil
}

func (p *PipelineExecutor) generate(ctx context.Context, promptText string) (string, error) {
	ctx, span := tracer.Start(ctx, "rag.generate")
	defer span.End()

	answer, err := retry.Do(ctx, p.policy, func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
		defer cancel()

		out, err := p.generator.Generate(callCtx, promptText,
			llm.WithTemperature(p.cfg.Temperature),
			llm.WithMaxTokens(p.cfg.MaxTokens),
		)
		if err != nil {
			if ctx.Err() != nil {
				return "", classifyCancel(apperror.KindGeneration, "generate", ctx.Err())
			}
			return "", apperror.Generation("generate", err)
		}
		return out, nil
	}, func(err error, wait time.Duration) {
		p.logger.Printf("[WARN] generate failed, retrying in %s: %v", wait, err)
	})
	if err != nil {
		err = classifyCancel(apperror.KindGeneration, "generate", err)
		endWithError(span, err)
		p.logger.Printf("[ERROR] Generation failed: %v", err)
		return "", err
	}
	return answer, nil
}

// classifyCancel gives an unclassified cancellation or deadline the kind of
// the stage it interrupted. It is never retried.
func classifyCancel(kind apperror.Kind, op string, err error) error {
	if apperror.KindOf(err) != apperror.KindInternal {
		return err
	}
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &apperror.Error{Kind: kind, Op: op, Message: "request cancelled before completion", Err: err, Permanent: true}
}

func endWithError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(apperror.KindOf(err)))
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
