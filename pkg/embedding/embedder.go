package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"cv-rag/pkg/apperror"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// BatchItemError locates a failure inside EmbedBatch. Count > 1 means a
// whole provider batch starting at Index failed together.
type BatchItemError struct {
	Index int
	Count int
	Err   error
}

func (e *BatchItemError) Error() string {
	if e.Count > 1 {
		return fmt.Sprintf("embed batch items %d-%d: %v", e.Index, e.Index+e.Count-1, e.Err)
	}
	return fmt.Sprintf("embed batch item %d: %v", e.Index, e.Err)
}

func (e *BatchItemError) Unwrap() error { return e.Err }

type Options struct {
	// Dimension every vector must have. Required.
	Dimension int
	// MaxInputChars rejects longer inputs instead of truncating. 0 disables.
	MaxInputChars int
	// Timeout bounds each provider call.
	Timeout time.Duration
	// Concurrency bounds parallel provider calls in EmbedBatch.
	Concurrency int
	// RateLimit in provider calls per second. 0 means unlimited.
	RateLimit float64
	// BatchSize is the number of inputs per call for batch-capable providers.
	BatchSize int
	// CacheTTL for memoized vectors; <= 0 keeps them for the process lifetime.
	CacheTTL time.Duration
}

func DefaultOptions(dimension int) Options {
	return Options{
		Dimension:   dimension,
		Timeout:     30 * time.Second,
		Concurrency: 4,
		BatchSize:   32,
	}
}

// Embedder turns text into unit-length vectors of a fixed dimension.
type Embedder struct {
	provider EmbeddingProvider
	opts     Options
	cache    *Cache
	limiter  *rate.Limiter
}

func NewEmbedder(provider EmbeddingProvider, opts Options) (*Embedder, error) {
	if provider == nil {
		return nil, apperror.Configuration("embedder", "embedding provider is required")
	}
	if opts.Dimension <= 0 {
		return nil, apperror.Configuration("embedder", "dimension must be positive, got %d", opts.Dimension)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &Embedder{
		provider: provider,
		opts:     opts,
		cache:    NewCache(opts.CacheTTL),
		limiter:  rate.NewLimiter(limit, opts.Concurrency),
	}, nil
}

func (e *Embedder) Dimension() int { return e.opts.Dimension }

// CacheLen reports how many vectors are memoized.
func (e *Embedder) CacheLen() int { return e.cache.Len() }

// Embed embeds a document chunk.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.embedOne(ctx, text, TaskDocument)
}

// EmbedQuery embeds a question. It differs from Embed only in the task hint.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embedOne(ctx, text, TaskQuery)
}

// EmbedBatch embeds texts as documents, preserving order. The result is the
// same as calling Embed for each element.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for i, t := range texts {
		if err := e.checkInput(t); err != nil {
			return nil, &BatchItemError{Index: i, Count: 1, Err: err}
		}
	}

	out := make([][]float32, len(texts))
	var missing []int
	for i, t := range texts {
		if v, ok := e.cache.Get(TaskDocument, t); ok {
			out[i] = v
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	if bp, ok := e.provider.(BatchEmbeddingProvider); ok {
		for start := 0; start < len(missing); start += e.opts.BatchSize {
			end := start + e.opts.BatchSize
			if end > len(missing) {
				end = len(missing)
			}
			idx := missing[start:end]
			g.Go(func() error {
				return e.embedGroup(gctx, bp, texts, idx, out)
			})
		}
	} else {
		for _, i := range missing {
			g.Go(func() error {
				v, err := e.embedOne(gctx, texts[i], TaskDocument)
				if err != nil {
					return &BatchItemError{Index: i, Count: 1, Err: err}
				}
				out[i] = v
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Embedder) embedGroup(ctx context.Context, bp BatchEmbeddingProvider, texts []string, idx []int, out [][]float32) error {
	inputs := make([]string, len(idx))
	for k, i := range idx {
		inputs[k] = texts[i]
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return apperror.Embedding("embedding.batch", err)
	}
	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	res, err := bp.GenerateBatch(callCtx, inputs, TaskDocument)
	if err != nil {
		return &BatchItemError{Index: idx[0], Count: len(idx), Err: apperror.Embedding("embedding.batch", err)}
	}
	if len(res) != len(inputs) {
		err := fmt.Errorf("provider returned %d vectors for %d inputs", len(res), len(inputs))
		return &BatchItemError{Index: idx[0], Count: len(idx), Err: apperror.Embedding("embedding.batch", err)}
	}

	for k, i := range idx {
		v, err := e.finalize(res[k].Embedding.Values)
		if err != nil {
			return &BatchItemError{Index: i, Count: 1, Err: err}
		}
		e.cache.Set(TaskDocument, texts[i], v)
		out[i] = v
	}
	return nil
}

func (e *Embedder) embedOne(ctx context.Context, text, task string) ([]float32, error) {
	if err := e.checkInput(text); err != nil {
		return nil, err
	}
	if v, ok := e.cache.Get(task, text); ok {
		return v, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, apperror.Embedding("embedding.generate", err)
	}
	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	res, err := e.provider.Generate(callCtx, text, task)
	if err != nil {
		return nil, apperror.Embedding("embedding.generate", err)
	}
	if res == nil {
		return nil, apperror.Embedding("embedding.generate", errors.New("provider returned no embedding"))
	}

	v, err := e.finalize(res.Embedding.Values)
	if err != nil {
		return nil, err
	}
	e.cache.Set(task, text, v)
	return v, nil
}

func (e *Embedder) checkInput(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperror.Validation("embedding", "text to embed must not be empty")
	}
	if e.opts.MaxInputChars > 0 {
		if n := utf8.RuneCountInString(text); n > e.opts.MaxInputChars {
			return &apperror.Error{
				Kind:      apperror.KindEmbedding,
				Op:        "embedding",
				Message:   fmt.Sprintf("input has %d characters, model limit is %d; reduce the chunk size", n, e.opts.MaxInputChars),
				Permanent: true,
			}
		}
	}
	return nil
}

func (e *Embedder) finalize(values []float32) ([]float32, error) {
	if len(values) == 0 {
		return nil, apperror.Embedding("embedding", errors.New("provider returned an empty vector"))
	}
	if len(values) != e.opts.Dimension {
		return nil, apperror.Configuration("embedding", "model produced %d-dimensional vectors but %d is configured", len(values), e.opts.Dimension)
	}
	if !finite(values) {
		return nil, apperror.Embedding("embedding", errors.New("provider returned non-finite values"))
	}
	return normalizeVector(values), nil
}
