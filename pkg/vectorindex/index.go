package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"cv-rag/pkg/apperror"
	"cv-rag/pkg/store"
)

const DefaultBatchSize = 100

type Options struct {
	// BatchSize caps records per backend upsert call.
	BatchSize int
	// Timeout bounds each backend call.
	Timeout time.Duration
	// Cloud and Region describe where the backend runs, for Stats only.
	Cloud  string
	Region string
	// Backend names the Store implementation, for Stats only.
	Backend string
}

// Stats describes the bound namespace.
type Stats struct {
	Namespace string `json:"namespace"`
	Backend   string `json:"backend"`
	Dimension int    `json:"dimension"`
	Metric    Metric `json:"metric"`
	Records   int    `json:"records"`
	Cloud     string `json:"cloud,omitempty"`
	Region    string `json:"region,omitempty"`
}

// Index is a Store client bound to one namespace spec.
type Index struct {
	store Store
	spec  NamespaceSpec
	opts  Options
}

func NewIndex(s Store, spec NamespaceSpec, opts Options) (*Index, error) {
	if s == nil {
		return nil, apperror.Configuration("vectorindex", "a store backend is required")
	}
	if spec.Metric == "" {
		spec.Metric = MetricCosine
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Index{store: s, spec: spec, opts: opts}, nil
}

func (ix *Index) Spec() NamespaceSpec { return ix.spec }

func (ix *Index) EnsureNamespace(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ix.opts.Timeout)
	defer cancel()
	return ix.classify("index.ensure_namespace", ix.store.EnsureNamespace(ctx, ix.spec))
}

// Upsert writes records in batches after checking every vector. Duplicate
// ids within one call collapse to the last occurrence.
func (ix *Index) Upsert(ctx context.Context, records []store.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if err := ix.checkRecord(r); err != nil {
			return err
		}
	}
	if err := ix.EnsureNamespace(ctx); err != nil {
		return err
	}

	records = dedupe(records)
	for start := 0; start < len(records); start += ix.opts.BatchSize {
		end := start + ix.opts.BatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		err := ix.call(ctx, "index.upsert", func(ctx context.Context) error {
			return ix.store.Upsert(ctx, ix.spec.Name, batch)
		})
		if err != nil {
			return fmt.Errorf("upsert chunks %s..%s: %w", batch[0].ID, batch[len(batch)-1].ID, err)
		}
	}
	return nil
}

// Query returns at most topK records in descending score order.
func (ix *Index) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]store.ScoredRecord, error) {
	if topK <= 0 {
		return nil, apperror.Configuration("index.query", "topK must be positive, got %d", topK)
	}
	if len(vector) != ix.spec.Dimension {
		return nil, apperror.Configuration("index.query", "query vector has dimension %d, namespace %q expects %d", len(vector), ix.spec.Name, ix.spec.Dimension)
	}

	var results []store.ScoredRecord
	err := ix.call(ctx, "index.query", func(ctx context.Context) error {
		var err error
		results, err = ix.store.Query(ctx, ix.spec.Name, vector, topK, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return validateResults(results, topK)
}

func (ix *Index) DeleteNamespace(ctx context.Context) error {
	return ix.call(ctx, "index.delete_namespace", func(ctx context.Context) error {
		return ix.store.DeleteNamespace(ctx, ix.spec.Name)
	})
}

func (ix *Index) Stats(ctx context.Context) (Stats, error) {
	var n int
	err := ix.call(ctx, "index.stats", func(ctx context.Context) error {
		var err error
		n, err = ix.store.Count(ctx, ix.spec.Name)
		return err
	})
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Namespace: ix.spec.Name,
		Backend:   ix.opts.Backend,
		Dimension: ix.spec.Dimension,
		Metric:    ix.spec.Metric,
		Records:   n,
		Cloud:     ix.opts.Cloud,
		Region:    ix.opts.Region,
	}, nil
}

// Prune removes records of sourceDocID that are not in keep, i.e. chunks a
// shorter re-ingestion of the document no longer produces.
func (ix *Index) Prune(ctx context.Context, sourceDocID string, keep []string) (int, error) {
	if sourceDocID == "" {
		return 0, apperror.Validation("index.prune", "source document id is required")
	}
	var n int
	err := ix.call(ctx, "index.prune", func(ctx context.Context) error {
		var err error
		n, err = ix.store.DeleteStale(ctx, ix.spec.Name, sourceDocID, keep)
		return err
	})
	return n, err
}

func (ix *Index) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, ix.opts.Timeout)
	defer cancel()
	return ix.classify(op, fn(ctx))
}

// classify maps backend failures to IndexUnavailable unless the backend
// already chose a kind. Caller cancellation is passed through untouched.
func (ix *Index) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) && apperror.KindOf(err) == apperror.KindInternal {
		return err
	}
	return apperror.IndexUnavailable(op, err)
}

func (ix *Index) checkRecord(r store.IndexRecord) error {
	if r.ID == "" {
		return apperror.Validation("index.upsert", "record id must not be empty")
	}
	if len(r.Vector) != ix.spec.Dimension {
		return apperror.Configuration("index.upsert", "chunk %s has dimension %d, namespace %q expects %d", r.ID, len(r.Vector), ix.spec.Name, ix.spec.Dimension)
	}
	for _, v := range r.Vector {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return apperror.Validation("index.upsert", "chunk %s has a non-finite vector component", r.ID)
		}
	}
	return nil
}

func dedupe(records []store.IndexRecord) []store.IndexRecord {
	last := make(map[string]int, len(records))
	for i, r := range records {
		last[r.ID] = i
	}
	if len(last) == len(records) {
		return records
	}
	out := make([]store.IndexRecord, 0, len(last))
	for i, r := range records {
		if last[r.ID] == i {
			out = append(out, r)
		}
	}
	return out
}

func validateResults(results []store.ScoredRecord, topK int) ([]store.ScoredRecord, error) {
	for i, r := range results {
		if r.ID == "" {
			return nil, apperror.IndexUnavailable("index.query", fmt.Errorf("malformed result %d: empty id", i))
		}
		if math.IsNaN(r.Score) || math.IsInf(r.Score, 0) {
			return nil, apperror.IndexUnavailable("index.query", fmt.Errorf("malformed result %s: score %v", r.ID, r.Score))
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	if results == nil {
		results = []store.ScoredRecord{}
	}
	return results, nil
}
