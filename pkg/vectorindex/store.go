// Package vectorindex stores chunk vectors in named namespaces and answers
// nearest-neighbour queries over them.
//
// Store is the backend contract. Index wraps a Store with the client-side
// policy every caller needs: a fixed namespace spec, input checks, batching,
// timeouts and result validation.
package vectorindex

import (
	"context"
	"math"

	"cv-rag/pkg/apperror"
	"cv-rag/pkg/store"
)

type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricDot    Metric = "dot"
)

func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricCosine, "":
		return MetricCosine, nil
	case MetricDot:
		return MetricDot, nil
	}
	return "", apperror.Configuration("vectorindex", "unknown metric %q (want cosine or dot)", s)
}

// NamespaceSpec fixes the vector shape of a namespace at creation time.
type NamespaceSpec struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    Metric `json:"metric"`
}

func (s NamespaceSpec) Validate() error {
	if s.Name == "" {
		return apperror.Configuration("vectorindex", "namespace name is required")
	}
	if s.Dimension <= 0 {
		return apperror.Configuration("vectorindex", "namespace %q: dimension must be positive, got %d", s.Name, s.Dimension)
	}
	if _, err := ParseMetric(string(s.Metric)); err != nil {
		return err
	}
	return nil
}

// Conflict reports a NamespaceConflictError if existing differs from s.
func (s NamespaceSpec) Conflict(existing NamespaceSpec) error {
	if existing.Dimension != s.Dimension || existing.Metric != s.Metric {
		return apperror.NamespaceConflict("vectorindex",
			"namespace %q exists with dimension %d and metric %s, requested dimension %d and metric %s",
			s.Name, existing.Dimension, existing.Metric, s.Dimension, s.Metric)
	}
	return nil
}

// Filter narrows a query. The zero value matches everything.
type Filter struct {
	SourceDocID string
}

func (f Filter) Match(m store.RecordMetadata) bool {
	return f.SourceDocID == "" || m.SourceDocID == f.SourceDocID
}

// Store is implemented by vector backends. Namespaces are explicit on every
// call; a Store may hold many.
type Store interface {
	// EnsureNamespace creates the namespace or verifies that it already
	// exists with the same dimension and metric.
	EnsureNamespace(ctx context.Context, spec NamespaceSpec) error
	// Upsert inserts or overwrites records by id. The namespace must exist.
	Upsert(ctx context.Context, namespace string, records []store.IndexRecord) error
	// Query returns at most topK records, most similar first. An absent or
	// empty namespace yields no results and no error.
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter Filter) ([]store.ScoredRecord, error)
	// DeleteNamespace removes a namespace and its records. Missing is fine.
	DeleteNamespace(ctx context.Context, namespace string) error
	Count(ctx context.Context, namespace string) (int, error)
	// DeleteStale removes records of sourceDocID whose ids are not in keep.
	DeleteStale(ctx context.Context, namespace, sourceDocID string, keep []string) (int, error)
}

// Similarity scores a against b under metric. Higher is more similar.
// Cosine of a zero vector is 0.
func Similarity(metric Metric, a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if metric == MetricDot {
		return dot
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
