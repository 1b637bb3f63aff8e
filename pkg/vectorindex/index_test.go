package vectorindex_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"cv-rag/pkg/apperror"
	"cv-rag/pkg/store"
	"cv-rag/pkg/vectorindex"
	"cv-rag/pkg/vectorindex/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	*memory.Store
	upserts  [][]store.IndexRecord
	queries  int
	results  []store.ScoredRecord
	queryErr error
}

func (c *countingStore) Upsert(ctx context.Context, ns string, records []store.IndexRecord) error {
	c.upserts = append(c.upserts, records)
	return c.Store.Upsert(ctx, ns, records)
}

func (c *countingStore) Query(ctx context.Context, ns string, v []float32, topK int, f vectorindex.Filter) ([]store.ScoredRecord, error) {
	c.queries++
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	if c.results != nil {
		return c.results, nil
	}
	return c.Store.Query(ctx, ns, v, topK, f)
}

func newIndex(t *testing.T, s vectorindex.Store, batch int) *vectorindex.Index {
	t.Helper()
	ix, err := vectorindex.NewIndex(s, vectorindex.NamespaceSpec{Name: "cv", Dimension: 2}, vectorindex.Options{BatchSize: batch, Timeout: time.Second, Backend: "memory"})
	require.NoError(t, err)
	return ix
}

func rec(id string, vec ...float32) store.IndexRecord {
	return store.IndexRecord{ID: id, Vector: vec, Metadata: store.RecordMetadata{SourceDocID: "cv", Text: id}}
}

func TestQueryRejectsNonPositiveTopKBeforeBackend(t *testing.T) {
	cs := &countingStore{Store: memory.NewStore()}
	ix := newIndex(t, cs, 0)

	for _, k := range []int{0, -1} {
		_, err := ix.Query(context.Background(), []float32{1, 0}, k, vectorindex.Filter{})
		assert.True(t, errors.Is(err, apperror.ErrConfiguration), "topK=%d", k)
	}
	assert.Zero(t, cs.queries)
}

func TestQueryRejectsWrongDimension(t *testing.T) {
	ix := newIndex(t, memory.NewStore(), 0)
	_, err := ix.Query(context.Background(), []float32{1, 0, 0}, 3, vectorindex.Filter{})
	assert.True(t, errors.Is(err, apperror.ErrConfiguration))
}

func TestEmptyNamespaceQueryReturnsEmpty(t *testing.T) {
	ix := newIndex(t, memory.NewStore(), 0)
	require.NoError(t, ix.EnsureNamespace(context.Background()))

	got, err := ix.Query(context.Background(), []float32{1, 0}, 3, vectorindex.Filter{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestUpsertBatchesAndDedupes(t *testing.T) {
	cs := &countingStore{Store: memory.NewStore()}
	ix := newIndex(t, cs, 2)
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, []store.IndexRecord{
		rec("a", 1, 0), rec("b", 0, 1), rec("a", 0, 1), rec("c", 1, 1), rec("d", 1, 0),
	}))

	require.Len(t, cs.upserts, 2)
	assert.Len(t, cs.upserts[0], 2)
	assert.Len(t, cs.upserts[1], 2)

	stats, err := ix.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Records)
	assert.Equal(t, vectorindex.MetricCosine, stats.Metric)

	got, err := ix.Query(ctx, []float32{0, 1}, 1, vectorindex.Filter{})
	require.NoError(t, err)
	assert.Contains(t, []string{"a", "b"}, got[0].ID, "the later duplicate of a wins")
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
}

func TestUpsertOverwriteKeepsCount(t *testing.T) {
	ix := newIndex(t, memory.NewStore(), 0)
	ctx := context.Background()

	require.NoError(t, ix.Upsert(ctx, []store.IndexRecord{rec("a", 1, 0)}))
	require.NoError(t, ix.Upsert(ctx, []store.IndexRecord{rec("a", 0, 1)}))

	stats, err := ix.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Records)

	got, err := ix.Query(ctx, []float32{0, 1}, 3, vectorindex.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
}

func TestUpsertNamesBadChunk(t *testing.T) {
	ix := newIndex(t, memory.NewStore(), 0)
	err := ix.Upsert(context.Background(), []store.IndexRecord{rec("cv#chunk_0003", 1, 0, 0)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrConfiguration))
	assert.Contains(t, err.Error(), "cv#chunk_0003")

	err = ix.Upsert(context.Background(), []store.IndexRecord{rec("x", float32(math.Inf(1)), 0)})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestNamespaceConflictSurfaces(t *testing.T) {
	ms := memory.NewStore()
	require.NoError(t, ms.EnsureNamespace(context.Background(), vectorindex.NamespaceSpec{Name: "cv", Dimension: 3, Metric: vectorindex.MetricCosine}))

	ix := newIndex(t, ms, 0)
	err := ix.Upsert(context.Background(), []store.IndexRecord{rec("a", 1, 0)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNamespaceConflict))
	assert.False(t, apperror.IsRetryable(err))
}

func TestQueryValidatesAndReordersResults(t *testing.T) {
	cs := &countingStore{Store: memory.NewStore(), results: []store.ScoredRecord{
		{ID: "low", Score: 0.1}, {ID: "high", Score: 0.9}, {ID: "mid", Score: 0.5}, {ID: "extra", Score: 0.05},
	}}
	ix := newIndex(t, cs, 0)

	got, err := ix.Query(context.Background(), []float32{1, 0}, 3, vectorindex.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"high", "mid", "low"}, []string{got[0].ID, got[1].ID, got[2].ID})

	for _, bad := range []store.ScoredRecord{{ID: "", Score: 1}, {ID: "nan", Score: math.NaN()}} {
		cs.results = []store.ScoredRecord{bad}
		_, err := ix.Query(context.Background(), []float32{1, 0}, 3, vectorindex.Filter{})
		assert.True(t, errors.Is(err, apperror.ErrIndexUnavailable))
	}
}

func TestBackendFailuresAreRetryable(t *testing.T) {
	cs := &countingStore{Store: memory.NewStore(), queryErr: errors.New("dial tcp 127.0.0.1:5432: connection refused")}
	ix := newIndex(t, cs, 0)

	_, err := ix.Query(context.Background(), []float32{1, 0}, 3, vectorindex.Filter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrIndexUnavailable))
	assert.True(t, apperror.IsRetryable(err))
}

func TestPruneAndDeleteNamespace(t *testing.T) {
	ix := newIndex(t, memory.NewStore(), 0)
	ctx := context.Background()
	require.NoError(t, ix.Upsert(ctx, []store.IndexRecord{rec("a", 1, 0), rec("b", 1, 0), rec("c", 1, 0)}))

	n, err := ix.Prune(ctx, "cv", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = ix.Prune(ctx, "", nil)
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	require.NoError(t, ix.DeleteNamespace(ctx))
	require.NoError(t, ix.DeleteNamespace(ctx))
	stats, err := ix.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Records)
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 0.0, vectorindex.Similarity(vectorindex.MetricCosine, []float32{0, 0}, []float32{1, 0}), 1e-12)
	assert.InDelta(t, 1.0, vectorindex.Similarity(vectorindex.MetricCosine, []float32{2, 0}, []float32{1, 0}), 1e-12)
	assert.InDelta(t, 2.0, vectorindex.Similarity(vectorindex.MetricDot, []float32{2, 0}, []float32{1, 0}), 1e-12)
}
