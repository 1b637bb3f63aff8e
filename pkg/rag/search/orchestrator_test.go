package search

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"cv-rag/pkg/apperror"
	"cv-rag/pkg/retry"
	"cv-rag/pkg/store"
	"cv-rag/pkg/vectorindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyEmbedder struct {
	failures int
	calls    int
}

func (f *flakyEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, apperror.Embedding("embed", errors.New("timeout"))
	}
	return []float32{1, 0}, nil
}

type fixedSearcher struct {
	hits  []store.ScoredRecord
	err   error
	calls int
}

func (s *fixedSearcher) Query(ctx context.Context, v []float32, topK int, f vectorindex.Filter) ([]store.ScoredRecord, error) {
	s.calls++
	return s.hits, s.err
}

var fastPolicy = retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

func TestExecuteRetriesEmbedding(t *testing.T) {
	fe := &flakyEmbedder{failures: 2}
	fs := &fixedSearcher{hits: []store.ScoredRecord{{ID: "a", Score: 0.8}}}
	o := NewOrchestrator(fe, fs, fastPolicy, log.New(io.Discard, "", 0))

	hits, err := o.Execute(context.Background(), "¿Qué estudió?", DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, 3, fe.calls)
}

func TestSearchDoesNotRetryConfigurationErrors(t *testing.T) {
	fs := &fixedSearcher{err: apperror.Configuration("index.query", "topK must be positive")}
	o := NewOrchestrator(&flakyEmbedder{}, fs, fastPolicy, log.New(io.Discard, "", 0))

	_, err := o.Search(context.Background(), []float32{1, 0}, Config{TopK: 0})
	assert.True(t, errors.Is(err, apperror.ErrConfiguration))
	assert.Equal(t, 1, fs.calls)
}

func TestSearchFiltersAndDedupes(t *testing.T) {
	fs := &fixedSearcher{hits: []store.ScoredRecord{
		{ID: "a", Score: 0.9}, {ID: "a", Score: 0.9}, {ID: "b", Score: 0.5}, {ID: "c", Score: 0.1},
	}}
	o := NewOrchestrator(&flakyEmbedder{}, fs, fastPolicy, log.New(io.Discard, "", 0))

	hits, err := o.Search(context.Background(), []float32{1, 0}, Config{TopK: 4, MinScore: 0.3})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "b", hits[1].ID)
}
