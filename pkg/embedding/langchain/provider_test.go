package langchain

import (
	"context"
	"errors"
	"testing"

	"cv-rag/pkg/embedding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	queries int
	docs    int
	err     error
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.docs++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, float32(len(text))}, nil
}

func TestGenerateRoutesByTask(t *testing.T) {
	fe := &fakeEmbedder{}
	p := NewProvider(fe)

	q, err := p.Generate(context.Background(), "abc", embedding.TaskQuery)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 3}, q.Embedding.Values)

	d, err := p.Generate(context.Background(), "abc", embedding.TaskDocument)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 1}, d.Embedding.Values)

	assert.Equal(t, 1, fe.queries)
	assert.Equal(t, 1, fe.docs)
}

func TestGenerateBatch(t *testing.T) {
	p := NewProvider(&fakeEmbedder{})
	res, err := p.GenerateBatch(context.Background(), []string{"a", "bb"}, embedding.TaskDocument)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, []float32{2, 1}, res[1].Embedding.Values)
}

func TestGeneratePropagatesErrors(t *testing.T) {
	p := NewProvider(&fakeEmbedder{err: errors.New("connection refused")})
	_, err := p.Generate(context.Background(), "a", embedding.TaskQuery)
	assert.EqualError(t, err, "connection refused")
}
