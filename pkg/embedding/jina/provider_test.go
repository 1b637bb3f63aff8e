package jina

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cv-rag/pkg/embedding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBatchRestoresInputOrder(t *testing.T) {
	var got embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}
		]}`))
	}))
	defer srv.Close()

	p := NewJinaProvider("secret", WithBaseURL(srv.URL), WithModel("jina-embeddings-v3"), WithDimensions(2))
	res, err := p.GenerateBatch(context.Background(), []string{"a", "b"}, embedding.TaskQuery)
	require.NoError(t, err)

	require.Len(t, res, 2)
	assert.Equal(t, []float32{1, 0}, res[0].Embedding.Values)
	assert.Equal(t, []float32{0, 1}, res[1].Embedding.Values)
	assert.Equal(t, "retrieval.query", got.Task)
	assert.Equal(t, 2, got.Dimensions)
}

func TestGenerateReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"detail":"rate limited"}`))
	}))
	defer srv.Close()

	p := NewJinaProvider("secret", WithBaseURL(srv.URL))
	_, err := p.Generate(context.Background(), "hola", embedding.TaskDocument)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestGenerateRejectsShortResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	p := NewJinaProvider("secret", WithBaseURL(srv.URL))
	_, err := p.Generate(context.Background(), "hola", embedding.TaskDocument)
	require.Error(t, err)
}
