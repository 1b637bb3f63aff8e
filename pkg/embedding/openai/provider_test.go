package openai

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

func TestGenerateBatch(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":1,"embedding":[0.0,2.0]},
			{"object":"embedding","index":0,"embedding":[3.0,0.0]}
		]}`))
	}))
	defer srv.Close()

	p := NewProvider("key", srv.URL, "text-embedding-3-small", 2)
	res, err := p.GenerateBatch(context.Background(), []string{"uno", "dos"}, embedding.TaskDocument)
	require.NoError(t, err)

	require.Len(t, res, 2)
	assert.Equal(t, []float32{3, 0}, res[0].Embedding.Values)
	assert.Equal(t, []float32{0, 2}, res[1].Embedding.Values)
	assert.EqualValues(t, 2, body["dimensions"])
}

func TestGenerateSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	p := NewProvider("key", srv.URL, "", 0)
	_, err := p.Generate(context.Background(), "hola", embedding.TaskQuery)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai embeddings")
}
