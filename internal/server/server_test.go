package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"cv-rag/internal/bootstrap"
	"cv-rag/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("EMBEDDING_PROVIDER", "hashing")
	t.Setenv("EMBEDDING_DIMENSION", "32")
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("VECTOR_STORE_BACKEND", "memory")
	t.Setenv("REDIS_URL", "")
	t.Setenv("NATS_URL", "")
	t.Setenv("OBJECT_STORAGE_ENDPOINT", "")
	t.Setenv("LOG_FILE_PATH", filepath.Join(t.TempDir(), "cv-rag.log"))

	cfg := config.Load()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestServerRoutes(t *testing.T) {
	cfg := testConfig(t)
	container, err := bootstrap.NewContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(container.Close)

	app := New(cfg, container).GetApp()

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"stats", http.MethodGet, "/api/namespace/stats", http.StatusOK},
		{"history", http.MethodGet, "/api/history", http.StatusOK},
		{"unknown route", http.MethodGet, "/api/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(tt.method, tt.path, nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(raw, &body), string(raw))
			assert.Equal(t, tt.status == http.StatusOK, body["success"])
		})
	}
}
