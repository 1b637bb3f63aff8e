package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cv-rag/internal/pkg/logger"
	"cv-rag/internal/pkg/serverutils"
	"cv-rag/internal/repository/memory"
	"cv-rag/internal/service"
	"cv-rag/pkg/chunker"
	"cv-rag/pkg/embedding"
	"cv-rag/pkg/events"
	"cv-rag/pkg/llm"
	"cv-rag/pkg/rag/executor"
	"cv-rag/pkg/rag/prompt"
	"cv-rag/pkg/rag/search"
	"cv-rag/pkg/retry"
	"cv-rag/pkg/vectorindex"
	vmemory "cv-rag/pkg/vectorindex/memory"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dim = 64

type cannedGenerator struct{ prompts []string }

func (g *cannedGenerator) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return g.Generate(ctx, history[len(history)-1].Content, options...)
}

func (g *cannedGenerator) Generate(_ context.Context, p string, _ ...llm.Option) (string, error) {
	g.prompts = append(g.prompts, p)
	if strings.Contains(p, prompt.NoContextMarker) {
		return "No tengo información sobre eso.", nil
	}
	return "Estudió una Maestría en IA.", nil
}

func newTestApp(t *testing.T) (*fiber.App, *cannedGenerator) {
	t.Helper()
	nop := logger.NewNopLogger()
	stdLogger := log.New(io.Discard, "", 0)
	policy := retry.Policy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

	emb, err := embedding.NewEmbedder(embedding.NewHashingProvider(dim), embedding.DefaultOptions(dim))
	require.NoError(t, err)
	ix, err := vectorindex.NewIndex(vmemory.NewStore(), vectorindex.NamespaceSpec{Name: "cv-rag", Dimension: dim}, vectorindex.Options{Backend: "memory"})
	require.NoError(t, err)
	chk, err := chunker.New(chunker.Options{Strategy: chunker.StrategySentenceGrouped, ChunkSize: 80})
	require.NoError(t, err)

	gen := &cannedGenerator{}
	pipeline := executor.NewPipelineExecutor(
		search.NewOrchestrator(emb, ix, policy, stdLogger),
		prompt.NewBuilder("", 2000),
		gen, policy, executor.DefaultConfig(), stdLogger,
	)

	history := memory.NewHistoryRepository(50)
	jobs := memory.NewIngestJobRepository()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	ingestion := service.NewIngestionService(chk, emb, ix, nil, events.NopPublisher{}, policy, nop)
	consumer := service.NewConsumerService(pubSub, "INGEST_DOCUMENT", ingestion, jobs, nop)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, consumer.Consume(ctx))

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewDocumentController(ingestion, service.NewPublisherService("INGEST_DOCUMENT", pubSub, jobs)).RegisterRoutes(api)
	NewAnswerController(service.NewAnswerService(pipeline, history, nop)).RegisterRoutes(api)
	NewNamespaceController(service.NewNamespaceService(ix, events.NopPublisher{}, nop)).RegisterRoutes(api)
	return app, gen
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func call(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

const cv = "Juan Pérez. Ingeniero de datos. Maestría en Inteligencia Artificial en la UBA. Experiencia con Go y Python."

func TestIngestAndAnswerFlow(t *testing.T) {
	app, gen := newTestApp(t)

	status, env := call(t, app, http.MethodPost, "/api/documents", map[string]string{"documentId": "cv", "text": cv})
	require.Equal(t, http.StatusOK, status)
	var ingest struct {
		DocumentId string `json:"documentId"`
		Chunks     int    `json:"chunks"`
		Strategy   string `json:"strategy"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ingest))
	assert.Equal(t, "cv", ingest.DocumentId)
	assert.Equal(t, "SENTENCE_GROUPED", ingest.Strategy)
	assert.Greater(t, ingest.Chunks, 0)

	status, env = call(t, app, http.MethodPost, "/api/answer", map[string]string{"question": "¿Qué maestría estudió?"})
	require.Equal(t, http.StatusOK, status)

	var answer map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &answer))
	assert.Equal(t, "Estudió una Maestría en IA.", answer["answer"])
	sources := answer["sources"].([]interface{})
	require.NotEmpty(t, sources)
	first := sources[0].(map[string]interface{})
	assert.Contains(t, first, "id")
	assert.Contains(t, first, "score")
	assert.Contains(t, first, "sequenceIndex")
	assert.Contains(t, gen.prompts[0], "[Chunk ")

	status, env = call(t, app, http.MethodGet, "/api/history?limit=5", nil)
	require.Equal(t, http.StatusOK, status)
	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "¿Qué maestría estudió?", entries[0]["question"])

	status, _ = call(t, app, http.MethodDelete, "/api/history/"+entries[0]["id"].(string), nil)
	assert.Equal(t, http.StatusOK, status)
	status, env = call(t, app, http.MethodDelete, "/api/history/"+entries[0]["id"].(string), nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Kind)
}

func TestAnswerWithEmptyIndex(t *testing.T) {
	app, gen := newTestApp(t)

	status, env := call(t, app, http.MethodPost, "/api/answer", map[string]string{"question": "¿Dónde trabaja?"})
	require.Equal(t, http.StatusOK, status)

	var answer struct {
		NoContext bool          `json:"noContext"`
		Sources   []interface{} `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &answer))
	assert.True(t, answer.NoContext)
	assert.Empty(t, answer.Sources)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], prompt.NoContextMarker)
}

func TestValidationErrors(t *testing.T) {
	app, gen := newTestApp(t)

	tests := []struct {
		name string
		path string
		body interface{}
	}{
		{"missing question", "/api/answer", map[string]string{}},
		{"empty document", "/api/documents", map[string]string{"documentId": "cv"}},
		{"whitespace question", "/api/answer", map[string]string{"question": "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := call(t, app, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, env.Success)
			assert.Equal(t, "VALIDATION", env.Error.Kind)
		})
	}
	assert.Empty(t, gen.prompts)
}

func TestAsyncIngestion(t *testing.T) {
	app, _ := newTestApp(t)

	status, env := call(t, app, http.MethodPost, "/api/documents?async=true", map[string]string{"documentId": "cv", "text": cv})
	require.Equal(t, http.StatusAccepted, status)

	var job struct {
		JobId  string `json:"jobId"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &job))
	require.NotEmpty(t, job.JobId)

	require.Eventually(t, func() bool {
		status, env := call(t, app, http.MethodGet, "/api/documents/jobs/"+job.JobId, nil)
		if status != http.StatusOK {
			return false
		}
		var current struct {
			Status string `json:"status"`
		}
		_ = json.Unmarshal(env.Data, &current)
		return current.Status == "SUCCEEDED"
	}, 2*time.Second, 10*time.Millisecond)

	status, _ = call(t, app, http.MethodGet, "/api/documents/jobs/unknown", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestNamespaceStatsAndReset(t *testing.T) {
	app, _ := newTestApp(t)
	status, _ := call(t, app, http.MethodPost, "/api/documents", map[string]string{"documentId": "cv", "text": cv})
	require.Equal(t, http.StatusOK, status)

	status, env := call(t, app, http.MethodGet, "/api/namespace/stats", nil)
	require.Equal(t, http.StatusOK, status)
	var stats struct {
		Namespace string `json:"namespace"`
		Records   int    `json:"records"`
		Dimension int    `json:"dimension"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, "cv-rag", stats.Namespace)
	assert.Equal(t, dim, stats.Dimension)
	assert.Greater(t, stats.Records, 0)

	status, _ = call(t, app, http.MethodDelete, "/api/namespace", nil)
	require.Equal(t, http.StatusOK, status)

	_, env = call(t, app, http.MethodGet, "/api/namespace/stats", nil)
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 0, stats.Records)
}
