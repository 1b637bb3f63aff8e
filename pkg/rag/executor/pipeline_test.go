package executor

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cv-rag/pkg/apperror"
	"cv-rag/pkg/embedding"
	"cv-rag/pkg/llm"
	"cv-rag/pkg/rag/prompt"
	"cv-rag/pkg/rag/search"
	"cv-rag/pkg/retry"
	"cv-rag/pkg/store"
	"cv-rag/pkg/vectorindex"
	"cv-rag/pkg/vectorindex/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dim = 128

type echoGenerator struct {
	prompts []string
	opts    llm.Options
	fail    int
	calls   atomic.Int32
}

func (g *echoGenerator) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return g.Generate(ctx, history[len(history)-1].Content, options...)
}

func (g *echoGenerator) Generate(ctx context.Context, p string, options ...llm.Option) (string, error) {
	if int(g.calls.Add(1)) <= g.fail {
		return "", errors.New("503 service unavailable")
	}
	g.prompts = append(g.prompts, p)
	g.opts = llm.Apply(llm.Options{}, options...)
	return "ANSWER:\n" + p, nil
}

// cancellingGenerator cancels the caller's context and reports it, like a
// client disconnecting mid-generation.
type cancellingGenerator struct {
	cancel context.CancelFunc
	calls  atomic.Int32
}

func (g *cancellingGenerator) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return g.Generate(ctx, "", options...)
}

func (g *cancellingGenerator) Generate(ctx context.Context, p string, options ...llm.Option) (string, error) {
	g.calls.Add(1)
	g.cancel()
	<-ctx.Done()
	return "", ctx.Err()
}

type fixture struct {
	embedder *embedding.Embedder
	index    *vectorindex.Index
	gen      *echoGenerator
	exec     *PipelineExecutor
}

func newFixture(t *testing.T, cfg Config, maxContext int) *fixture {
	t.Helper()
	e, err := embedding.NewEmbedder(embedding.NewHashingProvider(dim), embedding.DefaultOptions(dim))
	require.NoError(t, err)
	ix, err := vectorindex.NewIndex(memory.NewStore(), vectorindex.NamespaceSpec{Name: "cv", Dimension: dim}, vectorindex.Options{})
	require.NoError(t, err)

	logger := log.New(io.Discard, "", 0)
	policy := retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	gen := &echoGenerator{}
	exec := NewPipelineExecutor(
		search.NewOrchestrator(e, ix, policy, logger),
		prompt.NewBuilder("", maxContext),
		gen, policy, cfg, logger,
	)
	return &fixture{embedder: e, index: ix, gen: gen, exec: exec}
}

func (f *fixture) ingest(t *testing.T, chunks ...store.Chunk) {
	t.Helper()
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := f.embedder.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	records := make([]store.IndexRecord, len(chunks))
	for i, c := range chunks {
		records[i] = store.NewIndexRecord(c, vecs[i], nil)
	}
	require.NoError(t, f.index.Upsert(context.Background(), records))
}

func chunk(doc string, seq int, text string) store.Chunk {
	return store.Chunk{ID: doc + "#" + string(rune('a'+seq)), Text: text, SequenceIndex: seq, SourceDocID: doc}
}

func TestAnswerWithEmptyIndexUsesNoContextMarker(t *testing.T) {
	f := newFixture(t, DefaultConfig(), 0)

	res, err := f.exec.Answer(context.Background(), "¿Dónde estudió?")
	require.NoError(t, err)

	assert.Contains(t, res.Answer, prompt.NoContextMarker)
	assert.True(t, res.NoContext)
	assert.Empty(t, res.Sources)
	assert.Zero(t, res.Retrieved)
	require.Len(t, f.gen.prompts, 1, "the generator is still called")
}

func TestAnswerPlacesTopChunkVerbatim(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopK = 1
	f := newFixture(t, cfg, 0)
	f.ingest(t, chunk("cv", 0, "Maestría en Inteligencia Artificial, UBA, 2018-2020"))

	res, err := f.exec.Answer(context.Background(), "¿Qué estudió?")
	require.NoError(t, err)

	require.Len(t, res.Sources, 1)
	assert.Equal(t, "cv#a", res.Sources[0].ID)
	assert.Equal(t, 0, res.Sources[0].SequenceIndex)
	assert.Contains(t, f.gen.prompts[0], "[Chunk 1]: Maestría en Inteligencia Artificial, UBA, 2018-2020")
	assert.False(t, res.NoContext)
}

func TestAnswerRejectsBadInputBeforeAnyCall(t *testing.T) {
	f := newFixture(t, DefaultConfig(), 0)
	_, err := f.exec.Answer(context.Background(), "  \n")
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	cfg := DefaultConfig()
	cfg.TopK = 0
	f = newFixture(t, cfg, 0)
	_, err = f.exec.Answer(context.Background(), "¿Qué estudió?")
	assert.True(t, errors.Is(err, apperror.ErrConfiguration))
	assert.Zero(t, f.gen.calls.Load())
	assert.Zero(t, f.embedder.CacheLen(), "no embedding call was made")
}

func TestAnswerContextBudget(t *testing.T) {
	f := newFixture(t, DefaultConfig(), 60)
	f.ingest(t,
		chunk("cv", 0, "Experiencia: Go, PostgreSQL"),
		chunk("cv", 1, "Experiencia: "+strings.Repeat("Kubernetes ", 10)),
		chunk("cv", 2, "Experiencia: Python"),
	)

	res, err := f.exec.Answer(context.Background(), "Experiencia")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Retrieved)
	assert.Less(t, len(res.Sources), 3)
	for _, s := range res.Sources {
		assert.NotEqual(t, "cv#b", s.ID, "the oversized chunk never fits")
	}
}

func TestAnswerFirstChunkOverBudgetMeansNoContext(t *testing.T) {
	f := newFixture(t, DefaultConfig(), 5)
	f.ingest(t, chunk("cv", 0, "Nombre: Ana"))

	res, err := f.exec.Answer(context.Background(), "Nombre")
	require.NoError(t, err)
	assert.True(t, res.NoContext)
	assert.Equal(t, 1, res.Retrieved)
	assert.Contains(t, f.gen.prompts[0], prompt.NoContextMarker)
}

func TestAnswerSourceFilter(t *testing.T) {
	f := newFixture(t, DefaultConfig(), 0)
	f.ingest(t, chunk("cv", 0, "Educación: UBA"), chunk("old", 0, "Educación: UTN"))

	res, err := f.exec.Answer(context.Background(), "Educación", WithSourceDocument("old"))
	require.NoError(t, err)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "old#a", res.Sources[0].ID)
}

func TestAnswerRetriesGenerator(t *testing.T) {
	f := newFixture(t, DefaultConfig(), 0)
	f.gen.fail = 2

	res, err := f.exec.Answer(context.Background(), "¿Idiomas?")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Answer)
	assert.EqualValues(t, 3, f.gen.calls.Load())
	assert.Equal(t, 0.7, f.gen.opts.Temperature)
	assert.Equal(t, 1000, f.gen.opts.MaxTokens)
}

func TestAnswerGeneratorExhaustsRetries(t *testing.T) {
	f := newFixture(t, DefaultConfig(), 0)
	f.gen.fail = 10

	_, err := f.exec.Answer(context.Background(), "¿Idiomas?")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrGeneration))
	assert.EqualValues(t, 3, f.gen.calls.Load())
}

func TestAnswerCancelledDuringGenerationIsTyped(t *testing.T) {
	f := newFixture(t, Config{TopK: 3}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &cancellingGenerator{cancel: cancel}
	f.exec.generator = gen

	_, err := f.exec.Answer(ctx, "¿Dónde estudió?")
	require.Error(t, err)
	assert.Equal(t, apperror.KindGeneration, apperror.KindOf(err))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, apperror.IsRetryable(err))
	assert.EqualValues(t, 1, gen.calls.Load())
}

func TestClassifyCancel(t *testing.T) {
	typed := apperror.IndexUnavailable("q", errors.New("dial tcp"))
	assert.Same(t, typed, classifyCancel(apperror.KindGeneration, "generate", typed))

	plain := errors.New("boom")
	assert.Equal(t, plain, classifyCancel(apperror.KindGeneration, "generate", plain))

	err := classifyCancel(apperror.KindIndexUnavailable, "index_query", context.DeadlineExceeded)
	assert.Equal(t, apperror.KindIndexUnavailable, apperror.KindOf(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
