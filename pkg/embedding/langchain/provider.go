// Package langchain adapts langchaingo embedders to the embedding provider
// interface, which opens up every backend langchaingo supports.
package langchain

import (
	"context"
	"fmt"
	"strings"

	"cv-rag/pkg/embedding"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

type Provider struct {
	embedder embeddings.Embedder
}

func NewProvider(e embeddings.Embedder) *Provider {
	return &Provider{embedder: e}
}

// NewOllama embeds through a local Ollama server.
func NewOllama(serverURL, model string) (*Provider, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("langchain ollama client: %w", err)
	}
	e, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("langchain embedder: %w", err)
	}
	return NewProvider(e), nil
}

// NewOpenAICompatible embeds through an OpenAI-compatible gateway such as
// OpenRouter.
func NewOpenAICompatible(baseURL, token, model string) (*Provider, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(token, "Bearer ")),
		openai.WithEmbeddingModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("langchain openai client: %w", err)
	}
	e, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("langchain embedder: %w", err)
	}
	return NewProvider(e), nil
}

var _ embedding.BatchEmbeddingProvider = &Provider{}

func (p *Provider) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	var (
		v   []float32
		err error
	)
	if taskType == embedding.TaskQuery {
		v, err = p.embedder.EmbedQuery(ctx, text)
	} else {
		var vs [][]float32
		vs, err = p.embedder.EmbedDocuments(ctx, []string{text})
		if err == nil && len(vs) == 1 {
			v = vs[0]
		}
	}
	if err != nil {
		return nil, err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: v},
	}, nil
}

func (p *Provider) GenerateBatch(ctx context.Context, texts []string, taskType string) ([]embedding.EmbeddingResponse, error) {
	vs, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	out := make([]embedding.EmbeddingResponse, len(vs))
	for i, v := range vs {
		out[i].Embedding.Values = v
	}
	return out, nil
}
