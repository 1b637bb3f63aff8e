package openai

import (
	"context"
	"fmt"
	"sort"

	"cv-rag/pkg/embedding"

	goopenai "github.com/sashabaranov/go-openai"
)

// Provider calls any OpenAI-compatible /embeddings endpoint.
type Provider struct {
	client    *goopenai.Client
	model     string
	dimension int
}

// NewProvider creates a provider. An empty baseURL targets api.openai.com.
// dimension is sent for text-embedding-3 models, which can shorten vectors.
func NewProvider(apiKey, baseURL, model string, dimension int) *Provider {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(goopenai.SmallEmbedding3)
	}
	return &Provider{
		client:    goopenai.NewClientWithConfig(cfg),
		model:     model,
		dimension: dimension,
	}
}

var _ embedding.BatchEmbeddingProvider = &Provider{}

func (p *Provider) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	res, err := p.GenerateBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return &res[0], nil
}

func (p *Provider) GenerateBatch(ctx context.Context, texts []string, taskType string) ([]embedding.EmbeddingResponse, error) {
	req := goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(p.model),
	}
	if p.dimension > 0 && p.model != string(goopenai.AdaEmbeddingV2) {
		req.Dimensions = p.dimension
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([]embedding.EmbeddingResponse, len(data))
	for i, d := range data {
		v := make([]float32, len(d.Embedding))
		for k := range d.Embedding {
			v[k] = float32(d.Embedding[k])
		}
		out[i].Embedding.Values = v
	}
	return out, nil
}
