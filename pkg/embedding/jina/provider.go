package jina

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"cv-rag/pkg/embedding"
)

const defaultBaseURL = "https://api.jina.ai/v1/embeddings"

type JinaProvider struct {
	apiKey    string
	baseURL   string
	model     string
	dimension int
	client    *http.Client
}

type Option func(*JinaProvider)

func WithBaseURL(url string) Option {
	return func(p *JinaProvider) {
		if url != "" {
			p.baseURL = url
		}
	}
}

func WithModel(model string) Option {
	return func(p *JinaProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithDimensions requests truncated (Matryoshka) vectors from v3 models.
func WithDimensions(n int) Option {
	return func(p *JinaProvider) { p.dimension = n }
}

func WithHTTPClient(c *http.Client) Option {
	return func(p *JinaProvider) { p.client = c }
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Task       string   `json:"task,omitempty"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewJinaProvider(apiKey string, opts ...Option) *JinaProvider {
	p := &JinaProvider{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   "jina-embeddings-v2-base-en",
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ embedding.BatchEmbeddingProvider = &JinaProvider{}

func (p *JinaProvider) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	res, err := p.GenerateBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return &res[0], nil
}

func (p *JinaProvider) GenerateBatch(ctx context.Context, texts []string, taskType string) ([]embedding.EmbeddingResponse, error) {
	reqBody := embeddingRequest{
		Model:      p.model,
		Input:      texts,
		Task:       p.task(taskType),
		Dimensions: p.dimension,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jina api error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var jinaResp embeddingResponse
	if err := json.Unmarshal(bodyBytes, &jinaResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if jinaResp.Error != nil {
		return nil, fmt.Errorf("jina api returned error: %s", jinaResp.Error.Message)
	}

	if len(jinaResp.Data) != len(texts) {
		return nil, fmt.Errorf("jina api returned %d embeddings for %d inputs", len(jinaResp.Data), len(texts))
	}

	sort.Slice(jinaResp.Data, func(i, j int) bool { return jinaResp.Data[i].Index < jinaResp.Data[j].Index })

	out := make([]embedding.EmbeddingResponse, len(jinaResp.Data))
	for i, d := range jinaResp.Data {
		out[i] = embedding.EmbeddingResponse{
			Embedding: embedding.EmbeddingResponseEmbedding{Values: d.Embedding},
		}
	}
	return out, nil
}

// Only v3 models accept a task adapter.
func (p *JinaProvider) task(taskType string) string {
	if !strings.Contains(p.model, "v3") {
		return ""
	}
	if taskType == embedding.TaskQuery {
		return "retrieval.query"
	}
	return "retrieval.passage"
}
