package embedding

import "context"

// Task hints passed to providers that embed documents and queries differently.
const (
	TaskDocument = "RETRIEVAL_DOCUMENT"
	TaskQuery    = "RETRIEVAL_QUERY"
)

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error)
}

// BatchEmbeddingProvider is implemented by providers whose API accepts many
// inputs per request. Responses must be in input order.
type BatchEmbeddingProvider interface {
	EmbeddingProvider
	GenerateBatch(ctx context.Context, texts []string, taskType string) ([]EmbeddingResponse, error)
}
