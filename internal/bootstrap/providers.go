package bootstrap

import (
	"context"
	"fmt"
	"log"

	"cv-rag/internal/config"
	"cv-rag/pkg/apperror"
	"cv-rag/pkg/database"
	"cv-rag/pkg/embedding"
	"cv-rag/pkg/embedding/jina"
	emblangchain "cv-rag/pkg/embedding/langchain"
	embopenai "cv-rag/pkg/embedding/openai"
	"cv-rag/pkg/llm"
	"cv-rag/pkg/llm/factory"
	"cv-rag/pkg/vectorindex"
	"cv-rag/pkg/vectorindex/chromem"
	"cv-rag/pkg/vectorindex/memory"
	"cv-rag/pkg/vectorindex/pgvector"

	"gorm.io/gorm"
)

func modelOr(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}

// NewEmbeddingProvider selects the embedding backend named by
// EMBEDDING_PROVIDER.
func NewEmbeddingProvider(cfg *config.Config) (embedding.EmbeddingProvider, error) {
	ai := cfg.Ai
	switch ai.EmbeddingProvider {
	case "hashing":
		log.Printf("[INFO] Using Embedding Provider: HASHING (dim %d)", ai.EmbeddingDimension)
		return embedding.NewHashingProvider(ai.EmbeddingDimension), nil
	case "ollama":
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", modelOr(ai.EmbeddingModel, "nomic-embed-text"))
		return embedding.NewOllamaProvider(ai.EmbeddingBaseURL, ai.EmbeddingModel), nil
	case "jina":
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
		return jina.NewJinaProvider(cfg.Keys.Jina,
			jina.WithBaseURL(ai.EmbeddingBaseURL),
			jina.WithModel(ai.EmbeddingModel),
			jina.WithDimensions(ai.EmbeddingDimension),
		), nil
	case "gemini":
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
		p := embedding.NewGeminiProvider(cfg.Keys.Gemini, ai.EmbeddingModel, ai.EmbeddingDimension)
		if ai.EmbeddingBaseURL != "" {
			p.BaseURL = ai.EmbeddingBaseURL
		}
		return p, nil
	case "openai":
		log.Printf("[INFO] Using Embedding Provider: OPENAI")
		return embopenai.NewProvider(cfg.Keys.OpenAI, ai.EmbeddingBaseURL, ai.EmbeddingModel, ai.EmbeddingDimension), nil
	case "langchain":
		log.Printf("[INFO] Using Embedding Provider: LANGCHAIN")
		if cfg.Keys.OpenAI != "" {
			return emblangchain.NewOpenAICompatible(ai.EmbeddingBaseURL, cfg.Keys.OpenAI, modelOr(ai.EmbeddingModel, "text-embedding-3-small"))
		}
		return emblangchain.NewOllama(modelOr(ai.EmbeddingBaseURL, "http://localhost:11434"), modelOr(ai.EmbeddingModel, "nomic-embed-text"))
	}
	return nil, apperror.Configuration("bootstrap", "unsupported embedding provider %q", ai.EmbeddingProvider)
}

// NewGenerator builds the answer generator named by LLM_PROVIDER.
func NewGenerator(cfg *config.Config) (llm.LLMProvider, error) {
	p, err := factory.NewLLMProvider(factory.Config{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  cfg.Ai.LLMBaseURL,
		APIKey:   cfg.GeneratorKey(),
	})
	if err != nil {
		return nil, apperror.Configuration("bootstrap", "failed to initialize LLM provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	return p, nil
}

// NewVectorStore opens the backend named by VECTOR_STORE_BACKEND. The
// returned close function releases its connections.
func NewVectorStore(ctx context.Context, cfg *config.Config) (vectorindex.Store, func(), error) {
	switch cfg.VectorStore.Backend {
	case "memory":
		log.Println("[INFO] Using Vector Store: MEMORY")
		return memory.NewStore(), func() {}, nil
	case "chromem":
		log.Printf("[INFO] Using Vector Store: CHROMEM (path %q)", cfg.VectorStore.ChromemPath)
		s, err := chromem.NewStore(cfg.VectorStore.ChromemPath, true)
		if err != nil {
			return nil, nil, apperror.Configuration("bootstrap", "open chromem store: %v", err)
		}
		return s, func() {}, nil
	case "pgvector":
		log.Println("[INFO] Using Vector Store: PGVECTOR")
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment == "development")
		if err != nil {
			return nil, nil, apperror.IndexUnavailable("bootstrap", fmt.Errorf("connect to postgres: %w", err))
		}
		s := pgvector.NewStore(db)
		if err := s.Migrate(ctx); err != nil {
			closeDB(db)
			return nil, nil, apperror.IndexUnavailable("bootstrap", fmt.Errorf("migrate vector tables: %w", err))
		}
		return s, func() { closeDB(db) }, nil
	}
	return nil, nil, apperror.Configuration("bootstrap", "unsupported vector store backend %q", cfg.VectorStore.Backend)
}

func closeDB(db *gorm.DB) {
	if err := database.Close(db); err != nil {
		log.Printf("[WARN] Failed to close database: %v", err)
	}
}
