package factory

import (
	"fmt"

	"cv-rag/pkg/llm"
	"cv-rag/pkg/llm/huggingface"
	"cv-rag/pkg/llm/langchain"
	"cv-rag/pkg/llm/ollama"
	"cv-rag/pkg/llm/openai"
)

// Config selects and configures an answer generator.
type Config struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewOllamaProvider(cfg.BaseURL, cfg.Model), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "openai", "groq":
		baseURL := cfg.BaseURL
		if baseURL == "" && cfg.Provider == "groq" {
			baseURL = "https://api.groq.com/openai/v1"
		}
		return openai.NewProvider(cfg.APIKey, baseURL, cfg.Model), nil
	case "langchain":
		if cfg.APIKey == "" {
			return langchain.NewOllama(cfg.BaseURL, cfg.Model)
		}
		return langchain.NewOpenAICompatible(cfg.BaseURL, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
