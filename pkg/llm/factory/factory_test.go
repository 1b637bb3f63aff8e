package factory

import (
	"testing"

	"cv-rag/pkg/llm/huggingface"
	"cv-rag/pkg/llm/ollama"
	"cv-rag/pkg/llm/openai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	p, err := NewLLMProvider(Config{Provider: "ollama", Model: "llama3.1"})
	require.NoError(t, err)
	assert.IsType(t, &ollama.OllamaProvider{}, p)
	assert.Equal(t, "http://localhost:11434", p.(*ollama.OllamaProvider).BaseURL)

	p, err = NewLLMProvider(Config{Provider: "huggingface", APIKey: "hf", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &huggingface.HuggingFaceProvider{}, p)

	p, err = NewLLMProvider(Config{Provider: "groq", APIKey: "gsk", Model: "llama-3.1-8b-instant"})
	require.NoError(t, err)
	assert.IsType(t, &openai.Provider{}, p)

	_, err = NewLLMProvider(Config{Provider: "pinecone"})
	assert.Error(t, err)
}
