// Package langchain adapts any langchaingo model to llm.LLMProvider.
package langchain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cv-rag/pkg/llm"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

type Provider struct {
	model llms.Model
}

var _ llm.LLMProvider = &Provider{}

func NewProvider(model llms.Model) *Provider {
	return &Provider{model: model}
}

func NewOllama(serverURL, model string) (*Provider, error) {
	m, err := ollama.New(ollama.WithServerURL(serverURL), ollama.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("langchain ollama client: %w", err)
	}
	return NewProvider(m), nil
}

func NewOpenAICompatible(baseURL, token, model string) (*Provider, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(token, "Bearer ")),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("langchain openai client: %w", err)
	}
	return NewProvider(m), nil
}

func roleOf(role string) llms.ChatMessageType {
	switch role {
	case llm.RoleSystem:
		return llms.ChatMessageTypeSystem
	case llm.RoleAssistant, "model":
		return llms.ChatMessageTypeAI
	}
	return llms.ChatMessageTypeHuman
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.DefaultOptions(), options...)

	content := make([]llms.MessageContent, len(history))
	for i, m := range history {
		content[i] = llms.TextParts(roleOf(m.Role), m.Content)
	}

	callOpts := []llms.CallOption{
		llms.WithTemperature(opts.Temperature),
		llms.WithMaxTokens(opts.MaxTokens),
	}
	if opts.Model != "" {
		callOpts = append(callOpts, llms.WithModel(opts.Model))
	}

	resp, err := p.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("langchain model returned no choices")
	}
	return resp.Choices[0].Content, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}
