package llm

import (
	"context"
	"fmt"
	"strings"

	"palaver/internal/config"

	anyllm "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	"github.com/mozilla-ai/any-llm-go/providers/openai"
)

// anyLLMCompleter adapts an any-llm-go backend to the Completer interface.
// Ollama is the default backend: palaver is meant to run against a local
// model, but openai/anthropic work for anyone who prefers a hosted one.
type anyLLMCompleter struct {
	backend     anyllm.Provider
	model       string
	temperature float64
	maxTokens   int
}

func newAnyLLMCompleter(cfg *config.Config) (Completer, error) {
	var opts []anyllm.Option
	if cfg.LLM.BaseURL != "" {
		opts = append(opts, anyllm.WithBaseURL(cfg.LLM.BaseURL))
	}

	var (
		backend anyllm.Provider
		err     error
	)
	switch strings.ToLower(cfg.LLM.Provider) {
	case "", "ollama":
		backend, err = ollama.New(opts...)
	case "openai":
		backend, err = openai.New(opts...)
	case "anthropic":
		backend, err = anthropic.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported llm.provider %q (supported: ollama, openai, anthropic)", cfg.LLM.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", cfg.LLM.Provider, err)
	}

	return &anyLLMCompleter{
		backend:     backend,
		model:       cfg.LLM.Model,
		temperature: cfg.LLM.Temperature,
		maxTokens:   cfg.LLM.MaxTokens,
	}, nil
}

func (c *anyLLMCompleter) Complete(ctx context.Context, systemPrompt string, history []Message) (string, error) {
	var messages []anyllm.Message
	if systemPrompt != "" {
		messages = append(messages, anyllm.Message{
			Role:    anyllm.RoleSystem,
			Content: systemPrompt,
		})
	}
	for _, m := range history {
		messages = append(messages, anyllm.Message{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	params := anyllm.CompletionParams{
		Model:    c.model,
		Messages: messages,
	}
	if c.temperature != 0 {
		t := c.temperature
		params.Temperature = &t
	}
	if c.maxTokens > 0 {
		mt := c.maxTokens
		params.MaxTokens = &mt
	}

	resp, err := c.backend.Completion(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	return resp.Choices[0].Message.ContentString(), nil
}
