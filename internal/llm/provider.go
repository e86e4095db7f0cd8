package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Package llm provides the narrative-summary backends for the RCA service.
//
// Responsibilities:
//   - Define the chat-completion Provider interface
//   - Implement OpenAI-compatible chat completions (api.openai.com and gateways)
//   - Implement Ollama chat completions for local models
//   - Render analysis results into prompts and produce incident summaries
//
// Providers are plain HTTP clients with no retry layer of their own; the
// engine coordinator bounds each summary call with a timeout and falls back
// to a templated summary on any failure.

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Message is a single chat turn sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is a chat-completion backend.
type Provider interface {
	// Name returns the provider identifier (one of the Provider* constants).
	Name() string

	// Complete sends the conversation and returns the assistant text.
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Config carries the provider settings resolved from service configuration.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// NewProvider builds the configured provider. It returns (nil, nil) when the
// provider is empty or "none", which callers treat as summaries disabled.
func NewProvider(cfg Config) (Provider, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", "none":
		return nil, nil
	case ProviderOpenAI:
		client, err := NewOpenAIClient(cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		if cfg.BaseURL != "" {
			client.SetBaseURL(cfg.BaseURL)
		}
		if cfg.Timeout > 0 {
			client.SetTimeout(cfg.Timeout)
		}
		return client, nil
	case ProviderOllama:
		client, err := NewOllamaClient(cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, err
		}
		if cfg.Timeout > 0 {
			client.SetTimeout(cfg.Timeout)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}
