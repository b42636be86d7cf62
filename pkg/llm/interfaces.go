// Package llm provides chat-completion clients for OpenAI-compatible and
// Anthropic endpoints, plus helpers for pulling structured JSON out of model
// responses.
package llm

import "context"

// Client defines the interface for LLM operations. Use it for dependency
// injection so services can be tested with a mock.
type Client interface {
	// GenerateResponse generates a chat completion for the prompt.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Config holds configuration for creating an LLM client.
type Config struct {
	Provider string // "openai" (any OpenAI-compatible endpoint) or "anthropic"
	BaseURL  string // e.g. "https://api.openai.com/v1"
	Model    string // e.g. "gpt-4o-mini"
	APIKey   string // Optional for local endpoints
}
