package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// NewClient creates a Client for the configured provider. The returned value
// is stateless from the caller's perspective; a single instance is shared by
// all concurrent pipeline invocations.
func NewClient(cfg *Config, logger *zap.Logger) (Client, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIClient(cfg, logger)
	case "anthropic":
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}
