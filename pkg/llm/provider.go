package llm

import (
	"fmt"
	"strings"
)

// ProviderConfig carries everything a provider constructor needs.
type ProviderConfig struct {
	Provider    string // openai, anthropic
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Dimension   int // embeddings only
}

// NewCompleter creates a text-completion provider for cfg.Provider.
func NewCompleter(cfg ProviderConfig) (Completer, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return NewOpenAICompleter(cfg), nil
	case "anthropic":
		return NewAnthropicCompleter(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// NewEmbedder creates an embedding provider. Only OpenAI serves embeddings.
func NewEmbedder(cfg ProviderConfig) (Embedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return NewOpenAIEmbedder(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// DefaultDimension returns the native output size of known embedding models.
func DefaultDimension(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	default:
		return 1536
	}
}
