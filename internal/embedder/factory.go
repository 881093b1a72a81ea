package embedder

import (
	"fmt"

	"github.com/dshills/malrag-mcp/internal/config"
)

// NewFromConfig builds the configured embedding provider with a shared
// LRU cache sized from the config.
func NewFromConfig(cfg config.EmbeddingConfig) (Embedder, error) {
	cache := NewCache(cfg.CacheSize)

	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.Endpoint, cfg.APIKey, cfg.Model, cfg.Dimension, cache)
	case ProviderOllama:
		return NewOllamaProvider(cfg.Endpoint, cfg.Model, cfg.Dimension, cache)
	case ProviderLocal, "":
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
