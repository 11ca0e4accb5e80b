package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

// NewEmbeddingProvider builds the configured provider, wrapped in an LRU cache
// when EMBED_CACHE_SIZE is positive.
func NewEmbeddingProvider(ctx context.Context, cfg *config.Config) (core.EmbeddingProvider, error) {
	var (
		p   core.EmbeddingProvider
		err error
	)
	switch strings.ToLower(cfg.EmbedProvider) {
	case "", "gemini":
		p, err = NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbedModel)
	case "openai":
		p, err = NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbedModel, cfg.EmbeddingBatchSize)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbedProvider)
	}
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("embedding provider ready", "provider", cfg.EmbedProvider, "model", cfg.EmbedModel)
	if cfg.EmbedCacheSize <= 0 {
		return p, nil
	}
	return NewCachedEmbedder(p, cfg.EmbedCacheSize)
}
