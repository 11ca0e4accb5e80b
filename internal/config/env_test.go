package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Should apply pipeline defaults", func(t *testing.T) {
		t.Setenv("EMBEDDING_BATCH_SIZE", "")
		t.Setenv("BATCHES_PER_CALL", "")
		cfg := LoadConfig()
		assert.Equal(t, 50, cfg.EmbeddingBatchSize)
		assert.Equal(t, 50, cfg.VectorBatchSize)
		assert.Equal(t, 10, cfg.BatchesPerCall)
		assert.Equal(t, 3, cfg.RetryAttempts)
		assert.Equal(t, 90*time.Second, cfg.UnitTimeout)
		assert.Equal(t, 120*time.Second, cfg.InvocationTimeout)
	})

	t.Run("Should read overrides and fall back on malformed values", func(t *testing.T) {
		t.Setenv("BATCHES_PER_CALL", "4")
		t.Setenv("EMBED_DIM", "abc")
		t.Setenv("RETRY_INITIAL_DELAY", "2s")
		t.Setenv("LOG_JSON", "true")
		t.Setenv("CORS_ORIGINS", "https://a.test, https://b.test")
		cfg := LoadConfig()
		assert.Equal(t, 4, cfg.BatchesPerCall)
		assert.Equal(t, 768, cfg.EmbedDim)
		assert.Equal(t, 2*time.Second, cfg.RetryInitialDelay)
		assert.True(t, cfg.LogJSON)
		assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSOrigins)
	})
}
