package ingestion_engine

import (
	"time"

	"github.com/markdave123-py/contexta-ingest/internal/config"
)

// IngestConfig tunes the orchestrator.
//
// EmbeddingBatchSize: chunks per embedding call (and per cursor step).
// VectorBatchSize:    records per vector-store upsert call.
// BatchesPerCall:     embedding batches processed by one invocation.
// EmbedParallelism:   concurrent embedding calls within one invocation.
// EmbedMaxChars:      character approximation of the embedding token budget.
// EmbedDim:           expected vector length; 0 skips the check.
type IngestConfig struct {
	EmbeddingBatchSize int
	VectorBatchSize    int
	BatchesPerCall     int
	EmbedParallelism   int
	EmbedMaxChars      int
	EmbedDim           int

	RetryAttempts     int
	RetryInitialDelay time.Duration
	UnitTimeout       time.Duration
	InvocationTimeout time.Duration

	ClassifierSampleSize int
}

func DefaultIngestConfig() *IngestConfig {
	return &IngestConfig{
		EmbeddingBatchSize:   50,
		VectorBatchSize:      50,
		BatchesPerCall:       10,
		EmbedParallelism:     4,
		EmbedMaxChars:        8000,
		RetryAttempts:        3,
		RetryInitialDelay:    time.Second,
		UnitTimeout:          90 * time.Second,
		InvocationTimeout:    120 * time.Second,
		ClassifierSampleSize: 10000,
	}
}

// IngestConfigFromEnv maps the process configuration onto pipeline tunables.
func IngestConfigFromEnv(cfg *config.Config) *IngestConfig {
	c := &IngestConfig{
		EmbeddingBatchSize: cfg.EmbeddingBatchSize,
		VectorBatchSize:    cfg.VectorBatchSize,
		BatchesPerCall:     cfg.BatchesPerCall,
		EmbedParallelism:   cfg.EmbedParallelism,
		EmbedMaxChars:      cfg.EmbedMaxChars,
		EmbedDim:           cfg.EmbedDim,
		RetryAttempts:      cfg.RetryAttempts,
		RetryInitialDelay:  cfg.RetryInitialDelay,
		UnitTimeout:        cfg.UnitTimeout,
		InvocationTimeout:  cfg.InvocationTimeout,
	}
	return c.withDefaults()
}

func (c *IngestConfig) withDefaults() *IngestConfig {
	d := DefaultIngestConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.EmbeddingBatchSize <= 0 {
		out.EmbeddingBatchSize = d.EmbeddingBatchSize
	}
	if out.VectorBatchSize <= 0 {
		out.VectorBatchSize = d.VectorBatchSize
	}
	if out.BatchesPerCall <= 0 {
		out.BatchesPerCall = d.BatchesPerCall
	}
	if out.EmbedParallelism <= 0 {
		out.EmbedParallelism = d.EmbedParallelism
	}
	if out.EmbedParallelism > out.BatchesPerCall {
		out.EmbedParallelism = out.BatchesPerCall
	}
	if out.EmbedMaxChars <= 0 {
		out.EmbedMaxChars = d.EmbedMaxChars
	}
	if out.RetryAttempts <= 0 {
		out.RetryAttempts = d.RetryAttempts
	}
	if out.RetryInitialDelay <= 0 {
		out.RetryInitialDelay = d.RetryInitialDelay
	}
	if out.UnitTimeout <= 0 {
		out.UnitTimeout = d.UnitTimeout
	}
	if out.InvocationTimeout <= 0 {
		out.InvocationTimeout = d.InvocationTimeout
	}
	if out.ClassifierSampleSize <= 0 {
		out.ClassifierSampleSize = d.ClassifierSampleSize
	}
	return &out
}
