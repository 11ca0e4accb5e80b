package ingestion_engine

import "context"

// Phase names a state of one ingestion invocation.
type Phase string

const (
	PhaseParsing     Phase = "parsing"
	PhaseClassifying Phase = "classifying"
	PhaseChunking    Phase = "chunking"
	PhaseEmbedding   Phase = "embedding"
	PhaseUpserting   Phase = "upserting"
	PhaseManifest    Phase = "manifest"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

// Progress is a point-in-time report for one document.
type Progress struct {
	Namespace    string `json:"namespace"`
	FileKey      string `json:"fileKey"`
	Phase        Phase  `json:"phase"`
	Batch        int    `json:"batch"`
	TotalBatches int    `json:"totalBatches"`
	ChunkCount   int    `json:"chunkCount"`
	Message      string `json:"message,omitempty"`
}

type ProgressSink interface {
	Report(ctx context.Context, p Progress)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(ctx context.Context, p Progress)

func (f ProgressFunc) Report(ctx context.Context, p Progress) { f(ctx, p) }

type noopProgress struct{}

func (noopProgress) Report(context.Context, Progress) {}
