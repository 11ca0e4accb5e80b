package ingestion_engine

import "context"

// Invoker runs a single time-boxed invocation.
type Invoker interface {
	Ingest(ctx context.Context, req IngestRequest) (*IngestResponse, error)
}

// Ingestor drives invocations until a document is fully ingested.
type Ingestor interface {
	RunToCompletion(ctx context.Context, req IngestRequest) (*IngestResponse, error)
	Enqueue(req IngestRequest) error
}

var (
	_ Invoker  = (*Orchestrator)(nil)
	_ Ingestor = (*Driver)(nil)
)
