package ingestion_engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/panjf2000/ants/v2"

	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

// Driver plays the caller's side of the continuation protocol: it feeds each
// response's cursor back into the next invocation. Background runs share a
// bounded worker pool.
type Driver struct {
	invoker        Invoker
	pool           *ants.Pool
	baseCtx        context.Context
	maxTimeoutRuns int
}

// NewDriver builds a driver with numWorkers background workers. baseCtx
// bounds the lifetime of enqueued runs.
func NewDriver(baseCtx context.Context, invoker Invoker, numWorkers int) (*Driver, error) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	pool, err := ants.NewPool(numWorkers)
	if err != nil {
		return nil, fmt.Errorf("ingest worker pool: %w", err)
	}
	return &Driver{invoker: invoker, pool: pool, baseCtx: baseCtx, maxTimeoutRuns: 3}, nil
}

// RunToCompletion re-invokes until the response is terminal. A timed-out
// invocation is retried on the same batch a bounded number of times.
func (d *Driver) RunToCompletion(ctx context.Context, req IngestRequest) (*IngestResponse, error) {
	log := logger.FromContext(ctx).With("component", "driver", "namespace", req.Namespace, "file_key", req.FileKey)
	timeouts := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := d.invoker.Ingest(ctx, req)
		if err != nil {
			if errors.Is(err, ErrTimeout) && timeouts < d.maxTimeoutRuns && ctx.Err() == nil {
				timeouts++
				log.Warn("invocation timed out, retrying batch", "start_batch", req.StartBatch, "attempt", timeouts)
				continue
			}
			return resp, err
		}
		if resp.Completed {
			return resp, nil
		}
		if resp.NextBatch <= req.StartBatch {
			return resp, fmt.Errorf("continuation did not advance past batch %d", req.StartBatch)
		}
		log.Info("continuing ingestion", "next_batch", resp.NextBatch, "total_batches", resp.TotalBatches)
		req.StartBatch = resp.NextBatch
		req.DocumentType = resp.DocumentType
		timeouts = 0
	}
}

// Enqueue schedules a full background run. It blocks while every worker is busy.
func (d *Driver) Enqueue(req IngestRequest) error {
	return d.pool.Submit(func() {
		log := logger.FromContext(d.baseCtx).With("component", "driver", "namespace", req.Namespace, "file_key", req.FileKey)
		log.Info("background ingestion started")
		resp, err := d.RunToCompletion(d.baseCtx, req)
		if err != nil {
			log.Error("background ingestion failed", "error", err)
			return
		}
		log.Info("background ingestion finished", "chunks", resp.ChunkCount, "doc_type", resp.DocumentType)
	})
}

// Release stops accepting work. Running tasks are not interrupted.
func (d *Driver) Release() {
	d.pool.Release()
}
