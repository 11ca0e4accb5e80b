package ingestion_engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedInvoker returns canned results and records each request it sees.
type scriptedInvoker struct {
	mu    sync.Mutex
	reqs  []IngestRequest
	steps []func(IngestRequest) (*IngestResponse, error)
}

func (s *scriptedInvoker) Ingest(_ context.Context, req IngestRequest) (*IngestResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	step := s.steps[0]
	if len(s.steps) > 1 {
		s.steps = s.steps[1:]
	}
	return step(req)
}

func continueAt(next int) func(IngestRequest) (*IngestResponse, error) {
	return func(IngestRequest) (*IngestResponse, error) {
		return &IngestResponse{Success: true, NextBatch: next, TotalBatches: 23, DocumentType: "manual"}, nil
	}
}

func completed(IngestRequest) (*IngestResponse, error) {
	return &IngestResponse{Success: true, Completed: true, Phase: PhaseDone, ChunkCount: 1150}, nil
}

func TestDriver_RunToCompletion(t *testing.T) {
	ctx := context.Background()

	t.Run("Should follow continuations to completion", func(t *testing.T) {
		inv := &scriptedInvoker{steps: []func(IngestRequest) (*IngestResponse, error){continueAt(10), continueAt(20), completed}}
		d, err := NewDriver(ctx, inv, 1)
		require.NoError(t, err)
		defer d.Release()

		resp, err := d.RunToCompletion(ctx, IngestRequest{Namespace: "docs", FileKey: "k", FileName: "m.pdf", DocumentType: "manual"})
		require.NoError(t, err)
		assert.True(t, resp.Completed)
		require.Len(t, inv.reqs, 3)
		assert.Equal(t, []int{0, 10, 20}, []int{inv.reqs[0].StartBatch, inv.reqs[1].StartBatch, inv.reqs[2].StartBatch})
		assert.Equal(t, "manual", inv.reqs[2].DocumentType)
	})

	t.Run("Should retry a timed out invocation on the same batch", func(t *testing.T) {
		timeout := func(IngestRequest) (*IngestResponse, error) {
			return &IngestResponse{Phase: PhaseFailed}, newError(CategoryTimeout, PhaseEmbedding, errUnitTimeout)
		}
		inv := &scriptedInvoker{steps: []func(IngestRequest) (*IngestResponse, error){continueAt(10), timeout, completed}}
		d, err := NewDriver(ctx, inv, 1)
		require.NoError(t, err)
		defer d.Release()

		_, err = d.RunToCompletion(ctx, IngestRequest{Namespace: "docs", FileKey: "k", FileName: "m.pdf"})
		require.NoError(t, err)
		require.Len(t, inv.reqs, 3)
		assert.Equal(t, 10, inv.reqs[1].StartBatch)
		assert.Equal(t, 10, inv.reqs[2].StartBatch)
	})

	t.Run("Should give up after repeated timeouts", func(t *testing.T) {
		timeout := func(IngestRequest) (*IngestResponse, error) {
			return &IngestResponse{Phase: PhaseFailed}, newError(CategoryTimeout, PhaseEmbedding, errUnitTimeout)
		}
		inv := &scriptedInvoker{steps: []func(IngestRequest) (*IngestResponse, error){timeout}}
		d, err := NewDriver(ctx, inv, 1)
		require.NoError(t, err)
		defer d.Release()

		_, err = d.RunToCompletion(ctx, IngestRequest{Namespace: "docs", FileKey: "k", FileName: "m.pdf"})
		assert.ErrorIs(t, err, ErrTimeout)
		assert.Len(t, inv.reqs, 4)
	})

	t.Run("Should stop on a continuation that does not advance", func(t *testing.T) {
		inv := &scriptedInvoker{steps: []func(IngestRequest) (*IngestResponse, error){continueAt(0)}}
		d, err := NewDriver(ctx, inv, 1)
		require.NoError(t, err)
		defer d.Release()

		_, err = d.RunToCompletion(ctx, IngestRequest{Namespace: "docs", FileKey: "k", FileName: "m.pdf"})
		assert.ErrorContains(t, err, "did not advance")
	})

	t.Run("Should return permanent failures immediately", func(t *testing.T) {
		bad := func(IngestRequest) (*IngestResponse, error) {
			return &IngestResponse{Phase: PhaseFailed}, validationErrorf("namespace is blank")
		}
		inv := &scriptedInvoker{steps: []func(IngestRequest) (*IngestResponse, error){bad}}
		d, err := NewDriver(ctx, inv, 1)
		require.NoError(t, err)
		defer d.Release()

		resp, err := d.RunToCompletion(ctx, IngestRequest{})
		assert.True(t, errors.Is(err, ErrValidation))
		assert.Equal(t, PhaseFailed, resp.Phase)
		assert.Len(t, inv.reqs, 1)
	})
}

func TestDriver_Enqueue(t *testing.T) {
	done := make(chan struct{})
	inv := &scriptedInvoker{steps: []func(IngestRequest) (*IngestResponse, error){
		func(IngestRequest) (*IngestResponse, error) {
			defer close(done)
			return completed(IngestRequest{})
		},
	}}
	d, err := NewDriver(context.Background(), inv, 2)
	require.NoError(t, err)
	defer d.Release()

	require.NoError(t, d.Enqueue(IngestRequest{Namespace: "docs", FileKey: "k", FileName: "a.txt"}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("background run did not start")
	}
}
