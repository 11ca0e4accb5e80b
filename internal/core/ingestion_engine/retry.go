package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

// errUnitTimeout marks an operation that lost the race against its timer.
var errUnitTimeout = errors.New("operation timed out")

// retryPolicy retries external calls with exponential backoff.
type retryPolicy struct {
	attempts int
	initial  time.Duration
	onRetry  func(op string)
}

func newRetryPolicy(attempts int, initial time.Duration, onRetry func(op string)) retryPolicy {
	if attempts < 1 {
		attempts = 1
	}
	if onRetry == nil {
		onRetry = func(string) {}
	}
	return retryPolicy{attempts: attempts, initial: initial, onRetry: onRetry}
}

// do runs fn up to p.attempts times. Permanent errors stop immediately and
// the last error is returned once attempts are exhausted.
func (p retryPolicy) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	log := logger.FromContext(ctx)
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(p.attempts-1), retry.NewExponential(p.initial))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if isPermanent(err) || ctx.Err() != nil {
			return err
		}
		if attempt < p.attempts {
			log.Warn("external call failed, retrying", "operation", op, "attempt", attempt, "error", err)
			p.onRetry(op)
		}
		return retry.RetryableError(err)
	})
}

func isPermanent(err error) bool {
	if errors.Is(err, core.ErrDuplicateContent) || errors.Is(err, core.ErrObjectNotFound) {
		return true
	}
	if errors.Is(err, errUnitTimeout) {
		return true
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Category != CategoryTransient
	}
	return false
}

// raceTimeout runs fn against a timer of d and returns as soon as either
// finishes. fn keeps running in the background if it ignores cancellation.
func raceTimeout(ctx context.Context, d time.Duration, op string, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s after %s: %w", op, d, errUnitTimeout)
		}
		return ctx.Err()
	}
}
