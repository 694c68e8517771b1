package main

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/accountstreams/account-cqrs-go/eventstore"
)

const (
	retryMaxAttempts  = 6
	retryBaseDelay    = 10 * time.Millisecond
	retryJitterFactor = 0.3
)

// retryOnConflict executes fn with exponential backoff, retrying only on
// eventstore.ErrConcurrencyConflict. All other errors fail fast.
//
// Retry schedule: 0 ms, 10 ms, 20 ms, 40 ms, 80 ms, 160 ms (with 30% jitter).
func retryOnConflict(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < retryMaxAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<(attempt-1))

			// Add jitter to prevent thundering herd
			jitter := rand.Float64() * float64(delay) * retryJitterFactor //nolint:gosec //math/rand is sufficient for jitter
			backoffDelay := delay + time.Duration(jitter)

			select {
			case <-time.After(backoffDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !errors.Is(lastErr, eventstore.ErrConcurrencyConflict) {
			return lastErr
		}
	}

	return lastErr
}
