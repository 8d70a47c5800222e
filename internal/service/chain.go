package service

import (
	"context"
	"fmt"
	"time"
)

// chainAttempt is one stage of a fallback chain.
type chainAttempt[T any] struct {
	name string
	run  func(ctx context.Context) (T, error)
}

// runChain tries the attempts strictly in order and returns the first result
// accepted by valid, together with the index of the attempt that produced
// it. Each attempt is bounded by attemptTimeout; a failed or invalid result
// falls through to the next attempt and is never retried within the call.
// When every attempt fails, the last error is returned.
func runChain[T any](ctx context.Context, attempts []chainAttempt[T], valid func(T) bool, attemptTimeout time.Duration) (T, int, error) {
	var zero T
	var lastErr error

	for i, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return zero, -1, err
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if attemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, attemptTimeout)
		}
		result, err := attempt.run(attemptCtx)
		cancel()

		if err != nil {
			lastErr = fmt.Errorf("%s: %w", attempt.name, err)
			continue
		}
		if valid != nil && !valid(result) {
			lastErr = fmt.Errorf("%s: invalid result", attempt.name)
			continue
		}
		return result, i, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no attempts configured")
	}
	return zero, -1, lastErr
}
