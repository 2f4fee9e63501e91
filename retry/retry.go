// Package retry provides a bounded retry executor with pluggable backoff
// strategies. Listing page reloads use the Fixed strategy; per-item detail
// fetches use the Exponential strategy.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Strategy determines the wait before retry attempt n (1-based: Delay(1) is
// the wait between the first failure and the second attempt).
type Strategy interface {
	Delay(attempt int) time.Duration
}

// Exponential backs off linearly with the attempt number: Base, 2×Base,
// 3×Base, ... Used for individual resource fetches, where failures are often
// load-dependent and backing off reduces server pressure.
type Exponential struct {
	Base time.Duration
}

// Delay implements Strategy.
func (s Exponential) Delay(attempt int) time.Duration {
	return s.Base * time.Duration(attempt)
}

// Fixed waits a constant Base between attempts. Used for reloading a whole
// listing page, where failures are assumed to be transient network blips.
type Fixed struct {
	Base time.Duration
}

// Delay implements Strategy.
func (s Fixed) Delay(attempt int) time.Duration {
	return s.Base
}

// ExhaustedError reports that an operation failed on every attempt. It wraps
// the last underlying failure; the caller decides whether exhaustion means
// skip-the-item or abort-the-traversal.
type ExhaustedError struct {
	Attempts int
	LastErr  error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: exhausted after %d attempts: %v", e.Attempts, e.LastErr)
}

// Unwrap returns the last underlying failure.
func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

// Options configures Do.
type Options struct {
	// MaxAttempts is the total invocation budget (initial try included).
	// Values below 1 are treated as 1.
	MaxAttempts int

	// Strategy determines the wait between attempts.
	Strategy Strategy

	// OnRetry, if set, is called after each failed attempt that will be
	// retried, and once more before exhaustion is reported. Callers use it
	// to capture diagnostic browser state.
	OnRetry func(attempt int, err error)

	// Retryable, if set, classifies failures. An error it rejects is
	// returned as-is right away: retrying a structurally malformed page
	// cannot help, only a transient failure can.
	Retryable func(err error) bool
}

// Do invokes op until it succeeds, the attempt budget is exhausted, or the
// context is canceled. The operation is never invoked more than MaxAttempts
// times. Exhaustion returns an *ExhaustedError carrying the last failure.
func Do[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if opts.Retryable != nil && !opts.Retryable(err) {
			return zero, err
		}

		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err)
		}

		if attempt == maxAttempts {
			break
		}

		var delay time.Duration
		if opts.Strategy != nil {
			delay = opts.Strategy.Delay(attempt)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, &ExhaustedError{Attempts: maxAttempts, LastErr: lastErr}
}
