// Package retry formalizes the bounded retry behavior applied to provider
// calls: a fixed attempt budget, a backoff strategy, and a classifier that
// decides whether an observed failure is worth another attempt. A retry is
// only ever issued after a definite retryable failure, never speculatively.
package retry

import (
	"context"
	"time"
)

// Backoff returns the delay before the given attempt (1-based). Attempt 1 has
// already happened when the strategy is consulted.
type Backoff func(attempt int) time.Duration

// Fixed waits the same duration between every attempt.
func Fixed(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// CappedExponential doubles the base delay per attempt up to cap.
func CappedExponential(base, cap time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= cap {
				return cap
			}
		}
		if d > cap {
			return cap
		}
		return d
	}
}

// Policy bounds retries of a fallible operation.
type Policy struct {
	MaxAttempts int
	Backoff     Backoff
	// Retryable classifies an observed failure. A nil classifier retries
	// nothing.
	Retryable func(error) bool
}

// Do invokes fn up to MaxAttempts times, sleeping per the backoff strategy
// between attempts. It stops early on success, on a non-retryable error, or
// when ctx is done, and returns the last observed error.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff(attempt)
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}
