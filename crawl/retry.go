package crawl

import (
	"context"
	"time"
)

// LogFunc is the signature for a logging function.
type LogFunc func(format string, args ...any)

// RetryBaseDelay is the unit of the linear backoff between attempts.
const RetryBaseDelay = 1500 * time.Millisecond

// DefaultRetryDelays returns the backoff delays for maxAttempts attempts:
// 1.5s, 3s, 4.5s and so on, one fewer than the number of attempts.
func DefaultRetryDelays(maxAttempts int) []time.Duration {
	if maxAttempts < 2 {
		return nil
	}
	delays := make([]time.Duration, maxAttempts-1)
	for i := range delays {
		delays[i] = RetryBaseDelay * time.Duration(i+1)
	}
	return delays
}

// RetryWithDelays runs fn until it succeeds, making len(delays)+1 attempts
// at most and sleeping delays[i] after failed attempt i+1. Every attempt
// starts from scratch; attempt counts from 1. It returns the result, the
// number of attempts made, and the last error if every attempt failed.
// The logger function, if provided, is called for each retry.
func RetryWithDelays[T any](ctx context.Context, fn func(ctx context.Context, attempt int) (T, error), logger LogFunc, delays []time.Duration) (T, int, error) {
	maxAttempts := len(delays) + 1 // 1 initial + N retries

	var (
		zero    T
		lastErr error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn(ctx, attempt)
		if err == nil {
			return result, attempt, nil
		}
		lastErr = err

		// Don't retry after the last attempt
		if attempt >= maxAttempts {
			return zero, attempt, lastErr
		}

		// Check context before sleeping
		select {
		case <-ctx.Done():
			return zero, attempt, ctx.Err()
		default:
		}

		if logger != nil {
			logger("attempt %d failed, retrying in %s: %v", attempt, delays[attempt-1], err)
		}

		select {
		case <-ctx.Done():
			return zero, attempt, ctx.Err()
		case <-time.After(delays[attempt-1]):
		}
	}

	return zero, maxAttempts, lastErr
}
