// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"context"
	"time"
)

// withRetry executes fn with bounded retries and exponential backoff.
// Retries stop immediately on context cancellation. maxRetries counts
// attempts after the first, so maxRetries=3 means up to four calls.
func withRetry[T any](ctx context.Context, maxRetries int, baseDelay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	backoff := baseDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}

	return zero, lastErr
}
