package provider

import (
	"context"
	"math"
	"time"
)

// openWithRetry calls open until it succeeds, the error is not transient, or
// maxRetries attempts are exhausted. Backoff doubles per attempt starting at
// initial; context cancellation aborts the wait. Retry applies only to
// opening a stream — once chunks have been handed out there is no replay.
func openWithRetry(ctx context.Context, maxRetries int, initial time.Duration, open func(context.Context) (Stream, error)) (Stream, error) {
	var lastErr *Error
	for attempt := range maxRetries {
		stream, err := open(ctx)
		if err == nil {
			return stream, nil
		}

		lastErr = Classify(err)
		if !lastErr.Retryable {
			return nil, lastErr
		}

		if attempt < maxRetries-1 {
			backoff := time.Duration(float64(initial) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return nil, Classify(ctx.Err())
			case <-time.After(backoff):
			}
		}
	}
	return nil, lastErr
}
