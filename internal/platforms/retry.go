package platforms

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	maxRetries     = 2
	retryBaseDelay = 1500 * time.Millisecond
)

// withRetry runs fn up to maxRetries+1 times with exponential backoff,
// doubling the delay each attempt. The final attempt's error is propagated
// unmodified. Context cancellation cuts the backoff wait short.
func withRetry(ctx context.Context, logger *zap.Logger, fn func() (Result, error)) (Result, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}
		lastErr = err
		if attempt == maxRetries {
			break
		}

		delay := retryBaseDelay << attempt
		logger.Debug("Platform call failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return Result{}, lastErr
}
