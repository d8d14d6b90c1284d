// internal/common/retry/retry.go
package retry

import (
	"context"
	"fmt"
	"time"

	"phishbot/internal/common/logger"
)

// WithBackoff runs operation up to maxRetries times, doubling the delay after
// each failure. It stops early when ctx is done or when shouldRetry rejects
// the error. A nil shouldRetry retries every error.
func WithBackoff(
	ctx context.Context,
	operation func(ctx context.Context) error,
	maxRetries int,
	initialDelay time.Duration,
	shouldRetry func(error) bool,
	log logger.Logger,
	operationName string,
) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation(ctx)
		if err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
