// Package bootstrap holds helpers shared by the command entrypoints.
// This is part of the platform layer and contains no business logic.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"livability_backend/platform/logger"

	"github.com/sethvargo/go-retry"
)

// WithRetry runs fn up to attempts times with exponential backoff starting at
// baseDelay. It is used for infrastructure that may come up after the process
// (database, redis).
func WithRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(baseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := fn(); err != nil {
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
