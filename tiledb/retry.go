package tiledb

import (
	"time"

	"go.uber.org/zap"
)

const retryAttempts = 3

// WithRetry runs fn up to three times with exponential backoff. It exists
// for transient storage errors around batch writes; invariant violations
// should not be routed through it.
func WithRetry(log *zap.Logger, what string, fn func() error) error {
	backoff := 100 * time.Millisecond
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt < retryAttempts {
			log.Warn("retrying after transient error",
				zap.String("op", what), zap.Int("attempt", attempt), zap.Error(err))
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return err
}
