package chat

import (
	"context"
	"errors"
	"time"

	"github.com/coachchat/coachchat/internal/domain"
)

// isTransient reports whether an error is worth retrying. Only index
// and generation failures qualify; everything else fails immediately.
func isTransient(err error) bool {
	return errors.Is(err, domain.ErrIndexUnavailable) ||
		errors.Is(err, domain.ErrGenerationFailed)
}

// retryTransient runs fn up to attempts times, sleeping baseDelay,
// 2*baseDelay, 4*baseDelay... between tries. Non-transient errors and
// context cancellation stop the loop early.
func retryTransient(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := baseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err = fn()
		if err == nil || !isTransient(err) {
			return err
		}
	}
	return err
}
