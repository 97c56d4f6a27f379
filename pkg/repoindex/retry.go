package repoindex

import (
	"context"
	"errors"
	"time"
)

// retryableError wraps an error to indicate it should trigger a retry.
// Transient failures (tool timeouts, interrupted queries) are wrapped with
// this type so retry knows to attempt the operation again.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// retryable marks an error as transient.
func retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// retry executes fn up to attempts times with exponential backoff. It only
// retries errors wrapped with retryableError; other errors are returned
// immediately. The delay doubles after each failed attempt. Returns the last
// error if all attempts fail, or ctx.Err() if cancelled.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := 0; i < attempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !isRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

func isRetryable(err error) bool {
	return errors.As(err, new(*retryableError))
}
