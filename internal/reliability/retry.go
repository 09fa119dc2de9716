package reliability

import (
	"context"
	"fmt"
	"time"
)

// Policy configures Retry.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	Backoff    func(attempt int) time.Duration
	// Retryable defaults to IsTransient.
	Retryable func(error) bool
	// Sleep defaults to a context-aware timer wait.
	Sleep   func(ctx context.Context, d time.Duration) error
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Retry runs op until it succeeds, fails with a non-retryable error, or has
// been attempted MaxRetries+1 times. It returns the number of attempts made.
func Retry[T any](ctx context.Context, p Policy, op func(ctx context.Context, attempt int) (T, error)) (T, int, error) {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = LinearBackoff(time.Second)
	}
	maxAttempts := p.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := op(ctx, attempt)
		if err == nil {
			return out, attempt, nil
		}
		lastErr = err
		if !retryable(err) {
			return zero, attempt, err
		}
		if attempt == maxAttempts {
			break
		}
		delay := backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, attempt, fmt.Errorf("retry wait interrupted after attempt %d: %w", attempt, lastErr)
		}
	}
	return zero, maxAttempts, fmt.Errorf("gave up after %d attempts: %w", maxAttempts, lastErr)
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
