package netutil

import (
	"context"
	"time"
)

const (
	// DefaultAttempts is the attempt budget for provider calls.
	DefaultAttempts = 3
	// DefaultBaseDelay is the first backoff delay; it doubles after each failure.
	DefaultBaseDelay = time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy describes a bounded retry loop with exponential backoff.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	// Retryable decides whether an error deserves another attempt. Nil retries every error.
	Retryable func(error) bool
	// After returns a server requested wait for err; a positive value
	// replaces the backoff delay.
	After func(error) time.Duration
	// Sleep replaces the timer wait, mainly in tests.
	Sleep SleepFunc
	// OnRetry is called before sleeping with the failed attempt number and the upcoming delay.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy returns 3 attempts with 1s/2s backoff between them.
func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, BaseDelay: DefaultBaseDelay}
}

// Delay returns the backoff applied after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	return p.BaseDelay << (attempt - 1)
}

// Do runs fn until it succeeds, the attempt budget is spent, a non-retryable
// error is returned or ctx is done. The last error is returned; no delay
// follows the final attempt.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			break
		}
		delay := p.Delay(attempt)
		if p.After != nil {
			if d := p.After(lastErr); d > 0 {
				delay = d
			}
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, lastErr)
		}
		if err := sleep(ctx, delay); err != nil {
			return lastErr
		}
	}
	return lastErr
}

// SleepContext blocks for d unless ctx finishes first.
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
