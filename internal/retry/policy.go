package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultBaseDelay is the first backoff wait; each retry doubles it.
	DefaultBaseDelay = 5 * time.Second
	// DefaultRateLimitCooldown is inserted before backoff when the remote throttled us.
	DefaultRateLimitCooldown = 30 * time.Second
	// DefaultMaxDelay caps a single backoff wait.
	DefaultMaxDelay = 10 * time.Minute
)

// Policy is a bounded exponential-backoff executor.
// MaxAttempts counts retries, not calls: 0 means a single attempt.
type Policy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	RateLimitCooldown time.Duration

	IsRateLimited func(error) bool
	IsPermanent   func(error) bool

	// Sleep blocks for d. It is not interrupted by context cancellation.
	Sleep func(d time.Duration)
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsExhausted reports whether err is (or wraps) an ExhaustedError.
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}

// Backoff returns the wait before retry number attempt+1: BaseDelay doubled
// attempt times, capped at MaxDelay.
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.normalized()
	d := p.BaseDelay
	for i := 0; i < attempt && d < p.MaxDelay; i++ {
		d *= 2
	}
	return min(d, p.MaxDelay)
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 0 {
		p.MaxAttempts = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = max(DefaultMaxDelay, p.BaseDelay)
	}
	if p.RateLimitCooldown <= 0 {
		p.RateLimitCooldown = DefaultRateLimitCooldown
	}
	if p.IsRateLimited == nil {
		p.IsRateLimited = func(error) bool { return false }
	}
	if p.IsPermanent == nil {
		p.IsPermanent = func(error) bool { return false }
	}
	if p.Sleep == nil {
		p.Sleep = time.Sleep
	}
	return p
}

// Do runs fn until it succeeds or the attempt budget is spent.
func Do[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	var lastErr error
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return zero, &ExhaustedError{Op: op, Attempts: attempt, Err: lastErr}
		}

		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || p.IsPermanent(err) {
			return zero, &ExhaustedError{Op: op, Attempts: attempt + 1, Err: err}
		}

		if p.IsRateLimited(err) {
			p.Sleep(p.RateLimitCooldown)
		}

		if attempt >= p.MaxAttempts {
			return zero, &ExhaustedError{Op: op, Attempts: attempt + 1, Err: err}
		}

		p.Sleep(p.Backoff(attempt))
		attempt++
	}
}
