package collector

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle paces calls to a remote service
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle allows rps requests per second with a burst of 2x the rate.
// rps <= 0 disables throttling.
func NewThrottle(rps int) *Throttle {
	if rps <= 0 {
		return &Throttle{}
	}
	return &Throttle{
		limiter: rate.NewLimiter(rate.Limit(rps), rps*2),
	}
}

// NewIntervalThrottle allows one call per interval; the first call is immediate.
// interval <= 0 disables throttling.
func NewIntervalThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		return &Throttle{}
	}
	return &Throttle{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Wait blocks until the throttle allows an action
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.limiter == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}

// Allow checks if an action is allowed without blocking
func (t *Throttle) Allow() bool {
	if t == nil || t.limiter == nil {
		return true
	}
	return t.limiter.Allow()
}
