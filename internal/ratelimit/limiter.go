// Package ratelimit throttles how often a consumer acts on a stream of events.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"

	"shrinkray/internal/core"
)

// Throttle admits at most perSecond events per second with a burst of one.
// A rate of zero or less admits everything.
type Throttle struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	clock   core.Clock
}

func NewThrottle(perSecond float64) *Throttle {
	return NewThrottleWithClock(perSecond, core.RealClock{})
}

// NewThrottleWithClock creates a Throttle with a custom clock (for testing).
func NewThrottleWithClock(perSecond float64, clock core.Clock) *Throttle {
	return &Throttle{
		limiter: rate.NewLimiter(limitFor(perSecond), 1),
		clock:   clock,
	}
}

// Allow reports whether an event may proceed now, consuming a token if so.
func (t *Throttle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limiter.AllowN(t.clock.Now(), 1)
}

func (t *Throttle) SetRate(perSecond float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.limiter.SetLimitAt(t.clock.Now(), limitFor(perSecond))
}

// Rate returns the current limit in events per second, 0 when unlimited.
func (t *Throttle) Rate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limiter.Limit() == rate.Inf {
		return 0
	}
	return float64(t.limiter.Limit())
}

func limitFor(perSecond float64) rate.Limit {
	if perSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(perSecond)
}
