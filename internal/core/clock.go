// Package core holds the small shared abstractions the simulator is built on.
package core

import (
	"sync"
	"time"
)

// Clock provides time operations that can be mocked for testing.
// The engine reads it at batch boundaries to decide when to emit
// progress and when to yield.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// RealClock uses the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time                   { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// FakeClock is a test clock that only moves when told to.
// If step is non-zero, every call to Now advances the clock by step
// after reading it, which lets a single-goroutine test drive timers
// without sleeping.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{current: start}
}

// NewSteppingClock returns a FakeClock that advances by step on each Now.
func NewSteppingClock(start time.Time, step time.Duration) *FakeClock {
	return &FakeClock{current: start, step: step}
}

func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.current
	f.current = f.current.Add(f.step)
	return now
}

func (f *FakeClock) Since(t time.Time) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current.Sub(t)
}

func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.current = f.current.Add(d)
	f.mu.Unlock()
}

func (f *FakeClock) Set(t time.Time) {
	f.mu.Lock()
	f.current = t
	f.mu.Unlock()
}
