// Package collector aggregates engine snapshots into a run summary.
package collector

import (
	"sync"
	"time"

	"shrinkray/internal/core"
	"shrinkray/internal/engine"
)

// Collector keeps the latest snapshot of a run and times it.
// Report is safe to call from any goroutine.
type Collector struct {
	mu        sync.Mutex
	clock     core.Clock
	latest    engine.Snapshot
	seen      int
	restarts  int
	startTime time.Time
	endTime   time.Time
}

// NewCollector creates a Collector timed by the real clock.
func NewCollector() *Collector {
	return NewCollectorWithClock(core.RealClock{})
}

// NewCollectorWithClock creates a Collector with a custom clock (for testing).
func NewCollectorWithClock(clock core.Clock) *Collector {
	return &Collector{
		clock:     clock,
		startTime: clock.Now(),
	}
}

// Report records a snapshot. A snapshot with fewer processed customers than
// the previous one means the engine was reset or reconfigured; the timer
// restarts with it.
func (c *Collector) Report(s engine.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen > 0 && s.Processed < c.latest.Processed {
		c.restarts++
		c.startTime = c.clock.Now()
		c.endTime = time.Time{}
	}
	c.latest = s
	c.seen++
	if s.Final() && c.endTime.IsZero() {
		c.endTime = c.clock.Now()
	}
}

// Latest returns the most recent snapshot; ok is false before the first.
func (c *Collector) Latest() (s engine.Snapshot, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.seen > 0
}

// Seen is the number of snapshots reported.
func (c *Collector) Seen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen
}

// Restarts counts resets and reconfigurations observed mid-stream.
func (c *Collector) Restarts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restarts
}

// Close stops the run timer if no final snapshot has stopped it yet.
func (c *Collector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.endTime.IsZero() {
		c.endTime = c.clock.Now()
	}
}

// Duration returns the run duration.
// If the run has ended, returns the duration from start to end.
// If still running, returns the duration from start to now.
func (c *Collector) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.endTime.IsZero() {
		return c.endTime.Sub(c.startTime)
	}
	return c.clock.Since(c.startTime)
}

// Compute summarises the latest snapshot.
func (c *Collector) Compute() *Summary {
	s, _ := c.Latest()
	return ComputeSummary(s, c.Duration())
}
