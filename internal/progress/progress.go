// Package progress draws a live one-line status of a running simulation.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"shrinkray/internal/collector"
	"shrinkray/internal/core"
	"shrinkray/internal/engine"
	"shrinkray/internal/ratelimit"
)

// DefaultRefreshRate is the number of redraws per second.
const DefaultRefreshRate = 10

// Progress renders snapshots as a self-overwriting terminal line. It
// implements engine.Reporter. Redraws are throttled; the final snapshot of
// a run is always drawn.
type Progress struct {
	startTime time.Time
	clock     core.Clock
	throttle  *ratelimit.Throttle
	stopped   atomic.Bool
	quiet     bool
	output    io.Writer
	mu        sync.Mutex
}

func NewProgress(quiet bool) *Progress {
	return NewProgressWithClock(core.RealClock{}, quiet)
}

// NewProgressWithClock creates a Progress with a custom clock (for testing).
func NewProgressWithClock(clock core.Clock, quiet bool) *Progress {
	return &Progress{
		clock:     clock,
		throttle:  ratelimit.NewThrottleWithClock(DefaultRefreshRate, clock),
		startTime: clock.Now(),
		quiet:     quiet,
		output:    os.Stderr,
	}
}

func (p *Progress) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = w
}

// SetRefreshRate changes the redraw limit; zero redraws on every snapshot.
func (p *Progress) SetRefreshRate(perSecond float64) {
	p.throttle.SetRate(perSecond)
}

// Start resets the elapsed-time display.
func (p *Progress) Start() {
	p.mu.Lock()
	p.startTime = p.clock.Now()
	p.mu.Unlock()
	p.stopped.Store(false)
}

func (p *Progress) Report(s engine.Snapshot) {
	if p.quiet || p.stopped.Load() {
		return
	}
	if !s.Final() && !p.throttle.Allow() {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.output, "\r\033[K%s", p.line(s))
}

func (p *Progress) line(s engine.Snapshot) string {
	elapsed := p.clock.Since(p.startTime).Round(time.Second)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60

	pct := 100.0
	if s.N > 0 {
		pct = float64(s.Processed) / float64(s.N) * 100
	}
	sum := collector.ComputeSummary(s, 0)
	return fmt.Sprintf("[%02d:%02d] %-7s Customers: %s / %s (%.1f%%) | Sold: %s | Profit: %s (analytic %s, err %s)",
		mins, secs, s.Phase, humanize.Comma(int64(s.Processed)), humanize.Comma(int64(s.N)), pct,
		humanize.Comma(int64(s.Sold)), collector.FormatMoney(s.Profit),
		collector.FormatMoney(sum.ExpectedProfit), collector.FormatPercent(sum.ProfitError))
}

// Stop clears the status line. Later snapshots are ignored.
func (p *Progress) Stop() {
	if p.quiet || p.stopped.Swap(true) {
		return
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "\r\033[K")
	p.mu.Unlock()
}

func (p *Progress) Print(message string) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "\r\033[K%s\n", message)
	p.mu.Unlock()
}

func (p *Progress) Printf(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "\r\033[K"+format+"\n", args...)
	p.mu.Unlock()
}
