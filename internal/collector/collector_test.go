package collector

import (
	"sync"
	"testing"
	"time"

	"shrinkray/internal/core"
	"shrinkray/internal/engine"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func snapshot(kind engine.Kind, processed, n, sold int) engine.Snapshot {
	return engine.Snapshot{
		Kind:           kind,
		Phase:          engine.Running,
		Processed:      processed,
		N:              n,
		Sold:           sold,
		Revenue:        4 * float64(sold),
		Cost:           2 * float64(sold),
		Profit:         2 * float64(sold),
		AnalyticSold:   float64(n) / 2,
		AnalyticProfit: float64(n),
		Margin:         2,
	}
}

func TestCollector_TracksLatestSnapshot(t *testing.T) {
	c := NewCollectorWithClock(core.NewFakeClock(epoch))

	if _, ok := c.Latest(); ok {
		t.Fatal("expected no snapshot before the first report")
	}

	c.Report(snapshot(engine.KindProgress, 100, 1000, 48))
	c.Report(snapshot(engine.KindProgress, 600, 1000, 301))

	s, ok := c.Latest()
	if !ok {
		t.Fatal("expected a snapshot")
	}
	if s.Processed != 600 || s.Sold != 301 {
		t.Errorf("expected latest 600/301, got %d/%d", s.Processed, s.Sold)
	}
	if c.Seen() != 2 {
		t.Errorf("expected 2 snapshots seen, got %d", c.Seen())
	}
}

func TestCollector_Duration(t *testing.T) {
	clock := core.NewFakeClock(epoch)
	c := NewCollectorWithClock(clock)

	clock.Advance(3 * time.Second)
	if d := c.Duration(); d != 3*time.Second {
		t.Errorf("expected running duration 3s, got %v", d)
	}

	c.Report(snapshot(engine.KindDone, 1000, 1000, 500))
	clock.Advance(time.Minute)

	if d := c.Duration(); d != 3*time.Second {
		t.Errorf("expected duration frozen at 3s after final snapshot, got %v", d)
	}
}

func TestCollector_CloseStopsTimer(t *testing.T) {
	clock := core.NewFakeClock(epoch)
	c := NewCollectorWithClock(clock)
	c.Report(snapshot(engine.KindProgress, 10, 1000, 5))

	clock.Advance(2 * time.Second)
	c.Close()
	clock.Advance(time.Hour)

	if d := c.Duration(); d != 2*time.Second {
		t.Errorf("expected 2s, got %v", d)
	}
}

func TestCollector_RestartOnReset(t *testing.T) {
	clock := core.NewFakeClock(epoch)
	c := NewCollectorWithClock(clock)

	c.Report(snapshot(engine.KindProgress, 800, 1000, 400))
	clock.Advance(5 * time.Second)
	c.Report(snapshot(engine.KindProgress, 0, 1000, 0))
	clock.Advance(time.Second)

	if c.Restarts() != 1 {
		t.Errorf("expected 1 restart, got %d", c.Restarts())
	}
	if d := c.Duration(); d != time.Second {
		t.Errorf("expected timer restarted at reset, got %v", d)
	}
}

func TestCollector_Compute(t *testing.T) {
	clock := core.NewFakeClock(epoch)
	c := NewCollectorWithClock(clock)
	clock.Advance(2 * time.Second)
	c.Report(snapshot(engine.KindDone, 1000, 1000, 510))

	s := c.Compute()
	if !s.Complete || s.Processed != 1000 || s.Sold != 510 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.DecisionsPerSec != 500 {
		t.Errorf("expected 500 decisions/sec, got %v", s.DecisionsPerSec)
	}
}

func TestCollector_ConcurrentReports(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Report(snapshot(engine.KindProgress, i*100+j, 10000, j))
			}
		}(i)
	}
	wg.Wait()

	if c.Seen() != 1000 {
		t.Errorf("expected 1000 snapshots, got %d", c.Seen())
	}
}
