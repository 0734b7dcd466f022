package engine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"shrinkray/internal/core"
	"shrinkray/internal/model"
)

// recordingReporter collects snapshots for inspection.
type recordingReporter struct {
	snaps []Snapshot
}

func (r *recordingReporter) Report(s Snapshot) {
	r.snaps = append(r.snaps, s)
}

func (r *recordingReporter) last() Snapshot {
	return r.snaps[len(r.snaps)-1]
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testConfig(n int, seed uint32) Config {
	return Config{
		Params: model.Params{
			P: 4, Q: 100, C: 0.02, Alpha: 0.3, VI: 0.08, VU: 8, QStar: 60, N: n,
		},
		Seed:       seed,
		BatchSize:  100,
		EmitEvery:  time.Hour,
		YieldEvery: MaxYieldEvery,
	}
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *recordingReporter) {
	t.Helper()
	rep := &recordingReporter{}
	e := New(core.NewFakeClock(epoch), rep)
	if err := e.Configure(cfg); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	return e, rep
}

func runAll(t *testing.T, e *Engine) {
	t.Helper()
	if err := e.RunToCompletion(context.Background()); err != nil {
		t.Fatalf("RunToCompletion: %v", err)
	}
}

func TestEngine_ConfigureEmitsReadySnapshot(t *testing.T) {
	_, rep := newTestEngine(t, testConfig(1000, 1))

	if len(rep.snaps) != 1 {
		t.Fatalf("expected 1 snapshot after configure, got %d", len(rep.snaps))
	}
	s := rep.snaps[0]
	if s.Kind != KindProgress || s.Phase != Ready {
		t.Errorf("expected progress/ready snapshot, got %v/%v", s.Kind, s.Phase)
	}
	if s.Processed != 0 || s.N != 1000 {
		t.Errorf("expected 0/1000, got %d/%d", s.Processed, s.N)
	}
	if math.Abs(s.AnalyticSold-500) > 1e-9 || s.Margin != 2 {
		t.Errorf("expected analytic sold 500 and margin 2, got %v and %v", s.AnalyticSold, s.Margin)
	}
}

func TestEngine_GoldenCounts(t *testing.T) {
	e, rep := newTestEngine(t, testConfig(10000, 12345))
	runAll(t, e)

	st := e.State()
	if st.Sold != 4954 || st.SoldInformed != 1435 || st.SoldUninformed != 3519 {
		t.Errorf("unexpected counts: %+v", st)
	}
	if st.Revenue != 19816 || st.Cost != 9908 {
		t.Errorf("unexpected revenue/cost: %v/%v", st.Revenue, st.Cost)
	}
	if !rep.last().Final() {
		t.Error("expected final snapshot to be tagged done")
	}
}

func TestEngine_Determinism(t *testing.T) {
	a, _ := newTestEngine(t, testConfig(50000, 777))
	b, _ := newTestEngine(t, testConfig(50000, 777))
	runAll(t, a)
	runAll(t, b)

	if a.State() != b.State() {
		t.Errorf("runs diverged: %+v vs %+v", a.State(), b.State())
	}
}

func TestEngine_DifferentSeedsDiverge(t *testing.T) {
	a, _ := newTestEngine(t, testConfig(50000, 1))
	b, _ := newTestEngine(t, testConfig(50000, 2))
	runAll(t, a)
	runAll(t, b)

	if a.State() == b.State() {
		t.Error("expected different seeds to produce different counts")
	}
}

func TestEngine_ResumeMatchesStraightRun(t *testing.T) {
	straight, _ := newTestEngine(t, testConfig(20000, 4242))
	runAll(t, straight)

	for _, pauseAfter := range []int{1, 7, 50, 199} {
		cfg := testConfig(20000, 4242)
		cfg.YieldEvery = 0 // one batch per slice
		e, _ := newTestEngine(t, cfg)

		e.Run()
		for i := 0; i < pauseAfter; i++ {
			e.Slice()
		}
		e.Pause()
		if e.Phase() != Paused {
			t.Fatalf("expected paused, got %v", e.Phase())
		}
		if got := e.State().Processed; got != pauseAfter*cfg.BatchSize {
			t.Fatalf("expected %d processed at pause, got %d", pauseAfter*cfg.BatchSize, got)
		}
		if e.Slice() {
			t.Fatal("Slice on a paused engine should not run")
		}

		runAll(t, e)
		if e.State() != straight.State() {
			t.Errorf("pause after %d slices: got %+v, expected %+v", pauseAfter, e.State(), straight.State())
		}
	}
}

func TestEngine_BatchSizeDoesNotChangeOutcome(t *testing.T) {
	var reference RunState
	for i, batch := range []int{1, 3, 100, 2500, 1_000_000} {
		cfg := testConfig(12345, 99)
		cfg.BatchSize = batch
		e, _ := newTestEngine(t, cfg)
		runAll(t, e)

		if i == 0 {
			reference = e.State()
			continue
		}
		if e.State() != reference {
			t.Errorf("batch %d: got %+v, expected %+v", batch, e.State(), reference)
		}
	}
}

func TestEngine_SnapshotsAreMonotonic(t *testing.T) {
	cfg := testConfig(5000, 31337)
	cfg.EmitEvery = 0 // every batch
	e, rep := newTestEngine(t, cfg)
	runAll(t, e)

	// configure + 50 batches + done
	if len(rep.snaps) != 52 {
		t.Fatalf("expected 52 snapshots, got %d", len(rep.snaps))
	}

	var prev Snapshot
	for i, s := range rep.snaps {
		if s.SoldInformed+s.SoldUninformed != s.Sold {
			t.Errorf("snapshot %d: %d + %d != %d", i, s.SoldInformed, s.SoldUninformed, s.Sold)
		}
		if s.Sold > s.Processed || s.Processed > s.N {
			t.Errorf("snapshot %d: sold %d, processed %d, N %d", i, s.Sold, s.Processed, s.N)
		}
		if s.Processed < prev.Processed || s.Sold < prev.Sold || s.Revenue < prev.Revenue || s.Cost < prev.Cost {
			t.Errorf("snapshot %d decreased: %+v after %+v", i, s, prev)
		}
		if s.Profit != s.Revenue-s.Cost {
			t.Errorf("snapshot %d: profit %v != revenue-cost %v", i, s.Profit, s.Revenue-s.Cost)
		}
		prev = s
	}

	for i, s := range rep.snaps[:len(rep.snaps)-1] {
		if s.Final() {
			t.Errorf("snapshot %d unexpectedly final", i)
		}
	}
	if final := rep.last(); !final.Final() || final.Processed != 5000 || final.Phase != Done {
		t.Errorf("unexpected final snapshot: %+v", final)
	}
}

func TestEngine_YieldBoundsSlice(t *testing.T) {
	cfg := testConfig(1000, 5)
	cfg.BatchSize = 10
	cfg.YieldEvery = 12 * time.Millisecond
	rep := &recordingReporter{}
	// Each clock read moves time 5ms: the third batch boundary sees 15ms.
	e := New(core.NewSteppingClock(epoch, 5*time.Millisecond), rep)
	if err := e.Configure(cfg); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	e.Run()
	if !e.Slice() {
		t.Fatal("expected engine to want another slice")
	}
	if got := e.State().Processed; got != 30 {
		t.Errorf("expected 30 decisions in first slice, got %d", got)
	}
	if e.Phase() != Running {
		t.Errorf("expected running after yield, got %v", e.Phase())
	}
}

func TestEngine_EmitInterval(t *testing.T) {
	cfg := testConfig(1000, 5)
	cfg.BatchSize = 100
	cfg.EmitEvery = 0
	cfg.YieldEvery = MaxYieldEvery
	e, rep := newTestEngine(t, cfg)
	runAll(t, e)
	// configure + 10 batches + done
	if len(rep.snaps) != 12 {
		t.Errorf("expected 12 snapshots with zero emit interval, got %d", len(rep.snaps))
	}

	cfg.EmitEvery = time.Hour
	e, rep = newTestEngine(t, cfg)
	runAll(t, e)
	// configure + done
	if len(rep.snaps) != 2 {
		t.Errorf("expected 2 snapshots with long emit interval, got %d", len(rep.snaps))
	}
}

func TestEngine_StrictQStarBlocksUninformed(t *testing.T) {
	cfg := testConfig(200000, 8)
	cfg.Q = 50
	cfg.QStar = 60
	cfg.StrictQStar = true
	cfg.VU = 100
	cfg.BatchSize = 5000
	e, _ := newTestEngine(t, cfg)
	runAll(t, e)

	if st := e.State(); st.SoldUninformed != 0 {
		t.Errorf("expected no uninformed sales under strict gating, got %d", st.SoldUninformed)
	}
}

func TestEngine_EmptyBoxNeverSellsToInformed(t *testing.T) {
	cfg := testConfig(20000, 3)
	cfg.Q = 0
	e, _ := newTestEngine(t, cfg)
	runAll(t, e)

	st := e.State()
	if st.SoldInformed != 0 {
		t.Errorf("expected no informed sales for Q=0, got %d", st.SoldInformed)
	}
	if st.Cost != 0 {
		t.Errorf("expected zero cost for Q=0, got %v", st.Cost)
	}
}

func TestEngine_ReconfigureResets(t *testing.T) {
	cfg := testConfig(10000, 1)
	cfg.YieldEvery = 0
	e, rep := newTestEngine(t, cfg)
	e.Run()
	for i := 0; i < 5; i++ {
		e.Slice()
	}
	if e.State().Processed == 0 {
		t.Fatal("expected some progress before reconfigure")
	}

	next := testConfig(10000, 2024)
	next.BatchSize = 1
	next.YieldEvery = 0
	if err := e.Configure(next); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if e.State() != (RunState{}) {
		t.Errorf("expected zeroed state, got %+v", e.State())
	}
	if e.Phase() != Ready {
		t.Errorf("expected ready, got %v", e.Phase())
	}
	if s := rep.last(); s.Processed != 0 || s.Sold != 0 || s.Revenue != 0 || s.Cost != 0 {
		t.Errorf("expected zeroed snapshot, got %+v", s)
	}

	fresh, _ := newTestEngine(t, next)
	e.Run()
	e.Slice()
	fresh.Run()
	fresh.Slice()
	if e.State() != fresh.State() {
		t.Errorf("first decision differs: %+v vs %+v", e.State(), fresh.State())
	}
}

func TestEngine_InvalidConfigureKeepsState(t *testing.T) {
	cfg := testConfig(10000, 1)
	cfg.YieldEvery = 0
	e, rep := newTestEngine(t, cfg)
	e.Run()
	e.Slice()
	e.Slice()
	before := e.State()
	emitted := len(rep.snaps)

	bad := testConfig(-1, 1)
	err := e.Configure(bad)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if e.State() != before {
		t.Errorf("state changed: %+v vs %+v", e.State(), before)
	}
	if e.Phase() != Running {
		t.Errorf("expected phase to stay running, got %v", e.Phase())
	}
	if e.Config().N != 10000 {
		t.Errorf("expected previous configuration to remain, got N=%d", e.Config().N)
	}
	if len(rep.snaps) != emitted {
		t.Error("invalid configure should not emit")
	}
}

func TestEngine_UnconfiguredCommandsAreNoOps(t *testing.T) {
	rep := &recordingReporter{}
	e := New(core.NewFakeClock(epoch), rep)

	e.Run()
	e.Pause()
	e.Reset()
	if e.Slice() {
		t.Error("unconfigured engine should not run")
	}
	if e.Phase() != Ready || e.Configured() {
		t.Errorf("expected unconfigured ready engine, got %v configured=%v", e.Phase(), e.Configured())
	}
	if len(rep.snaps) != 0 {
		t.Errorf("expected no snapshots, got %d", len(rep.snaps))
	}
}

func TestEngine_PhaseTransitions(t *testing.T) {
	cfg := testConfig(1000, 1)
	cfg.YieldEvery = 0

	t.Run("pause in ready is a no-op", func(t *testing.T) {
		e, _ := newTestEngine(t, cfg)
		e.Pause()
		if e.Phase() != Ready {
			t.Errorf("expected ready, got %v", e.Phase())
		}
	})

	t.Run("run while running is a no-op", func(t *testing.T) {
		e, _ := newTestEngine(t, cfg)
		e.Run()
		e.Slice()
		processed := e.State().Processed
		e.Run()
		if e.Phase() != Running || e.State().Processed != processed {
			t.Errorf("expected unchanged running engine, got %v/%d", e.Phase(), e.State().Processed)
		}
	})

	t.Run("double pause is a no-op", func(t *testing.T) {
		e, _ := newTestEngine(t, cfg)
		e.Run()
		e.Slice()
		e.Pause()
		e.Pause()
		if e.Phase() != Paused {
			t.Errorf("expected paused, got %v", e.Phase())
		}
	})

	t.Run("run after done is a no-op", func(t *testing.T) {
		e, rep := newTestEngine(t, cfg)
		runAll(t, e)
		emitted := len(rep.snaps)
		e.Run()
		if e.Phase() != Done {
			t.Errorf("expected done, got %v", e.Phase())
		}
		if e.Slice() || len(rep.snaps) != emitted {
			t.Error("done engine should not run again")
		}
	})

	t.Run("reset from done returns to ready", func(t *testing.T) {
		e, rep := newTestEngine(t, cfg)
		runAll(t, e)
		e.Reset()
		if e.Phase() != Ready || e.State() != (RunState{}) {
			t.Errorf("expected zeroed ready engine, got %v %+v", e.Phase(), e.State())
		}
		if s := rep.last(); s.Final() || s.Processed != 0 {
			t.Errorf("expected zeroed progress snapshot, got %+v", s)
		}
	})

	t.Run("reset while running stops the loop", func(t *testing.T) {
		e, _ := newTestEngine(t, cfg)
		e.Run()
		e.Slice()
		e.Reset()
		if e.Phase() != Ready || e.Slice() {
			t.Errorf("expected reset engine not to run, phase %v", e.Phase())
		}
	})
}

func TestEngine_ResetReplaysSameSequence(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(3000, 10))
	runAll(t, e)
	first := e.State()

	e.Reset()
	runAll(t, e)
	if e.State() != first {
		t.Errorf("reset run differs: %+v vs %+v", e.State(), first)
	}
}

func TestEngine_SnapshotDoesNotEmit(t *testing.T) {
	cfg := testConfig(1000, 8)
	cfg.YieldEvery = 0
	e, rep := newTestEngine(t, cfg)
	e.Run()
	e.Slice()
	e.Pause()

	emitted := len(rep.snaps)
	s := e.Snapshot()
	if len(rep.snaps) != emitted {
		t.Errorf("Snapshot emitted %d records", len(rep.snaps)-emitted)
	}
	if s.Final() || s.Phase != Paused || s.Processed != cfg.BatchSize || s.Sold != e.State().Sold {
		t.Errorf("unexpected paused snapshot: %+v", s)
	}

	runAll(t, e)
	if s := e.Snapshot(); !s.Final() || s != rep.last() {
		t.Errorf("expected snapshot after completion to equal the done record, got %+v", s)
	}
}

func TestEngine_ZeroCustomers(t *testing.T) {
	e, rep := newTestEngine(t, testConfig(0, 1))
	e.Run()
	if e.Slice() {
		t.Error("expected no further slices for N=0")
	}
	if e.Phase() != Done {
		t.Errorf("expected done, got %v", e.Phase())
	}
	if s := rep.last(); !s.Final() || s.Processed != 0 || s.AnalyticSold != 0 {
		t.Errorf("unexpected final snapshot: %+v", s)
	}
}

func TestEngine_RunToCompletionHonoursContext(t *testing.T) {
	cfg := testConfig(100000, 1)
	cfg.YieldEvery = 0
	e, _ := newTestEngine(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.RunToCompletion(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if e.Phase() != Paused {
		t.Errorf("expected paused after cancellation, got %v", e.Phase())
	}
	if got := e.State().Processed; got != cfg.BatchSize {
		t.Errorf("expected one batch before cancellation was seen, got %d", got)
	}
}

func TestEngine_SimulationTracksAnalytic(t *testing.T) {
	e, rep := newTestEngine(t, testConfig(200000, 2718))
	runAll(t, e)

	final := rep.last()
	errPct := model.PercentError(float64(final.Sold), final.AnalyticSold)
	if math.Abs(errPct) > 1.5 {
		t.Errorf("sold %d vs analytic %.0f: error %.2f%% too large", final.Sold, final.AnalyticSold, errPct)
	}
}
