// Package engine runs the Monte Carlo purchase simulation incrementally.
//
// An Engine is a single-goroutine state machine: commands change its phase,
// and Slice executes decisions for at most one yield interval before
// returning control to the caller. Host wraps an Engine in its own goroutine
// behind a command channel.
package engine

import (
	"context"
	"time"

	"shrinkray/internal/core"
	"shrinkray/internal/model"
	"shrinkray/internal/rng"
)

// RunState holds the counters accumulated since the last configure or reset.
type RunState struct {
	Processed      int
	Sold           int
	SoldInformed   int
	SoldUninformed int
	Revenue        float64
	Cost           float64
}

// Engine is NOT safe for concurrent use.
type Engine struct {
	clock    core.Clock
	reporter Reporter

	cfg      Config
	hasCfg   bool
	rng      *rng.XorShift32
	state    RunState
	phase    Phase
	lastEmit time.Time
}

// New creates an unconfigured engine. Until Configure succeeds, Run and
// Reset are no-ops.
func New(clock core.Clock, reporter Reporter) *Engine {
	if clock == nil {
		clock = core.RealClock{}
	}
	if reporter == nil {
		reporter = NullReporter
	}
	return &Engine{clock: clock, reporter: reporter}
}

// Configure validates cfg and, if valid, replaces the configuration, reseeds
// the random source, zeroes the counters and emits one snapshot. An invalid
// cfg leaves the engine exactly as it was.
func (e *Engine) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg
	e.hasCfg = true
	e.resetState()
	e.emit(KindProgress)
	return nil
}

// Run starts or resumes execution. It only changes the phase; the caller
// drives progress with Slice.
func (e *Engine) Run() {
	if !e.hasCfg {
		return
	}
	if e.phase == Ready || e.phase == Paused {
		e.phase = Running
	}
}

// Pause stops a running engine at the current slice boundary.
func (e *Engine) Pause() {
	if e.phase == Running {
		e.phase = Paused
	}
}

// Reset reseeds and zeroes the counters against the current configuration.
func (e *Engine) Reset() {
	if !e.hasCfg {
		return
	}
	e.resetState()
	e.emit(KindProgress)
}

// Phase returns the current run state.
func (e *Engine) Phase() Phase {
	return e.phase
}

// Configured reports whether a configuration has been accepted.
func (e *Engine) Configured() bool {
	return e.hasCfg
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// State returns a copy of the counters.
func (e *Engine) State() RunState {
	return e.state
}

// Snapshot builds a record of the current state without emitting it. Its
// kind is KindDone once the run has completed.
func (e *Engine) Snapshot() Snapshot {
	if e.phase == Done {
		return e.snapshot(KindDone)
	}
	return e.snapshot(KindProgress)
}

// Slice executes batches until the yield interval elapses, the engine is
// paused, or all N decisions are done. It reports whether the engine is
// still running and wants another slice.
func (e *Engine) Slice() bool {
	if e.phase != Running {
		return false
	}

	start := e.clock.Now()
	for e.phase == Running && e.state.Processed < e.cfg.N {
		steps := e.cfg.BatchSize
		if remaining := e.cfg.N - e.state.Processed; remaining < steps {
			steps = remaining
		}
		for i := 0; i < steps; i++ {
			e.decideOne()
		}

		now := e.clock.Now()
		if now.Sub(e.lastEmit) >= e.cfg.EmitEvery {
			e.emit(KindProgress)
		}
		if now.Sub(start) >= e.cfg.YieldEvery {
			break
		}
	}

	if e.state.Processed >= e.cfg.N {
		e.phase = Done
		e.emit(KindDone)
		return false
	}
	return e.phase == Running
}

// RunToCompletion runs the engine synchronously until it is done or ctx is
// cancelled, checking ctx between slices. A cancelled run is left Paused.
func (e *Engine) RunToCompletion(ctx context.Context) error {
	e.Run()
	for e.Slice() {
		if err := ctx.Err(); err != nil {
			e.Pause()
			return err
		}
	}
	return nil
}

// decideOne simulates a single customer. It draws from the random source
// once for the segment and once for the valuation.
func (e *Engine) decideOne() {
	c := &e.cfg
	e.state.Processed++

	if e.rng.Bernoulli(c.Alpha) {
		v := e.rng.Uniform(0, c.VI)
		if v >= model.UnitPrice(c.P, c.Q) {
			e.state.SoldInformed++
			e.recordSale()
		}
		return
	}

	v := e.rng.Uniform(0, c.VU)
	if v < c.P {
		return
	}
	if c.StrictQStar && c.Q <= c.QStar {
		return
	}
	e.state.SoldUninformed++
	e.recordSale()
}

func (e *Engine) recordSale() {
	e.state.Sold++
	e.state.Revenue += e.cfg.P
	e.state.Cost += e.cfg.C * e.cfg.Q
}

func (e *Engine) resetState() {
	e.rng = rng.New(e.cfg.Seed)
	e.state = RunState{}
	e.phase = Ready
	e.lastEmit = e.clock.Now()
}

func (e *Engine) emit(kind Kind) {
	e.reporter.Report(e.snapshot(kind))
	e.lastEmit = e.clock.Now()
}

func (e *Engine) snapshot(kind Kind) Snapshot {
	proj := model.ExpectedProfit(e.cfg.Params)
	return Snapshot{
		Kind:           kind,
		Phase:          e.phase,
		Processed:      e.state.Processed,
		N:              e.cfg.N,
		Sold:           e.state.Sold,
		SoldInformed:   e.state.SoldInformed,
		SoldUninformed: e.state.SoldUninformed,
		Revenue:        e.state.Revenue,
		Cost:           e.state.Cost,
		Profit:         e.state.Revenue - e.state.Cost,
		AnalyticSold:   proj.ExpectedSold,
		AnalyticProfit: proj.ExpectedProfit,
		Margin:         proj.Margin,
		Shares:         proj.Shares,
	}
}
