package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"shrinkray/internal/model"
)

// ErrInvalidConfig marks a configuration the engine refuses to run.
var ErrInvalidConfig = errors.New("invalid configuration")

// MaxYieldEvery caps YieldEvery. Commands sent to a Host wait for the
// current slice, so this is also the worst-case pause latency.
const MaxYieldEvery = time.Second

// Config is everything one run needs. It is copied into the engine on
// Configure and never modified afterwards.
type Config struct {
	model.Params

	Seed       uint32
	BatchSize  int           // decisions between clock checks
	EmitEvery  time.Duration // minimum gap between progress snapshots
	YieldEvery time.Duration // maximum length of one slice, at most MaxYieldEvery
}

// Validate rejects configurations that would produce NaN or Inf
// downstream or never terminate. It never clamps.
func (c Config) Validate() error {
	floats := []struct {
		name string
		v    float64
	}{
		{"P", c.P}, {"Q", c.Q}, {"C", c.C}, {"alpha", c.Alpha},
		{"V_I", c.VI}, {"V_U", c.VU}, {"Q_star", c.QStar},
	}
	for _, f := range floats {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidConfig, f.name, f.v)
		}
	}

	switch {
	case c.N < 0:
		return fmt.Errorf("%w: N must be non-negative, got %d", ErrInvalidConfig, c.N)
	case c.P <= 0:
		return fmt.Errorf("%w: P must be positive, got %v", ErrInvalidConfig, c.P)
	case c.Q < 0:
		return fmt.Errorf("%w: Q must be non-negative, got %v", ErrInvalidConfig, c.Q)
	case c.C < 0:
		return fmt.Errorf("%w: C must be non-negative, got %v", ErrInvalidConfig, c.C)
	case c.Alpha < 0 || c.Alpha > 1:
		return fmt.Errorf("%w: alpha must be in [0,1], got %v", ErrInvalidConfig, c.Alpha)
	case c.VI < 0:
		return fmt.Errorf("%w: V_I must be non-negative, got %v", ErrInvalidConfig, c.VI)
	case c.VU < 0:
		return fmt.Errorf("%w: V_U must be non-negative, got %v", ErrInvalidConfig, c.VU)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batchSize must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	case c.EmitEvery < 0:
		return fmt.Errorf("%w: emitEvery must be non-negative, got %v", ErrInvalidConfig, c.EmitEvery)
	case c.YieldEvery < 0 || c.YieldEvery > MaxYieldEvery:
		return fmt.Errorf("%w: yieldEvery must be in [0, %v], got %v", ErrInvalidConfig, MaxYieldEvery, c.YieldEvery)
	}
	return nil
}
