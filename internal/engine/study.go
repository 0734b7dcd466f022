package engine

import (
	"context"
	"fmt"
	"math"

	"shrinkray/internal/core"
	"shrinkray/internal/model"
)

// DefaultStudySizes are the customer counts used when none are given.
var DefaultStudySizes = []int{1_000, 10_000, 100_000, 1_000_000}

// ConvergencePoint compares the simulated sell-through at one N with the
// analytic share.
type ConvergencePoint struct {
	N             int
	Sold          int
	SoldShare     float64
	ExpectedShare float64
	RelativeError float64 // |SoldShare-ExpectedShare|/ExpectedShare, NaN if ExpectedShare is 0
}

// Converge runs one fresh engine per size, one after another, with every
// other parameter taken from base. Sizes run sequentially; there is never
// more than one engine sampling at a time.
func Converge(ctx context.Context, base Config, sizes []int) ([]ConvergencePoint, error) {
	if len(sizes) == 0 {
		sizes = DefaultStudySizes
	}
	expected := model.ExpectedShares(base.Params).Total

	points := make([]ConvergencePoint, 0, len(sizes))
	for _, n := range sizes {
		cfg := base
		cfg.N = n
		// Nobody watches intermediate progress; slices still yield so ctx
		// is honoured.
		cfg.EmitEvery = math.MaxInt64

		eng := New(core.RealClock{}, nil)
		if err := eng.Configure(cfg); err != nil {
			return nil, fmt.Errorf("size %d: %w", n, err)
		}
		if err := eng.RunToCompletion(ctx); err != nil {
			return points, err
		}

		st := eng.State()
		pt := ConvergencePoint{N: n, Sold: st.Sold, ExpectedShare: expected, RelativeError: math.NaN()}
		if n > 0 {
			pt.SoldShare = float64(st.Sold) / float64(n)
		}
		if expected != 0 {
			pt.RelativeError = math.Abs(pt.SoldShare-expected) / expected
		}
		points = append(points, pt)
	}
	return points, nil
}
