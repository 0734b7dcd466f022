package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSweep is returned for empty, non-finite or oversized Q ranges.
var ErrInvalidSweep = errors.New("invalid sweep range")

// MaxSweepPoints bounds the number of points a single sweep may produce.
const MaxSweepPoints = 1_000_000

// SweepPoint is the analytic projection at one box size.
type SweepPoint struct {
	Q          float64
	Projection Projection
}

// Sweep evaluates ExpectedProfit for every Q from qMin to qMax inclusive.
// Only Q varies; all other parameters come from p.
func Sweep(p Params, qMin, qMax, step float64) ([]SweepPoint, error) {
	for _, v := range []float64{qMin, qMax, step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite bound", ErrInvalidSweep)
		}
	}
	if step <= 0 {
		return nil, fmt.Errorf("%w: step must be positive, got %v", ErrInvalidSweep, step)
	}
	if qMax < qMin {
		return nil, fmt.Errorf("%w: qMax %v below qMin %v", ErrInvalidSweep, qMax, qMin)
	}

	// Index-based stepping keeps fractional steps from drifting past qMax.
	n := math.Floor((qMax-qMin)/step+1e-9) + 1
	if math.IsInf(n, 0) || n > MaxSweepPoints {
		return nil, fmt.Errorf("%w: %v to %v by %v exceeds %d points", ErrInvalidSweep, qMin, qMax, step, MaxSweepPoints)
	}
	count := int(n)
	points := make([]SweepPoint, 0, count)
	for i := 0; i < count; i++ {
		q := qMin + float64(i)*step
		at := p
		at.Q = q
		points = append(points, SweepPoint{Q: q, Projection: ExpectedProfit(at)})
	}
	return points, nil
}

// Best returns the first point with the strictly greatest expected profit.
// ok is false for an empty sweep.
func Best(points []SweepPoint) (best SweepPoint, ok bool) {
	bestProfit := math.Inf(-1)
	for _, pt := range points {
		if pt.Projection.ExpectedProfit > bestProfit {
			best = pt
			bestProfit = pt.Projection.ExpectedProfit
			ok = true
		}
	}
	return best, ok
}
