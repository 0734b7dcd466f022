package collector

import (
	"math"
	"time"

	"shrinkray/internal/engine"
	"shrinkray/internal/model"
)

// Summary compares a (possibly partial) run with the analytic model.
type Summary struct {
	Processed int
	N         int
	Complete  bool

	Sold           int
	SoldInformed   int
	SoldUninformed int
	Revenue        float64
	Cost           float64
	Profit         float64

	// Analytic expectations scaled to the customers processed so far.
	// For a complete run they equal the snapshot's analytic totals.
	ExpectedSold   float64
	ExpectedProfit float64
	Margin         float64
	Shares         model.Shares

	SoldShare   float64 // Sold / Processed
	SoldError   float64 // percent, NaN when the expectation is zero
	ProfitError float64 // percent, NaN when the expectation is zero

	Duration        time.Duration
	DecisionsPerSec float64
}

// ComputeSummary derives a Summary from a snapshot. Pure function, no side effects.
func ComputeSummary(s engine.Snapshot, d time.Duration) *Summary {
	sum := &Summary{
		Processed:      s.Processed,
		N:              s.N,
		Complete:       s.Final(),
		Sold:           s.Sold,
		SoldInformed:   s.SoldInformed,
		SoldUninformed: s.SoldUninformed,
		Revenue:        s.Revenue,
		Cost:           s.Cost,
		Profit:         s.Profit,
		Margin:         s.Margin,
		Shares:         s.Shares,
		Duration:       d,
	}

	fraction := 0.0
	switch {
	case s.Processed >= s.N:
		fraction = 1
	case s.N > 0:
		fraction = float64(s.Processed) / float64(s.N)
	}
	sum.ExpectedSold = s.AnalyticSold * fraction
	sum.ExpectedProfit = s.AnalyticProfit * fraction

	if s.Processed > 0 {
		sum.SoldShare = float64(s.Sold) / float64(s.Processed)
	}
	sum.SoldError = model.PercentError(float64(s.Sold), sum.ExpectedSold)
	sum.ProfitError = model.PercentError(s.Profit, sum.ExpectedProfit)

	if d > 0 {
		sum.DecisionsPerSec = float64(s.Processed) / d.Seconds()
	}
	return sum
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
