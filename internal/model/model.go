// Package model computes the closed-form expectations of the two-segment
// demand model. Every function is pure and safe to call from any goroutine.
package model

import "math"

// Params are the pricing and population parameters shared by the analytic
// model and the simulation engine.
type Params struct {
	P           float64 `yaml:"price" json:"P"`           // unit price of a box
	Q           float64 `yaml:"quantity" json:"Q"`        // grams per box
	C           float64 `yaml:"costPerGram" json:"C"`     // marginal cost per gram
	Alpha       float64 `yaml:"alpha" json:"alpha"`       // informed share of customers
	VI          float64 `yaml:"informedValue" json:"V_I"` // informed max valuation per gram
	VU          float64 `yaml:"uninformedValue" json:"V_U"`
	StrictQStar bool    `yaml:"strictQStar" json:"strictQStar"`
	QStar       float64 `yaml:"qStar" json:"Q_star"`
	N           int     `yaml:"customers" json:"N"`
}

// Shares are the expected purchase probabilities per segment and overall.
type Shares struct {
	DI    float64 `json:"dI"`
	DU    float64 `json:"dU"`
	Total float64 `json:"total"`
}

// Projection is the analytic expectation for a full run of N customers.
type Projection struct {
	ExpectedSold   float64 `json:"expectedSold"`
	ExpectedProfit float64 `json:"expectedProfit"`
	Margin         float64 `json:"margin"`
	Shares         Shares  `json:"shares"`
}

// DemandInformed is the probability that an informed buyer, whose per-gram
// valuation is uniform on [0, vi], values the box above its price.
func DemandInformed(p, q, vi float64) float64 {
	if q <= 0 || vi <= 0 {
		return 0
	}
	return math.Max(0, 1-p/(q*vi))
}

// DemandUninformed is the probability that an uninformed buyer, whose box
// valuation is uniform on [0, vu], values the box above its price.
func DemandUninformed(p, vu float64) float64 {
	if vu <= 0 {
		return 0
	}
	return math.Max(0, 1-p/vu)
}

// NoticeIndicator is 1 when the box is above the threshold at which
// uninformed buyers notice the shrink.
func NoticeIndicator(q, qStar float64) float64 {
	if q > qStar {
		return 1
	}
	return 0
}

// UnitPrice is the per-gram price; +Inf for an empty box.
func UnitPrice(p, q float64) float64 {
	if q <= 0 {
		return math.Inf(1)
	}
	return p / q
}

// MarginPerBox may be negative for loss-making configurations.
func MarginPerBox(p, q, c float64) float64 {
	return p - c*q
}

// Clamp01 maps NaN to 0 and clamps x to [0, 1].
func Clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}

// ExpectedShares mixes both segments by the informed share.
func ExpectedShares(p Params) Shares {
	a := Clamp01(p.Alpha)
	dI := DemandInformed(p.P, p.Q, p.VI)
	dU := DemandUninformed(p.P, p.VU)
	if p.StrictQStar {
		dU *= NoticeIndicator(p.Q, p.QStar)
	}
	return Shares{
		DI:    dI,
		DU:    dU,
		Total: a*dI + (1-a)*dU,
	}
}

// ExpectedProfit projects sales and profit over N customers.
func ExpectedProfit(p Params) Projection {
	margin := MarginPerBox(p.P, p.Q, p.C)
	shares := ExpectedShares(p)
	sold := float64(p.N) * shares.Total
	return Projection{
		ExpectedSold:   sold,
		ExpectedProfit: sold * margin,
		Margin:         margin,
		Shares:         shares,
	}
}

// PercentError is NaN when expected is zero or not finite.
func PercentError(sim, expected float64) float64 {
	if expected == 0 || math.IsNaN(expected) || math.IsInf(expected, 0) {
		return math.NaN()
	}
	return (sim - expected) / expected * 100
}

// Regime classifies a configuration by whether informed demand survives.
type Regime int

const (
	Normal Regime = iota
	// ShrinkRay means the box is small enough that informed buyers are
	// priced out while uninformed demand is untouched.
	ShrinkRay
)

func (r Regime) String() string {
	if r == ShrinkRay {
		return "shrink-ray"
	}
	return "normal"
}

// ClassifyRegime reports ShrinkRay when Q is at or below the per-gram
// break-even P/VI.
func ClassifyRegime(p Params) Regime {
	if p.Q <= 0 || p.VI <= 0 || p.Q <= p.P/p.VI {
		return ShrinkRay
	}
	return Normal
}
