package engine

import "shrinkray/internal/model"

// Phase is the engine's run state.
type Phase int

const (
	Ready Phase = iota
	Running
	Paused
	Done
)

func (p Phase) String() string {
	switch p {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Kind tags a snapshot as intermediate progress or the final record of a run.
type Kind int

const (
	KindProgress Kind = iota
	KindDone
)

func (k Kind) String() string {
	if k == KindDone {
		return "done"
	}
	return "progress"
}

// MarshalText lets snapshots encode their kind as "progress" or "done".
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Snapshot is an immutable copy of the run counters together with the
// analytic projection for the same configuration.
type Snapshot struct {
	Kind  Kind  `json:"type"`
	Phase Phase `json:"phase"`

	Processed      int     `json:"processed"`
	N              int     `json:"N"`
	Sold           int     `json:"sold"`
	SoldInformed   int     `json:"soldInformed"`
	SoldUninformed int     `json:"soldUninformed"`
	Revenue        float64 `json:"revenue"`
	Cost           float64 `json:"cost"`
	Profit         float64 `json:"profit"`

	AnalyticSold   float64      `json:"analyticSold"`
	AnalyticProfit float64      `json:"analyticProfit"`
	Margin         float64      `json:"margin"`
	Shares         model.Shares `json:"shares"`
}

// Final reports whether this is the terminal snapshot of a run.
func (s Snapshot) Final() bool {
	return s.Kind == KindDone
}

// Reporter receives snapshots. The engine calls it synchronously from the
// goroutine that drives it.
type Reporter interface {
	Report(Snapshot)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Snapshot)

func (f ReporterFunc) Report(s Snapshot) { f(s) }

// NullReporter discards all snapshots.
var NullReporter Reporter = nullReporter{}

type nullReporter struct{}

func (nullReporter) Report(Snapshot) {}
