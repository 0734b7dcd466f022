// Package metrics exports simulation progress as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shrinkray/internal/engine"
	"shrinkray/internal/model"
)

var phases = []engine.Phase{engine.Ready, engine.Running, engine.Paused, engine.Done}

// Recorder mirrors the latest snapshot into gauges. It implements
// engine.Reporter.
type Recorder struct {
	Processed      prometheus.Gauge
	Customers      prometheus.Gauge
	Sold           *prometheus.GaugeVec
	Profit         prometheus.Gauge
	AnalyticProfit prometheus.Gauge
	ProfitError    prometheus.Gauge
	Phase          *prometheus.GaugeVec
	Snapshots      *prometheus.CounterVec
}

// NewRecorder registers the simulation metrics with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		Processed: f.NewGauge(prometheus.GaugeOpts{
			Name: "shrinkray_customers_processed",
			Help: "Customers simulated so far in the current run",
		}),
		Customers: f.NewGauge(prometheus.GaugeOpts{
			Name: "shrinkray_customers_target",
			Help: "Customers configured for the current run",
		}),
		Sold: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shrinkray_boxes_sold",
			Help: "Boxes sold so far, by customer segment",
		}, []string{"segment"}),
		Profit: f.NewGauge(prometheus.GaugeOpts{
			Name: "shrinkray_profit_dollars",
			Help: "Simulated profit so far",
		}),
		AnalyticProfit: f.NewGauge(prometheus.GaugeOpts{
			Name: "shrinkray_analytic_profit_dollars",
			Help: "Analytic expected profit for the full run",
		}),
		ProfitError: f.NewGauge(prometheus.GaugeOpts{
			Name: "shrinkray_profit_error_percent",
			Help: "Simulated profit vs. the analytic expectation scaled to progress",
		}),
		Phase: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shrinkray_run_phase",
			Help: "1 for the engine's current phase, 0 otherwise",
		}, []string{"phase"}),
		Snapshots: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shrinkray_snapshots_total",
			Help: "Snapshots emitted by the engine, by kind",
		}, []string{"kind"}),
	}
}

func (r *Recorder) Report(s engine.Snapshot) {
	if r == nil {
		return
	}
	r.Processed.Set(float64(s.Processed))
	r.Customers.Set(float64(s.N))
	r.Sold.WithLabelValues("informed").Set(float64(s.SoldInformed))
	r.Sold.WithLabelValues("uninformed").Set(float64(s.SoldUninformed))
	r.Profit.Set(s.Profit)
	r.AnalyticProfit.Set(s.AnalyticProfit)

	expected := 0.0
	if s.N > 0 {
		expected = s.AnalyticProfit * float64(s.Processed) / float64(s.N)
	}
	r.ProfitError.Set(model.PercentError(s.Profit, expected))

	for _, p := range phases {
		v := 0.0
		if p == s.Phase {
			v = 1
		}
		r.Phase.WithLabelValues(p.String()).Set(v)
	}
	r.Snapshots.WithLabelValues(s.Kind.String()).Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
