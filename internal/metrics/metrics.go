// Package metrics holds the Prometheus instruments for selection, capture and
// posterior updates. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ctxlearn"

// Selection paths.
const (
	PathOracle   = "oracle"
	PathFallback = "fallback"
	PathBaseline = "baseline"
	PathPassive  = "passive"
)

// #region metrics
// Metrics groups every instrument. Create one per registry.
type Metrics struct {
	// Labels: path (oracle, fallback, baseline, passive)
	SelectionsTotal *prometheus.CounterVec

	ExplorationForcedTotal prometheus.Counter

	// Labels: kind (updated, created)
	PosteriorUpdatesTotal *prometheus.CounterVec

	// Labels: reason (gate veto type)
	GatedTracesTotal *prometheus.CounterVec

	// Labels: op (capture, update, select, observe)
	BestEffortFailuresTotal *prometheus.CounterVec

	// Labels: method (select, observe), status (ok, error)
	OracleCallSeconds *prometheus.HistogramVec
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SelectionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_total",
			Help:      "Context selections by decision path",
		}, []string{"path"}),
		ExplorationForcedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exploration_forced_total",
			Help:      "Arms force-included by the exploration floor",
		}),
		PosteriorUpdatesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posterior_updates_total",
			Help:      "Posterior writes by kind",
		}, []string{"kind"}),
		GatedTracesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gated_traces_total",
			Help:      "Traces kept out of posterior updates by veto reason",
		}, []string{"reason"}),
		BestEffortFailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "best_effort_failures_total",
			Help:      "Errors swallowed at the best-effort boundary",
		}, []string{"op"}),
		OracleCallSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_call_seconds",
			Help:      "Decision oracle call latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "status"}),
	}
}

// #endregion metrics

// #region recorders
func (m *Metrics) Selection(path string) {
	if m == nil {
		return
	}
	m.SelectionsTotal.WithLabelValues(path).Inc()
}

func (m *Metrics) ExplorationForced(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ExplorationForcedTotal.Add(float64(n))
}

func (m *Metrics) PosteriorUpdates(updated, created int) {
	if m == nil {
		return
	}
	if updated > 0 {
		m.PosteriorUpdatesTotal.WithLabelValues("updated").Add(float64(updated))
	}
	if created > 0 {
		m.PosteriorUpdatesTotal.WithLabelValues("created").Add(float64(created))
	}
}

func (m *Metrics) Gated(reason string) {
	if m == nil {
		return
	}
	m.GatedTracesTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) BestEffortFailure(op string) {
	if m == nil {
		return
	}
	m.BestEffortFailuresTotal.WithLabelValues(op).Inc()
}

// OracleCall observes the latency since start.
func (m *Metrics) OracleCall(method string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.OracleCallSeconds.WithLabelValues(method, status).Observe(time.Since(start).Seconds())
}

// #endregion recorders
