package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the integrity pipeline. A nil *Metrics is
// a valid no-op recorder.
type Metrics struct {
	// Oracle call latency by provider, judgment and outcome
	OracleLatency *prometheus.HistogramVec

	// Fallback values consumed after a failed oracle call, by judgment
	OracleFallbacks *prometheus.CounterVec

	// Turn outcomes by domain and decision (gated, refused, disclosed)
	TurnOutcome *prometheus.CounterVec

	// Final integrity score distribution by domain
	IntegrityScore *prometheus.HistogramVec

	// Full turn latency
	TurnLatency prometheus.Histogram
}

// New registers the pipeline metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OracleLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vishing_oracle_call_duration_seconds",
			Help:    "Duration of reasoning oracle calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 30},
		}, []string{"provider", "judgment", "outcome"}),

		OracleFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vishing_oracle_fallbacks_total",
			Help: "Oracle failures recovered with a fixed fallback value",
		}, []string{"judgment"}),

		TurnOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vishing_turn_outcomes_total",
			Help: "Processed turns by domain and disclosure outcome",
		}, []string{"domain", "outcome"}),

		IntegrityScore: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vishing_integrity_score",
			Help:    "Final contextual integrity score per turn",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		}, []string{"domain"}),

		TurnLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vishing_turn_duration_seconds",
			Help:    "Duration of a full turn including oracle calls",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}),
	}
}

// ObserveOracleCall records one oracle round trip.
func (m *Metrics) ObserveOracleCall(provider, judgment string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.OracleLatency.WithLabelValues(provider, judgment, outcome).Observe(d.Seconds())
}

// IncrementFallback records a consumed fallback value.
func (m *Metrics) IncrementFallback(judgment string) {
	if m != nil {
		m.OracleFallbacks.WithLabelValues(judgment).Inc()
	}
}

// ObserveTurn records the outcome, score and latency of a turn.
func (m *Metrics) ObserveTurn(domain, outcome string, score float64, d time.Duration) {
	if m == nil {
		return
	}
	m.TurnOutcome.WithLabelValues(domain, outcome).Inc()
	m.IntegrityScore.WithLabelValues(domain).Observe(score)
	m.TurnLatency.Observe(d.Seconds())
}
