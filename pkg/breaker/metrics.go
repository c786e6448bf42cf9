package breaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// breakerState tracks the current state per breaker
	// (0=closed, 1=open, 2=half-open).
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "calgo_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"breaker"},
	)

	// breakerTransitions counts state transitions per breaker.
	breakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calgo_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"breaker", "from", "to"},
	)

	// breakerRejections counts calls rejected while the circuit was open.
	breakerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calgo_breaker_rejections_total",
			Help: "Total calls rejected by an open circuit breaker",
		},
		[]string{"breaker"},
	)
)
