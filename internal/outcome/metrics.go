package outcome

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransitionsTotal tracks lifecycle transitions by event type.
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghost_outcome_transitions_total",
			Help: "Total number of evaluator lifecycle transitions",
		},
		[]string{"event"},
	)

	// OutcomesTotal tracks resolved signals by terminal classification.
	OutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghost_outcomes_total",
			Help: "Total number of terminal signal outcomes",
		},
		[]string{"classification"},
	)

	// AdvanceDurationSeconds tracks per-point evaluation latency.
	AdvanceDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ghost_outcome_advance_duration_seconds",
		Help:    "Duration of a single evaluator advance call",
		Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
	})

	// PointsSkippedTotal tracks points dropped by the replay checkpoint.
	PointsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghost_outcome_points_skipped_total",
		Help: "Total number of price points ignored as already consumed",
	})
)
