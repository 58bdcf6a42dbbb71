package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SignalsRegisteredTotal tracks accepted signal registrations.
	SignalsRegisteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghost_registry_signals_registered_total",
		Help: "Total number of signals accepted for tracking",
	})

	// ValidationFailuresTotal tracks rejected signals by field.
	ValidationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghost_registry_validation_failures_total",
			Help: "Total number of signals rejected during validation",
		},
		[]string{"field"},
	)

	// ActiveSignals tracks signals currently being evaluated.
	ActiveSignals = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ghost_registry_active_signals",
		Help: "Number of signals currently being evaluated",
	})

	// SymbolHubs tracks per-symbol dispatch workers.
	SymbolHubs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ghost_registry_symbol_hubs",
		Help: "Number of active per-symbol dispatch workers",
	})

	// TimeoutEvictionsTotal tracks signals resolved by the deadline sweeper.
	TimeoutEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghost_registry_timeout_evictions_total",
		Help: "Total number of signals resolved by the deadline sweeper",
	})

	// FlushFailuresTotal tracks snapshot flushes that failed after retries.
	FlushFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghost_registry_flush_failures_total",
		Help: "Total number of snapshot flushes that failed after retries",
	})
)
