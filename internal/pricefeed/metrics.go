package pricefeed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PointsDeliveredTotal tracks price points delivered to subscribers.
	PointsDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghost_feed_points_delivered_total",
			Help: "Total number of price points delivered to subscribers",
		},
		[]string{"symbol"},
	)

	// ActiveSubscriptions tracks live symbol subscriptions.
	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ghost_feed_active_subscriptions",
		Help: "Number of active symbol subscriptions",
	})

	// FetchDurationSeconds tracks historical range fetch latency.
	FetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ghost_feed_fetch_duration_seconds",
		Help:    "Historical candle fetch latency",
		Buckets: prometheus.DefBuckets,
	})

	// FetchErrorsTotal tracks failed historical fetches.
	FetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghost_feed_fetch_errors_total",
		Help: "Total number of failed historical candle fetches",
	})

	// PointsDroppedTotal tracks points dropped because a subscriber fell behind.
	PointsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghost_feed_points_dropped_total",
			Help: "Total number of price points dropped",
		},
		[]string{"symbol"},
	)
)
