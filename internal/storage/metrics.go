package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpsertsTotal tracks snapshot upserts by backend.
	UpsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghost_store_upserts_total",
			Help: "Total number of outcome snapshot upserts",
		},
		[]string{"backend"},
	)

	// UpsertRetriesTotal tracks retried upserts.
	UpsertRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghost_store_upsert_retries_total",
		Help: "Total number of retried snapshot upserts",
	})

	// UpsertFailuresTotal tracks upserts that exhausted all retries.
	UpsertFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghost_store_upsert_failures_total",
		Help: "Total number of snapshot upserts that exhausted retries",
	})
)
