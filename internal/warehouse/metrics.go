package warehouse

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "abg",
		Subsystem: "warehouse",
		Name:      "queries_total",
		Help:      "Queries sent to the warehouse, by outcome.",
	}, []string{"outcome"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "abg",
		Subsystem: "query_cache",
		Name:      "lookups_total",
		Help:      "Query cache lookups, by result (hit, miss, expired).",
	}, []string{"result"})
)
