package postgres

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsTotal counts unit of work transaction outcomes.
	// Labels: outcome (begin, commit, rollback, flush, error)
	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pkm",
			Subsystem: "uow",
			Name:      "transactions_total",
			Help:      "Total number of unit of work transaction outcomes",
		},
		[]string{"outcome"},
	)

	// HierarchyWalkDepth records how many ancestors a cycle check visited.
	HierarchyWalkDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pkm",
			Subsystem: "projects",
			Name:      "hierarchy_walk_depth",
			Help:      "Number of ancestors visited per hierarchy validation",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)
