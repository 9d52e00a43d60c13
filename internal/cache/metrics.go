package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts cache operations.
	// Labels: backend, op (get, set, delete), result (hit, miss, ok, error)
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pkm",
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Total number of cache operations by result",
		},
		[]string{"backend", "op", "result"},
	)

	// RequestDuration tracks backend latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pkm",
			Subsystem: "cache",
			Name:      "request_duration_seconds",
			Help:      "Duration of cache operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
)
