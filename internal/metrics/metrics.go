// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts served requests by route pattern, method and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rapport_http_requests_total",
			Help: "HTTP requests served.",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPDuration observes request latency by route pattern.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rapport_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// ViewsComputed counts derived views (radar, ideas, report).
	ViewsComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rapport_views_computed_total",
			Help: "Derived views computed.",
		},
		[]string{"view"},
	)

	// RecordsRejected counts store records dropped at the validation boundary.
	RecordsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rapport_records_rejected_total",
			Help: "Store records dropped as malformed.",
		},
		[]string{"record"},
	)

	// InteractionsLogged counts interactions written by kind.
	InteractionsLogged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rapport_interactions_logged_total",
			Help: "Interactions logged.",
		},
		[]string{"kind"},
	)

	// BackendState reports the hosted backend circuit breaker state
	// (0 closed, 1 half-open, 2 open).
	BackendState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rapport_backend_breaker_state",
			Help: "Hosted backend circuit breaker state.",
		},
	)
)
