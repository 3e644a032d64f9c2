// Package metrics exposes the Prometheus collectors of the generation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderCalls tracks provider calls per tier and outcome category
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulkgen_provider_calls_total",
			Help: "Total number of generation provider calls",
		},
		[]string{"tier", "outcome"},
	)

	// ProviderLatency tracks provider call latency
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bulkgen_provider_latency_seconds",
			Help:    "Generation provider call latency in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"tier"},
	)

	// Escalations tracks tier escalations by source tier and reason
	Escalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulkgen_escalations_total",
			Help: "Total number of tier escalations",
		},
		[]string{"from_tier", "reason"},
	)

	// BatchesAbandoned tracks batches that produced no candidates
	BatchesAbandoned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulkgen_batches_abandoned_total",
			Help: "Total number of abandoned batches",
		},
		[]string{"reason"},
	)

	// BatchDuration tracks generate-then-persist time per batch
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bulkgen_batch_duration_seconds",
			Help:    "Time to generate and persist one batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// ItemsPersisted tracks persistence outcomes (saved, failed, skipped)
	ItemsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulkgen_items_persisted_total",
			Help: "Total number of item persistence outcomes",
		},
		[]string{"outcome"},
	)

	// StopLossTrips tracks batches aborted by the failure-ratio rule
	StopLossTrips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bulkgen_stop_loss_trips_total",
			Help: "Total number of batches aborted by stop-loss",
		},
	)

	// JobsFinished tracks jobs reaching a final or parked status
	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulkgen_jobs_finished_total",
			Help: "Total number of job runs ended, by resulting status",
		},
		[]string{"status"},
	)

	// JobsRunning tracks jobs currently driven by a worker
	JobsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bulkgen_jobs_running",
			Help: "Number of jobs currently being processed",
		},
	)

	// HTTPRequests tracks control API requests by route and status
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulkgen_http_requests_total",
			Help: "Total number of control API requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration tracks control API latency by route
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bulkgen_http_request_duration_seconds",
			Help:    "Control API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
