// Package metrics holds the Prometheus instrumentation of the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RemapTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gluvib_remap_triggers_total",
			Help: "Total number of recompute requests received by the remap scheduler",
		},
		[]string{"kind"}, // "deferred", "flush"
	)

	RemapApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gluvib_remap_applied_total",
			Help: "Total number of recomputations that ran",
		},
	)

	RemapSuperseded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gluvib_remap_superseded_total",
			Help: "Total number of deferred recomputations dropped because a newer one was scheduled",
		},
	)

	RecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gluvib_recompute_duration_seconds",
			Help:    "Duration of a full pipeline recomputation in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	SourceLoadErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gluvib_source_load_errors_total",
			Help: "Total number of failed sample source reads during recomputation",
		},
	)

	SnapshotGeneration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gluvib_snapshot_generation",
			Help: "Generation of the most recently published snapshot",
		},
	)

	SamplesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gluvib_samples_written_total",
			Help: "Total number of samples written to the sample store",
		},
		[]string{"metric"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gluvib_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gluvib_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
