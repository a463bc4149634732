// Package metrics provides Prometheus metrics for the comfybridge worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal counts handled jobs by final status.
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "comfybridge",
			Subsystem: "worker",
			Name:      "jobs_total",
			Help:      "Total number of jobs by final status",
		},
		[]string{"status"}, // "succeeded", "failed"
	)

	// JobDuration tracks end-to-end job duration.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "comfybridge",
			Subsystem: "worker",
			Name:      "job_duration_seconds",
			Help:      "End-to-end job duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"status"},
	)

	// PhaseDuration tracks time spent in each protocol phase.
	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "comfybridge",
			Subsystem: "worker",
			Name:      "phase_duration_seconds",
			Help:      "Duration of each job phase in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"phase"}, // "submit", "monitor", "collect"
	)

	// MonitorOutcomes counts monitoring results by terminal state.
	MonitorOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "comfybridge",
			Subsystem: "worker",
			Name:      "monitor_outcomes_total",
			Help:      "Monitoring results by terminal state",
		},
		[]string{"state"}, // "completed", "execution_error", "timed_out", "channel_failure"
	)

	// StreamReconnects counts websocket reconnection attempts.
	StreamReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "comfybridge",
			Subsystem: "worker",
			Name:      "stream_reconnects_total",
			Help:      "Total number of websocket reconnection attempts",
		},
	)

	// ArtifactsTotal counts collected artifacts by encoding.
	ArtifactsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "comfybridge",
			Subsystem: "worker",
			Name:      "artifacts_total",
			Help:      "Total number of collected artifacts by encoding",
		},
		[]string{"encoding"}, // "base64", "s3_url"
	)

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "comfybridge",
			Subsystem: "worker",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "comfybridge",
			Subsystem: "worker",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
