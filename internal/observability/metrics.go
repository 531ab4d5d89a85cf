package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackendRequestDuration records hosted backend call latency by service and operation.
	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulasafe_backend_request_duration_seconds",
		Help:    "Hosted backend request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "operation"})

	// BackendErrors counts failed hosted backend calls.
	BackendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulasafe_backend_errors_total",
		Help: "Total number of failed hosted backend calls",
	}, []string{"service", "operation"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulasafe_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// InflightRejections counts actions rejected because the same action was already running.
	InflightRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulasafe_inflight_rejections_total",
		Help: "Total number of duplicate submissions rejected while busy",
	}, []string{"action"})

	// CategoryFallbacks counts category listings served from the built-in set.
	CategoryFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulasafe_category_fallbacks_total",
		Help: "Total number of category listings served from the fallback set",
	})

	// PhotoUploads counts post photo uploads by outcome.
	PhotoUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulasafe_photo_uploads_total",
		Help: "Total number of post photo uploads by outcome",
	}, []string{"outcome"})

	// DatabaseQueryLatency records provisioning query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulasafe_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// ObserveBackendCall records the latency of a backend call and counts it as
// failed when err is non-nil.
func ObserveBackendCall(service, operation string, start time.Time, err error) {
	BackendRequestDuration.WithLabelValues(service, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		BackendErrors.WithLabelValues(service, operation).Inc()
	}
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
