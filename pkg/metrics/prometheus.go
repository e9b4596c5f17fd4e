// Package metrics provides Prometheus metrics for the vakthund pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Pipeline metrics
	incidentsUpserted   prometheus.Counter
	lowConfidenceScored prometheus.Counter
	syncCycles          prometheus.Counter
	syncFailures        prometheus.Counter
	backfillDayFailures prometheus.Counter
	prunedIncidents     prometheus.Counter
	sandboxInjections   prometheus.Counter

	// Operational health
	storedIncidents prometheus.Gauge
	lastSyncUnix    prometheus.Gauge

	// Store performance
	storeUpdateLatency prometheus.Histogram
	storeQueryLatency  prometheus.Histogram

	// HTTP performance
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System performance
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vakthund",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// GetRegistry returns the registry metrics are registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.incidentsUpserted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "incidents_upserted_total",
		Help:      "Total number of incidents scored and upserted",
	})

	m.lowConfidenceScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "low_confidence_incidents_total",
		Help:      "Total number of incidents scored below the confidence threshold",
	})

	m.syncCycles = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sync_cycles_total",
		Help:      "Total number of completed live sync cycles",
	})

	m.syncFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sync_failures_total",
		Help:      "Total number of failed live sync cycles",
	})

	m.backfillDayFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "backfill_day_failures_total",
		Help:      "Total number of skipped day batches during backfill",
	})

	m.prunedIncidents = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pruned_incidents_total",
		Help:      "Total number of incidents removed by the retention pruner",
	})

	m.sandboxInjections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sandbox_injections_total",
		Help:      "Total number of sandbox records injected",
	})

	m.storedIncidents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stored_incidents",
		Help:      "Current number of stored incidents",
	})

	m.lastSyncUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_sync_unix",
		Help:      "Unix timestamp of the last completed live sync",
	})

	m.storeUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_update_latency_milliseconds",
		Help:      "Store upsert/replace latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_query_latency_milliseconds",
		Help:      "Store range query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Current heap allocation in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Current number of goroutines",
	})
}

// Package-level record functions acting on the global manager.

// RecordIncidentUpserted counts one scored and upserted incident.
func RecordIncidentUpserted() { globalManager.incidentsUpserted.Inc() }

// RecordLowConfidence counts one incident flagged for operator review.
func RecordLowConfidence() { globalManager.lowConfidenceScored.Inc() }

// RecordSyncCycle counts one completed live sync cycle.
func RecordSyncCycle() { globalManager.syncCycles.Inc() }

// RecordSyncFailure counts one failed live sync cycle.
func RecordSyncFailure() { globalManager.syncFailures.Inc() }

// RecordBackfillDayFailure counts one skipped day batch during backfill.
func RecordBackfillDayFailure() { globalManager.backfillDayFailures.Inc() }

// RecordPruned counts n incidents removed by the retention pruner.
func RecordPruned(n int) { globalManager.prunedIncidents.Add(float64(n)) }

// RecordSandboxInjection counts one sandbox record injected.
func RecordSandboxInjection() { globalManager.sandboxInjections.Inc() }

// UpdateStoredIncidents sets the current stored record count.
func UpdateStoredIncidents(n int) { globalManager.storedIncidents.Set(float64(n)) }

// UpdateLastSyncUnix records when the last live sync completed.
func UpdateLastSyncUnix(unix int64) { globalManager.lastSyncUnix.Set(float64(unix)) }

// RecordStoreUpdateLatency records an upsert/replace latency sample.
func RecordStoreUpdateLatency(ms float64) { globalManager.storeUpdateLatency.Observe(ms) }

// RecordStoreQueryLatency records a range query latency sample.
func RecordStoreQueryLatency(ms float64) { globalManager.storeQueryLatency.Observe(ms) }

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records one HTTP request duration sample.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// UpdateSystemMemoryUsage sets the current heap allocation.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the current goroutine count.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutineCount.Set(float64(n)) }
