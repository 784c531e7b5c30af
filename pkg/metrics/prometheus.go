// Package metrics provides Prometheus metrics for the model consolidation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	constLabels      map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Consolidation passes
	passesTotal        *prometheus.CounterVec
	passDuration       prometheus.Histogram
	passLastUnix       prometheus.Gauge
	modelsConsolidated prometheus.Gauge
	modelsSynthesized  prometheus.Gauge
	modelsSkipped      *prometheus.CounterVec
	ambiguousMatches   prometheus.Counter

	// Sources
	sourceFetchDuration *prometheus.HistogramVec
	sourceRecords       *prometheus.GaugeVec
	sourceQuality       *prometheus.GaugeVec
	sourceErrors        *prometheus.CounterVec

	// Store
	cacheErrors         *prometheus.CounterVec
	cacheFallbackInUse  prometheus.Gauge
	snapshotWrites      prometheus.Counter
	snapshotWriteErrors prometheus.Counter
	stateSwaps          prometheus.Counter

	// Trigger queue and pass worker
	triggersTotal *prometheus.CounterVec
	queueSize     prometheus.Gauge
	workerBusy    prometheus.Gauge
	workerErrors  prometheus.Counter
	workerLatency prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegisterer(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "modelfusion",
		subsystem:        "consolidation",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		refreshInterval:  defaultRefreshInterval,
		constLabels:      make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// name applies the optional metric prefix.
func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.constLabels)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: constLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: constLabels,
		}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: constLabels,
		})
	}
	gaugeVec := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: constLabels,
		}, labels)
	}
	histogram := func(name, help string, buckets []float64) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: constLabels, Buckets: buckets,
		})
	}
	histogramVec := func(name, help string, labels ...string) *prometheus.HistogramVec {
		return auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: constLabels, Buckets: m.histogramBuckets,
		}, labels)
	}

	m.passesTotal = counterVec("passes_total", "Total number of consolidation passes by trigger", "trigger")
	m.passDuration = histogram("pass_duration_milliseconds", "Duration of a full fetch-match-score-publish pass", m.histogramBuckets)
	m.passLastUnix = gauge("pass_last_unix", "Unix timestamp of the last published pass")
	m.modelsConsolidated = gauge("models_consolidated", "Number of models published by the last pass")
	m.modelsSynthesized = gauge("models_synthesized", "Number of published models built from benchmark-only records")
	m.modelsSkipped = counterVec("models_skipped_total", "Bundles dropped from a pass", "reason")
	m.ambiguousMatches = counter("ambiguous_matches_total", "Matches resolved with more than one plausible candidate")

	m.sourceFetchDuration = histogramVec("source_fetch_duration_milliseconds", "Source fetch duration", "source")
	m.sourceRecords = gaugeVec("source_records", "Records returned by the last fetch", "source")
	m.sourceQuality = gaugeVec("source_quality", "Composite data quality of the last fetch", "source")
	m.sourceErrors = counterVec("source_errors_total", "Absorbed source failures", "source", "error_type")

	m.cacheErrors = counterVec("cache_errors_total", "Primary cache failures absorbed by the fallback tier", "op")
	m.cacheFallbackInUse = gauge("cache_fallback_in_use", "1 when the last primary cache operation failed")
	m.snapshotWrites = counter("snapshot_writes_total", "Durable snapshot files written")
	m.snapshotWriteErrors = counter("snapshot_write_errors_total", "Durable snapshot write failures")
	m.stateSwaps = counter("state_swaps_total", "Published state replacements")

	m.triggersTotal = counterVec("triggers_total", "Consolidation triggers by outcome", "outcome")
	m.queueSize = gauge("trigger_queue_size", "Pending consolidation triggers")
	m.workerBusy = gauge("worker_busy", "1 while a pass is running")
	m.workerErrors = counter("worker_errors_total", "Passes that returned an error")
	m.workerLatency = histogram("worker_trigger_latency_milliseconds", "Time a trigger waited before its pass started", m.histogramBuckets)

	m.httpRequests = counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorRateByComponent = counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
	m.errorRateByType = counterVec("errors_by_type_total", "Total number of errors by type", "error_type", "severity")
	m.errorRateByEndpoint = counterVec("errors_by_endpoint_total", "Total number of errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = histogramVec("error_latency_milliseconds", "Latency of operations that resulted in errors", "component", "error_type")

	m.systemMemoryUsage = gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Consolidation pass metrics.

// RecordPass records a finished pass.
func RecordPass(trigger string, durationMs float64, models, synthesized int) {
	globalManager.passesTotal.WithLabelValues(trigger).Inc()
	globalManager.passDuration.Observe(durationMs)
	globalManager.passLastUnix.Set(float64(time.Now().Unix()))
	globalManager.modelsConsolidated.Set(float64(models))
	globalManager.modelsSynthesized.Set(float64(synthesized))
}

// RecordModelSkipped counts a bundle that produced no output record.
func RecordModelSkipped(reason string) {
	globalManager.modelsSkipped.WithLabelValues(reason).Inc()
}

// RecordAmbiguousMatches adds n ambiguous matcher decisions.
func RecordAmbiguousMatches(n int) {
	if n > 0 {
		globalManager.ambiguousMatches.Add(float64(n))
	}
}

// Source metrics.

// RecordSourceFetch records the outcome of one source fetch.
func RecordSourceFetch(source string, durationMs float64, records int, quality float64) {
	globalManager.sourceFetchDuration.WithLabelValues(source).Observe(durationMs)
	globalManager.sourceRecords.WithLabelValues(source).Set(float64(records))
	globalManager.sourceQuality.WithLabelValues(source).Set(quality)
}

// RecordSourceError counts an absorbed source failure.
func RecordSourceError(source, errorType string) {
	globalManager.sourceErrors.WithLabelValues(source, errorType).Inc()
}

// Store metrics.

// RecordCacheError counts a primary cache failure.
func RecordCacheError(op string) {
	globalManager.cacheErrors.WithLabelValues(op).Inc()
}

// UpdateCacheFallbackInUse flags whether reads and writes are served by the fallback tier.
func UpdateCacheFallbackInUse(inUse bool) {
	if inUse {
		globalManager.cacheFallbackInUse.Set(1)
		return
	}
	globalManager.cacheFallbackInUse.Set(0)
}

// RecordSnapshotWrite counts a durable snapshot write attempt.
func RecordSnapshotWrite(err error) {
	if err != nil {
		globalManager.snapshotWriteErrors.Inc()
		return
	}
	globalManager.snapshotWrites.Inc()
}

// RecordStateSwap counts a published state replacement.
func RecordStateSwap() {
	globalManager.stateSwaps.Inc()
}

// Queue and worker metrics.

// RecordTrigger counts a trigger by outcome: accepted, coalesced or rejected.
func RecordTrigger(outcome string) {
	globalManager.triggersTotal.WithLabelValues(outcome).Inc()
}

// UpdateQueueSize sets the current number of pending triggers.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateWorkerBusy flags whether a pass is currently running.
func UpdateWorkerBusy(busy bool) {
	if busy {
		globalManager.workerBusy.Set(1)
		return
	}
	globalManager.workerBusy.Set(0)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordWorkerTriggerLatency records how long a trigger waited in the queue.
func RecordWorkerTriggerLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval is how often background updaters should refresh gauges.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}
