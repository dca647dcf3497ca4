// Package metrics provides Prometheus metrics for the FIRES progress engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Feed metrics
	feedBuilds         prometheus.Counter
	feedBuildLatency   prometheus.Histogram
	feedItems          prometheus.Histogram
	feedSourceFailures *prometheus.CounterVec
	feedStaleDiscards  prometheus.Counter

	// Circle metrics
	circleResolves       prometheus.Counter
	circleMembers        prometheus.Histogram
	circleSourceFailures *prometheus.CounterVec

	// Progress metrics
	snapshotsComputed    prometheus.Counter
	snapshotErrors       prometheus.Counter
	markerCreates        prometheus.Counter
	markerUpdates        *prometheus.CounterVec
	lifecycleTransitions *prometheus.CounterVec
	idempotentReplays    prometheus.Counter

	// Pipeline metrics
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueues           prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP metrics
	httpRequests         *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorRateByComponent *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "fires",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix != "" {
		return m.metricPrefix + "_" + n
	}
	return n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() {
	sizeBuckets := []float64{0, 1, 2, 5, 10, 20, 50, 100}

	m.feedBuilds = m.counter("feed_builds_total", "Total number of feeds built")
	m.feedBuildLatency = m.histogram("feed_build_latency_milliseconds", "Feed build latency in milliseconds", m.histogramBuckets)
	m.feedItems = m.histogram("feed_items", "Number of items returned per feed", sizeBuckets)
	m.feedSourceFailures = m.counterVec("feed_source_failures_total", "Content fetches that failed and were omitted from a feed", "kind")
	m.feedStaleDiscards = m.counter("feed_stale_discards_total", "Feed builds discarded because the viewer changed")

	m.circleResolves = m.counter("circle_resolves_total", "Total number of circle resolutions")
	m.circleMembers = m.histogram("circle_members", "Members per resolved circle", sizeBuckets)
	m.circleSourceFailures = m.counterVec("circle_source_failures_total", "Edge queries that failed during circle resolution", "direction")

	m.snapshotsComputed = m.counter("snapshots_computed_total", "Zone snapshots computed and stored")
	m.snapshotErrors = m.counter("snapshot_errors_total", "Zone snapshot computations that failed")
	m.markerCreates = m.counter("marker_creates_total", "Markers created")
	m.markerUpdates = m.counterVec("marker_updates_total", "Marker updates appended", "source")
	m.lifecycleTransitions = m.counterVec("lifecycle_transitions_total", "Engagement lifecycle operations by outcome", "op", "outcome")
	m.idempotentReplays = m.counter("idempotent_replays_total", "Write requests acknowledged as replays of an earlier request id")

	m.queueSize = m.gauge("queue_size", "Current number of alignment submissions waiting")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the alignment submission queue")
	m.queueEnqueues = m.counter("queue_enqueues_total", "Alignment submissions enqueued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Alignment submissions rejected by the queue")
	m.workerCount = m.gauge("worker_count", "Number of snapshot workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Snapshot worker processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Snapshot worker errors")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("http_request_duration_milliseconds"),
		Help: "HTTP request duration in milliseconds", ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint, method and type", "endpoint", "method", "error_type")
	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Allocated heap bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds", m.histogramBuckets)
}

// Feed Metrics Functions.

// RecordFeedBuild records a completed feed build and its size.
func RecordFeedBuild(latencyMs float64, items int) {
	if !globalManager.enabled {
		return
	}
	globalManager.feedBuilds.Inc()
	globalManager.feedBuildLatency.Observe(latencyMs)
	globalManager.feedItems.Observe(float64(items))
}

// RecordFeedSourceFailure counts a content kind omitted from a feed.
func RecordFeedSourceFailure(kind string) {
	globalManager.feedSourceFailures.WithLabelValues(kind).Inc()
}

// RecordFeedStaleDiscard counts a feed dropped after a viewer switch.
func RecordFeedStaleDiscard() {
	globalManager.feedStaleDiscards.Inc()
}

// Circle Metrics Functions.

// RecordCircleResolve records a resolved circle size.
func RecordCircleResolve(members int) {
	globalManager.circleResolves.Inc()
	globalManager.circleMembers.Observe(float64(members))
}

// RecordCircleSourceFailure counts a failed edge query.
func RecordCircleSourceFailure(direction string) {
	globalManager.circleSourceFailures.WithLabelValues(direction).Inc()
}

// Progress Metrics Functions.

// RecordSnapshotComputed counts a stored zone snapshot.
func RecordSnapshotComputed() {
	globalManager.snapshotsComputed.Inc()
}

// RecordSnapshotError counts a failed zone snapshot.
func RecordSnapshotError() {
	globalManager.snapshotErrors.Inc()
}

// RecordMarkerCreated counts a created marker.
func RecordMarkerCreated() {
	globalManager.markerCreates.Inc()
}

// RecordMarkerUpdate counts an appended marker update by source.
func RecordMarkerUpdate(source string) {
	globalManager.markerUpdates.WithLabelValues(source).Inc()
}

// RecordLifecycleTransition counts an engagement operation; outcome is
// "applied" or "rejected".
func RecordLifecycleTransition(op, outcome string) {
	globalManager.lifecycleTransitions.WithLabelValues(op, outcome).Inc()
}

// RecordIdempotentReplay counts a write acknowledged as a replay.
func RecordIdempotentReplay() {
	globalManager.idempotentReplays.Inc()
}

// Pipeline Metrics Functions.

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueues.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System Performance Metrics Functions.

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
