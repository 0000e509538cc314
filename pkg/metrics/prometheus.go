// Package metrics provides Prometheus metrics for the groove game service.
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

// Skipped-beat reasons.
const (
	SkipTrackingLost = "tracking_lost"
	SkipNoPose       = "no_pose"
	SkipCatchUpCap   = "catch_up_cap"
)

// Manager manages all Prometheus metrics for the groove service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Gameplay
	evaluations        *prometheus.CounterVec
	skippedBeats       *prometheus.CounterVec
	similarity         prometheus.Histogram
	totalScore         prometheus.Gauge
	combo              prometheus.Gauge
	maxCombo           prometheus.Gauge
	tickDuration       prometheus.Histogram
	poseSamples        *prometheus.CounterVec
	trackingLost       prometheus.Counter
	sessionsActive     prometheus.Gauge
	phaseTransitions   *prometheus.CounterVec
	runsRecorded       prometheus.Counter
	runsDuplicate      prometheus.Counter
	repositorySongs    prometheus.Gauge
	repositoryUpdate   prometheus.Histogram
	repositoryQuery    prometheus.Histogram
	repositoryFailures prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue Metrics - event fan-out from the game loop
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker Metrics - Processing performance
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "groove",
		subsystem:        "game",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}
	if !m.enabled {
		// still recorded, never exported
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string { return m.metricPrefix + n }

// RefreshInterval is how often polled gauges (queue, workers, songs, system)
// should be refreshed.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, Buckets: buckets, ConstLabels: m.customLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.evaluations = m.counterVec("evaluations_total", "Per-beat scoring evaluations by tier", "tier")
	m.skippedBeats = m.counterVec("skipped_beats_total", "Beats that were not evaluated, by reason", "reason")
	m.similarity = m.histogram("similarity", "Weighted pose similarity per evaluation",
		[]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 1})
	m.totalScore = m.gauge("total_score", "Total score of the active session")
	m.combo = m.gauge("combo", "Current combo count of the active session")
	m.maxCombo = m.gauge("max_combo", "Longest combo of the active session")
	m.tickDuration = m.histogram("tick_duration_milliseconds", "Game loop tick processing time in milliseconds",
		[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16})
	m.poseSamples = m.counterVec("pose_samples_total", "Detected pose samples by outcome", "outcome")
	m.trackingLost = m.counter("tracking_lost_total", "Transitions into the tracking-lost state")
	m.sessionsActive = m.gauge("sessions_active", "Number of sessions currently playing")
	m.phaseTransitions = m.counterVec("phase_transitions_total", "Session phase transitions by target phase", "phase")
	m.runsRecorded = m.counter("runs_recorded_total", "Finished runs appended to history")
	m.runsDuplicate = m.counter("runs_duplicate_total", "Finished runs dropped as duplicates")

	m.repositorySongs = m.gauge("repository_songs", "Songs with at least one recorded run")
	m.repositoryUpdate = m.histogram("repository_update_latency_milliseconds",
		"Repository append latency in milliseconds", m.histogramBuckets)
	m.repositoryQuery = m.histogram("repository_query_latency_milliseconds",
		"Repository query latency in milliseconds", m.histogramBuckets)
	m.repositoryFailures = m.counter("repository_errors_total", "Repository operation failures")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.queueSize = m.gauge("queue_size", "Current size of the event queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of events enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of events dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Events dropped because the queue was full or closed")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds",
		"Time an event spent queued in milliseconds", m.histogramBuckets)

	m.workerCount = m.gauge("worker_count", "Configured number of event workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of running event workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Worker processing latency in milliseconds", m.histogramBuckets)
	m.workerErrorRate = m.counter("worker_errors_total", "Total number of worker errors")

	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Total number of errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Gameplay Metrics Functions.

// RecordEvaluation counts one scored beat and observes its similarity.
func RecordEvaluation(tier string, similarity float64) {
	globalManager.evaluations.WithLabelValues(tier).Inc()
	globalManager.similarity.Observe(similarity)
}

// RecordSkippedBeat counts a beat that was crossed but not evaluated.
func RecordSkippedBeat(reason string) {
	globalManager.skippedBeats.WithLabelValues(reason).Inc()
}

// UpdateScore publishes the active session's score state.
func UpdateScore(total, combo, maxCombo int) {
	globalManager.totalScore.Set(float64(total))
	globalManager.combo.Set(float64(combo))
	globalManager.maxCombo.Set(float64(maxCombo))
}

// RecordTickDuration records how long a tick took in milliseconds.
func RecordTickDuration(ms float64) {
	globalManager.tickDuration.Observe(ms)
}

// RecordPoseSample counts a detected pose sample by outcome.
func RecordPoseSample(outcome string) {
	globalManager.poseSamples.WithLabelValues(outcome).Inc()
}

// RecordTrackingLost counts a transition into the tracking-lost state.
func RecordTrackingLost() {
	globalManager.trackingLost.Inc()
}

// UpdateSessionsActive sets the number of sessions currently running.
func UpdateSessionsActive(n int) {
	globalManager.sessionsActive.Set(float64(n))
}

// RecordPhaseTransition counts a session entering phase.
func RecordPhaseTransition(phase string) {
	globalManager.phaseTransitions.WithLabelValues(phase).Inc()
}

// RecordRunRecorded counts a run appended to history.
func RecordRunRecorded() {
	globalManager.runsRecorded.Inc()
}

// RecordRunDuplicate counts a finished run dropped as a duplicate.
func RecordRunDuplicate() {
	globalManager.runsDuplicate.Inc()
}

// Repository Metrics Functions.

// UpdateRepositorySongs sets the number of songs with history.
func UpdateRepositorySongs(count int) {
	globalManager.repositorySongs.Set(float64(count))
}

// RecordRepositoryUpdateLatency records repository append latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdate.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records repository query latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQuery.Observe(latencyMs)
}

// RecordRepositoryError counts a failed repository operation.
func RecordRepositoryError() {
	globalManager.repositoryFailures.Inc()
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

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
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
