// Package metrics provides Prometheus metrics for the Mu3 arena service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// Gateway
	gatewayCalls       *prometheus.CounterVec
	gatewayLatency     *prometheus.HistogramVec
	gatewayState       prometheus.Gauge
	gatewayFragments   *prometheus.CounterVec
	gatewayRetries     prometheus.Counter
	gatewayStateChange *prometheus.CounterVec

	// Arena
	battlesStarted  prometheus.Counter
	battleVotes     *prometheus.CounterVec
	chatMessages    *prometheus.CounterVec
	chatMode        *prometheus.CounterVec
	imagesGenerated *prometheus.CounterVec
	staleDiscarded  *prometheus.CounterVec
	activeSessions  prometheus.Gauge

	// Validation
	validationFailures *prometheus.CounterVec

	// Error registry
	errorsRecorded *prometheus.CounterVec
	errorsRetained prometheus.Gauge

	// Storage
	storageLatency *prometheus.HistogramVec
	storageErrors  *prometheus.CounterVec

	// Queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueEnqueueErrors      *prometheus.CounterVec
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter
	jobsDuplicate           prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "mu3",
		subsystem:        "arena",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.httpErrors = m.counterVec("http_errors_total", "HTTP error responses by endpoint and error type", "endpoint", "method", "error_type")

	m.gatewayCalls = m.counterVec("gateway_calls_total", "Gateway operations by operation, mode (real|fallback) and outcome", "operation", "mode", "outcome")
	m.gatewayLatency = m.histogramVec("gateway_call_duration_milliseconds", "Gateway operation latency in milliseconds", "operation", "mode")
	m.gatewayState = m.gauge("gateway_state", "Gateway lifecycle state (0 uninitialized, 1 waiting, 2 ready, 3 unavailable)")
	m.gatewayFragments = m.counterVec("gateway_stream_fragments_total", "Stream fragments emitted by mode", "mode")
	m.gatewayRetries = m.counter("gateway_retries_total", "Provider call retries")
	m.gatewayStateChange = m.counterVec("gateway_state_transitions_total", "Gateway state transitions by target state", "state")

	m.battlesStarted = m.counter("battles_started_total", "Battles that reached the running state")
	m.battleVotes = m.counterVec("battle_votes_total", "Battle votes by outcome", "outcome")
	m.chatMessages = m.counterVec("chat_messages_total", "Chat messages by role", "role")
	m.chatMode = m.counterVec("chat_mode_total", "Chat replies by delivery mode (stream|single)", "mode")
	m.imagesGenerated = m.counterVec("images_generated_total", "Images generated by kind (real|placeholder)", "kind")
	m.staleDiscarded = m.counterVec("stale_results_discarded_total", "In-flight results dropped after a reset", "flow")
	m.activeSessions = m.gauge("active_sessions", "Sessions currently held in memory")

	m.validationFailures = m.counterVec("validation_failures_total", "Rejected inputs by rule set", "rule_set")

	m.errorsRecorded = m.counterVec("errors_recorded_total", "Error registry records by category and severity", "category", "severity")
	m.errorsRetained = m.gauge("errors_retained", "Records currently held by the error registry")

	m.storageLatency = m.histogramVec("storage_operation_duration_milliseconds", "Storage latency by driver and operation", "driver", "operation")
	m.storageErrors = m.counterVec("storage_errors_total", "Storage failures by driver and operation", "driver", "operation")

	m.queueSize = m.gauge("queue_size", "Jobs waiting in the history queue")
	m.queueCapacity = m.gauge("queue_capacity", "History queue capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Jobs accepted by the history queue")
	m.queueDequeued = m.counter("queue_dequeued_total", "Jobs handed to workers")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Rejected enqueues by reason", "reason")
	m.workerCount = m.gauge("worker_count", "History workers running")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "History job processing latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "History jobs that failed")
	m.jobsDuplicate = m.counter("jobs_duplicate_total", "History jobs skipped as duplicates")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds")
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records an error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// Gateway.

// RecordGatewayCall records one gateway operation.
func RecordGatewayCall(operation, mode, outcome string, latencyMs float64) {
	globalManager.gatewayCalls.WithLabelValues(operation, mode, outcome).Inc()
	globalManager.gatewayLatency.WithLabelValues(operation, mode).Observe(latencyMs)
}

// UpdateGatewayState publishes the gateway lifecycle state.
func UpdateGatewayState(state int, name string) {
	globalManager.gatewayState.Set(float64(state))
	globalManager.gatewayStateChange.WithLabelValues(name).Inc()
}

// RecordStreamFragment counts one emitted stream fragment.
func RecordStreamFragment(mode string) {
	globalManager.gatewayFragments.WithLabelValues(mode).Inc()
}

// RecordGatewayRetry counts one provider retry.
func RecordGatewayRetry() {
	globalManager.gatewayRetries.Inc()
}

// Arena.

// RecordBattleStarted counts a battle entering the running state.
func RecordBattleStarted() {
	globalManager.battlesStarted.Inc()
}

// RecordBattleVote counts a vote.
func RecordBattleVote(outcome string) {
	globalManager.battleVotes.WithLabelValues(outcome).Inc()
}

// RecordChatMessage counts a chat message.
func RecordChatMessage(role string) {
	globalManager.chatMessages.WithLabelValues(role).Inc()
}

// RecordChatMode counts a chat reply delivery mode.
func RecordChatMode(mode string) {
	globalManager.chatMode.WithLabelValues(mode).Inc()
}

// RecordImageGenerated counts a generated image.
func RecordImageGenerated(kind string) {
	globalManager.imagesGenerated.WithLabelValues(kind).Inc()
}

// RecordStaleDiscarded counts a completion dropped after reset.
func RecordStaleDiscarded(flow string) {
	globalManager.staleDiscarded.WithLabelValues(flow).Inc()
}

// UpdateActiveSessions sets the session gauge.
func UpdateActiveSessions(n int) {
	globalManager.activeSessions.Set(float64(n))
}

// RecordValidationFailure counts a rejected input.
func RecordValidationFailure(ruleSet string) {
	globalManager.validationFailures.WithLabelValues(ruleSet).Inc()
}

// Error registry.

// RecordErrorRecorded counts one error registry record.
func RecordErrorRecorded(category, severity string) {
	globalManager.errorsRecorded.WithLabelValues(category, severity).Inc()
}

// UpdateErrorsRetained sets the registry size gauge.
func UpdateErrorsRetained(n int) {
	globalManager.errorsRetained.Set(float64(n))
}

// Storage.

// RecordStorageOperation records storage latency and failure.
func RecordStorageOperation(driver, operation string, latencyMs float64, failed bool) {
	globalManager.storageLatency.WithLabelValues(driver, operation).Observe(latencyMs)
	if failed {
		globalManager.storageErrors.WithLabelValues(driver, operation).Inc()
	}
}

// Queue and workers.

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a job handed to a worker.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records job processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed job.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordJobDuplicate counts a skipped duplicate job.
func RecordJobDuplicate() {
	globalManager.jobsDuplicate.Inc()
}

// System.

// UpdateSystemMemoryUsage sets the heap usage in bytes.
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

// RefreshInterval is how often gauge updaters should sample.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}
