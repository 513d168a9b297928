// Package metrics provides Prometheus metrics for the match prediction service.
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
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Intake
	messagesReceived  *prometheus.CounterVec
	messagesDuplicate *prometheus.CounterVec

	// Pipeline
	outcomes          *prometheus.CounterVec
	pipelineLatency   prometheus.Histogram
	predictionLatency prometheus.Histogram
	predictionErrors  prometheus.Counter
	decisions         *prometheus.CounterVec
	sinkLatency       prometheus.Histogram
	sinkErrors        prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "matchpred",
		subsystem:        "adapter",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.messagesReceived = auto.NewCounterVec(
		m.counterOpts("messages_received_total", "Messages accepted from a transport"),
		[]string{"source"})
	m.messagesDuplicate = auto.NewCounterVec(
		m.counterOpts("messages_duplicate_total", "Redelivered messages dropped by dedupe"),
		[]string{"source"})

	m.outcomes = auto.NewCounterVec(
		m.counterOpts("outcomes_total", "Pipeline invocations by terminal state"),
		[]string{"outcome"})
	m.pipelineLatency = auto.NewHistogram(
		m.histogramOpts("pipeline_latency_milliseconds", "End to end invocation latency in milliseconds"))
	m.predictionLatency = auto.NewHistogram(
		m.histogramOpts("prediction_latency_milliseconds", "Model call latency in milliseconds"))
	m.predictionErrors = auto.NewCounter(
		m.counterOpts("prediction_errors_total", "Model calls that failed or returned no usable score"))
	m.decisions = auto.NewCounterVec(
		m.counterOpts("decisions_total", "Scored requests by model prediction"),
		[]string{"prediction"})
	m.sinkLatency = auto.NewHistogram(
		m.histogramOpts("sink_latency_milliseconds", "Audit row append latency in milliseconds"))
	m.sinkErrors = auto.NewCounter(
		m.counterOpts("sink_errors_total", "Audit rows the sink failed to append"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current size of the message queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Messages enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Messages dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Enqueue attempts rejected"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured number of workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Workers currently handling a message"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Worker handling latency in milliseconds"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Messages whose handler returned an error"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component"),
		[]string{"component", "error_type"})
}

// RecordMessageReceived counts a message accepted from source.
func RecordMessageReceived(source string) {
	globalManager.messagesReceived.WithLabelValues(source).Inc()
}

// RecordMessageDuplicate counts a redelivery dropped by dedupe.
func RecordMessageDuplicate(source string) {
	globalManager.messagesDuplicate.WithLabelValues(source).Inc()
}

// RecordOutcome counts a terminal pipeline state and its latency.
func RecordOutcome(outcome string, latencyMs float64) {
	globalManager.outcomes.WithLabelValues(outcome).Inc()
	globalManager.pipelineLatency.Observe(latencyMs)
}

// RecordPredictionLatency records model call latency in milliseconds.
func RecordPredictionLatency(latencyMs float64) {
	globalManager.predictionLatency.Observe(latencyMs)
}

// RecordPredictionError counts a failed model call.
func RecordPredictionError() {
	globalManager.predictionErrors.Inc()
}

// RecordDecision counts a scored request by its boolean prediction.
func RecordDecision(prediction bool) {
	label := "false"
	if prediction {
		label = "true"
	}
	globalManager.decisions.WithLabelValues(label).Inc()
}

// RecordSinkLatency records audit append latency in milliseconds.
func RecordSinkLatency(latencyMs float64) {
	globalManager.sinkLatency.Observe(latencyMs)
}

// RecordSinkError counts a failed audit append.
func RecordSinkError() {
	globalManager.sinkErrors.Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// AddWorkerActive moves the active worker gauge by delta.
func AddWorkerActive(delta int) {
	globalManager.workerActiveCount.Add(float64(delta))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// ModelEndpointLabel is the constant label carrying the model endpoint id.
const ModelEndpointLabel = "model_endpoint"

// Configure replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before GetRegistry is served.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(registry)}, opts...)...)
	customRegistry = registry
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
