// Package metrics provides Prometheus metrics for the wastesync service.
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
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Normalization
	recordsNormalized prometheus.Counter
	rowsDropped       *prometheus.CounterVec
	formatErrors      *prometheus.CounterVec

	// Sink
	batchesSynced   *prometheus.CounterVec
	batchesFailed   *prometheus.CounterVec
	recordsInserted *prometheus.CounterVec
	sinkLatency     *prometheus.HistogramVec
	duplicates      prometheus.Counter

	// Collector
	collectorBuffered prometheus.Gauge

	// Queue and workers
	queueSize      prometheus.Gauge
	queueCapacity  prometheus.Gauge
	queueEnqueued  prometheus.Counter
	queueDequeued  prometheus.Counter
	queueRejected  *prometheus.CounterVec
	workerCount    prometheus.Gauge
	workerFailures prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "wastesync",
		subsystem:        "sync",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		constLabels:      map[string]string{},
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

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.recordsNormalized = m.counter("records_normalized_total", "Canonical records produced by the normalizer")
	m.rowsDropped = m.counterVec("rows_dropped_total", "Input rows skipped during normalization", "shape")
	m.formatErrors = m.counterVec("format_errors_total", "Batches rejected as an unsupported shape", "reason")

	m.batchesSynced = m.counterVec("batches_synced_total", "Batches accepted by the sink", "sink")
	m.batchesFailed = m.counterVec("batches_failed_total", "Batches the sink rejected or failed to receive", "sink")
	m.recordsInserted = m.counterVec("records_inserted_total", "Records reported inserted by the sink", "sink")
	m.sinkLatency = m.histogramVec("sink_latency_milliseconds", "Latency of one sink insert call", "sink")
	m.duplicates = m.counter("duplicates_total", "Batches skipped because their session id was already accepted")

	m.collectorBuffered = m.gauge("collector_buffered", "Entries waiting in collectors for the next flush")

	m.queueSize = m.gauge("queue_size", "Batches waiting in the async queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the async queue")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Batches enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Batches handed to workers")
	m.queueRejected = m.counterVec("queue_rejected_total", "Batches refused by the queue", "reason")
	m.workerCount = m.gauge("worker_count", "Workers draining the async queue")
	m.workerFailures = m.counter("worker_failures_total", "Async batches whose insert failed")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration",
		"endpoint", "method", "status_code")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint",
		"endpoint", "method", "error_type")
}

// RecordNormalized adds to the records normalized counter.
func RecordNormalized(n int) { globalManager.recordsNormalized.Add(float64(n)) }

// RecordRowsDropped adds skipped input rows for a shape.
func RecordRowsDropped(shape string, n int) {
	if n > 0 {
		globalManager.rowsDropped.WithLabelValues(shape).Add(float64(n))
	}
}

// RecordFormatError counts a rejected batch.
func RecordFormatError(reason string) { globalManager.formatErrors.WithLabelValues(reason).Inc() }

// RecordBatchSynced counts a successful insert of n records.
func RecordBatchSynced(sink string, n int) {
	globalManager.batchesSynced.WithLabelValues(sink).Inc()
	globalManager.recordsInserted.WithLabelValues(sink).Add(float64(n))
}

// RecordBatchFailed counts a failed insert.
func RecordBatchFailed(sink string) { globalManager.batchesFailed.WithLabelValues(sink).Inc() }

// RecordSinkLatency observes one insert call in milliseconds.
func RecordSinkLatency(sink string, latencyMs float64) {
	globalManager.sinkLatency.WithLabelValues(sink).Observe(latencyMs)
}

// RecordDuplicate counts a skipped replayed batch.
func RecordDuplicate() { globalManager.duplicates.Inc() }

// AddCollectorBuffered moves the buffered-entries gauge by delta.
func AddCollectorBuffered(delta int) { globalManager.collectorBuffered.Add(float64(delta)) }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueRejected counts a refused enqueue.
func RecordQueueRejected(reason string) { globalManager.queueRejected.WithLabelValues(reason).Inc() }

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerFailure counts an async batch that failed.
func RecordWorkerFailure() { globalManager.workerFailures.Inc() }

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
