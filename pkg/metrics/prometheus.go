// Package metrics provides Prometheus metrics for the vigil ingestion service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds every collector the service exposes.
type Manager struct {
	registry *prometheus.Registry

	// Ingestion outcomes
	filesCompleted prometheus.Counter
	filesFailed    *prometheus.CounterVec
	rowsRead       prometheus.Counter
	rowsSkipped    prometheus.Counter
	rowsFlagged    prometheus.Counter

	// Component latencies (milliseconds)
	inferenceLatency prometheus.Histogram
	persistLatency   prometheus.Histogram
	persistRetries   prometheus.Counter

	// Queue health
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter
	queueRejections  prometheus.Counter
	inflightFiles    prometheus.Gauge
	workerCount      prometheus.Gauge

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var (
	defaultManager *Manager
	once           sync.Once
)

// latencyBuckets cover sub-millisecond model calls up to slow batch writes.
var latencyBuckets = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

func newManager() *Manager {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Manager{registry: reg}

	m.filesCompleted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "vigil", Subsystem: "ingest",
		Name: "files_completed_total", Help: "Source files fully processed.",
	})
	m.filesFailed = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vigil", Subsystem: "ingest",
		Name: "files_failed_total", Help: "Source files that terminated in a failure state.",
	}, []string{"reason"})
	m.rowsRead = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "vigil", Subsystem: "ingest",
		Name: "rows_read_total", Help: "Rows read from source files.",
	})
	m.rowsSkipped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "vigil", Subsystem: "ingest",
		Name: "rows_skipped_total", Help: "Rows rejected during feature extraction or scoring.",
	})
	m.rowsFlagged = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "vigil", Subsystem: "ingest",
		Name: "rows_flagged_total", Help: "Rows classified high-stress and persisted.",
	})

	m.inferenceLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: "vigil", Subsystem: "scoring",
		Name: "inference_latency_ms", Help: "Model inference latency in milliseconds.",
		Buckets: latencyBuckets,
	})
	m.persistLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: "vigil", Subsystem: "store",
		Name: "persist_latency_ms", Help: "Batch upsert latency in milliseconds.",
		Buckets: latencyBuckets,
	})
	m.persistRetries = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "vigil", Subsystem: "store",
		Name: "persist_retries_total", Help: "Batch upsert attempts beyond the first.",
	})

	m.queueSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "vigil", Subsystem: "queue",
		Name: "size", Help: "Ingest events currently queued.",
	})
	m.queueCapacity = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "vigil", Subsystem: "queue",
		Name: "capacity", Help: "Configured queue capacity.",
	})
	m.queueEnqueues = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "vigil", Subsystem: "queue",
		Name: "enqueues_total", Help: "Ingest events accepted onto the queue.",
	})
	m.queueDequeues = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "vigil", Subsystem: "queue",
		Name: "dequeues_total", Help: "Ingest events handed to workers.",
	})
	m.queueRejections = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "vigil", Subsystem: "queue",
		Name: "rejections_total", Help: "Ingest events rejected due to backpressure or closure.",
	})
	m.inflightFiles = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "vigil", Subsystem: "ingest",
		Name: "inflight_files", Help: "Files currently being processed.",
	})
	m.workerCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "vigil", Subsystem: "worker",
		Name: "count", Help: "Configured worker pool size.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vigil", Subsystem: "http",
		Name: "requests_total", Help: "HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vigil", Subsystem: "http",
		Name: "request_duration_ms", Help: "HTTP request duration in milliseconds.",
		Buckets: latencyBuckets,
	}, []string{"endpoint", "method"})

	return m
}

func get() *Manager {
	once.Do(func() { defaultManager = newManager() })
	return defaultManager
}

// GetRegistry returns the registry all vigil collectors are registered on.
func GetRegistry() *prometheus.Registry { return get().registry }

// Ingestion outcome helpers.
func RecordFileCompleted()           { get().filesCompleted.Inc() }
func RecordFileFailed(reason string) { get().filesFailed.WithLabelValues(reason).Inc() }
func RecordRowsRead(n int)           { get().rowsRead.Add(float64(n)) }
func RecordRowSkipped()              { get().rowsSkipped.Inc() }
func RecordRowsFlagged(n int)        { get().rowsFlagged.Add(float64(n)) }

// Latency helpers. Values are milliseconds.
func RecordInferenceLatency(ms float64) { get().inferenceLatency.Observe(ms) }
func RecordPersistLatency(ms float64)   { get().persistLatency.Observe(ms) }
func RecordPersistRetry()               { get().persistRetries.Inc() }

// Queue helpers.
func UpdateQueueSize(n int)     { get().queueSize.Set(float64(n)) }
func UpdateQueueCapacity(n int) { get().queueCapacity.Set(float64(n)) }
func RecordQueueEnqueue()       { get().queueEnqueues.Inc() }
func RecordQueueDequeue()       { get().queueDequeues.Inc() }
func RecordQueueRejection()     { get().queueRejections.Inc() }
func UpdateInflightFiles(n int) { get().inflightFiles.Set(float64(n)) }
func UpdateWorkerCount(n int)   { get().workerCount.Set(float64(n)) }

// HTTP helpers.
func RecordHTTPRequest(endpoint, method, status string) {
	get().httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	get().httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
}
