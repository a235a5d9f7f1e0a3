// Package metrics provides Prometheus metrics for the matchd service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for the matching service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Core business metrics
	matchRequests       prometheus.Counter
	matchResults        prometheus.Histogram
	candidatesScored    prometheus.Counter
	candidatesExcluded  prometheus.Counter
	candidatesFiltered  prometheus.Counter
	scoringLatency      prometheus.Histogram
	feedbackApplied     prometheus.Counter
	feedbackSkipped     prometheus.Counter
	feedbackDuplicate   prometheus.Counter
	weightUpdates       prometheus.Counter
	weightUpdateErrors  prometheus.Counter
	auditWrites         prometheus.Counter
	auditWriteErrors    prometheus.Counter
	learningError       prometheus.Histogram

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueues      prometheus.Counter
	queueDequeues      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "matchd",
		subsystem:        "matching",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.matchRequests = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "match_requests_total",
		Help:      "Total number of match requests served",
	})

	m.matchResults = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "match_results_returned",
		Help:      "Histogram of result counts returned per match request",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
	})

	m.candidatesScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "candidates_scored_total",
		Help:      "Total number of candidates run through the feature scorers",
	})

	m.candidatesExcluded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "candidates_excluded_total",
		Help:      "Total number of candidates excluded by an existing relationship",
	})

	m.candidatesFiltered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "candidates_below_threshold_total",
		Help:      "Total number of candidates dropped by the minimum score threshold",
	})

	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_latency_milliseconds",
		Help:      "Histogram of per-request scoring latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.feedbackApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feedback_applied_total",
		Help:      "Total number of feedback events that produced a weight update",
	})

	m.feedbackSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feedback_skipped_total",
		Help:      "Total number of feedback events skipped (no matching audit record)",
	})

	m.feedbackDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feedback_duplicate_total",
		Help:      "Total number of duplicate feedback events detected",
	})

	m.weightUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "weight_updates_total",
		Help:      "Total number of committed weight vector updates",
	})

	m.weightUpdateErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "weight_update_errors_total",
		Help:      "Total number of discarded weight vector updates",
	})

	m.auditWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_writes_total",
		Help:      "Total number of audit records written",
	})

	m.auditWriteErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_write_errors_total",
		Help:      "Total number of failed audit writes (best-effort, non-fatal)",
	})

	m.learningError = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "learning_prediction_error",
		Help:      "Histogram of target-minus-predicted error observed by the learning loop",
		Buckets:   []float64{-1, -0.75, -0.5, -0.25, -0.1, 0, 0.1, 0.25, 0.5, 0.75, 1},
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feedback_queue_size",
		Help:      "Current number of queued feedback events",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feedback_queue_capacity",
		Help:      "Configured capacity of the feedback queue",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feedback_queue_utilization",
		Help:      "Feedback queue utilization ratio (0-1)",
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feedback_queue_enqueues_total",
		Help:      "Total number of feedback events enqueued",
	})

	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feedback_queue_dequeues_total",
		Help:      "Total number of feedback events dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feedback_queue_enqueue_errors_total",
		Help:      "Total number of rejected enqueue attempts (closed or full queue)",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "learning_worker_count",
		Help:      "Number of learning workers",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "learning_worker_latency_milliseconds",
		Help:      "Histogram of feedback processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "learning_worker_errors_total",
		Help:      "Total number of feedback events that failed processing",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current allocated heap bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
}

// Package-level helpers operating on the global manager.

func RecordMatchRequest()                  { globalManager.matchRequests.Inc() }
func RecordMatchResults(n int)             { globalManager.matchResults.Observe(float64(n)) }
func RecordCandidateScored()               { globalManager.candidatesScored.Inc() }
func RecordCandidateExcluded()             { globalManager.candidatesExcluded.Inc() }
func RecordCandidateBelowThreshold()       { globalManager.candidatesFiltered.Inc() }
func RecordScoringLatency(ms float64)      { globalManager.scoringLatency.Observe(ms) }
func RecordFeedbackApplied()               { globalManager.feedbackApplied.Inc() }
func RecordFeedbackSkipped()               { globalManager.feedbackSkipped.Inc() }
func RecordFeedbackDuplicate()             { globalManager.feedbackDuplicate.Inc() }
func RecordWeightUpdate()                  { globalManager.weightUpdates.Inc() }
func RecordWeightUpdateError()             { globalManager.weightUpdateErrors.Inc() }
func RecordAuditWrite()                    { globalManager.auditWrites.Inc() }
func RecordAuditWriteError()               { globalManager.auditWriteErrors.Inc() }
func RecordLearningError(err float64)      { globalManager.learningError.Observe(err) }
func UpdateQueueSize(size int)             { globalManager.queueSize.Set(float64(size)) }
func UpdateQueueCapacity(capacity int)     { globalManager.queueCapacity.Set(float64(capacity)) }
func UpdateQueueUtilization(ratio float64) { globalManager.queueUtilization.Set(ratio) }
func RecordQueueEnqueue()                  { globalManager.queueEnqueues.Inc() }
func RecordQueueDequeue()                  { globalManager.queueDequeues.Inc() }
func RecordQueueEnqueueError()             { globalManager.queueEnqueueErrors.Inc() }
func UpdateWorkerCount(count int)          { globalManager.workerCount.Set(float64(count)) }
func RecordWorkerLatency(ms float64)       { globalManager.workerProcessingLatency.Observe(ms) }
func RecordWorkerError()                   { globalManager.workerErrors.Inc() }

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
}

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
