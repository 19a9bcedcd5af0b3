// Package metrics provides Prometheus metrics for the momentum engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the momentum service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Scoring metrics
	scoresCalculated        prometheus.Counter
	scoreCalculationErrors  prometheus.Counter
	scoreCalculationLatency prometheus.Histogram

	// Batch metrics
	batchRuns           prometheus.Counter
	batchUsersSucceeded prometheus.Counter
	batchUsersFailed    prometheus.Counter
	batchDuration       prometheus.Histogram

	// Rule engine metrics
	ruleEvaluations         prometheus.Counter
	interventionsTriggered  *prometheus.CounterVec
	notificationsCreated    *prometheus.CounterVec
	notificationsSuppressed *prometheus.CounterVec

	// Queue metrics (reactive evaluation path)
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueues      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Error log / health metrics
	errorsLogged *prometheus.CounterVec
	healthStatus prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid the default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "momentum",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // metric inventory in one place
	auto := promauto.With(m.registry)

	m.scoresCalculated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "scores_calculated_total",
		Help: "Total number of daily scores calculated (including recalculations)",
	})
	m.scoreCalculationErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "score_calculation_errors_total",
		Help: "Total number of failed score calculations",
	})
	m.scoreCalculationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "score_calculation_latency_milliseconds",
		Help:    "Histogram of score calculation latency in milliseconds",
		Buckets: m.histogramBuckets,
	})

	m.batchRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "batch_runs_total",
		Help: "Total number of batch calculation or evaluation runs",
	})
	m.batchUsersSucceeded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "batch_users_succeeded_total",
		Help: "Total number of users processed successfully in batch runs",
	})
	m.batchUsersFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "batch_users_failed_total",
		Help: "Total number of users that failed in batch runs",
	})
	m.batchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "batch_duration_milliseconds",
		Help:    "Histogram of batch run duration in milliseconds",
		Buckets: m.histogramBuckets,
	})

	m.ruleEvaluations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "rule_evaluations_total",
		Help: "Total number of per-user rule evaluations",
	})
	m.interventionsTriggered = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "interventions_triggered_total",
		Help: "Total number of coaching interventions created, by trigger reason",
	}, []string{"reason"})
	m.notificationsCreated = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "notifications_created_total",
		Help: "Total number of notifications created, by type",
	}, []string{"type"})
	m.notificationsSuppressed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "notifications_suppressed_total",
		Help: "Total number of rule firings suppressed by the rate limiter, by type",
	}, []string{"type"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_size",
		Help: "Current size of the score-updated signal queue",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_capacity",
		Help: "Configured capacity of the score-updated signal queue",
	})
	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_utilization",
		Help: "Queue fill ratio between 0 and 1",
	})
	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_enqueues_total",
		Help: "Total number of signals enqueued for reactive evaluation",
	})
	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_enqueue_errors_total",
		Help: "Total number of signals dropped due to backpressure or shutdown",
	})

	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "worker_active_count",
		Help: "Number of evaluation workers currently running",
	})
	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "worker_processing_latency_milliseconds",
		Help:    "Histogram of reactive evaluation latency in milliseconds",
		Buckets: m.histogramBuckets,
	})
	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "worker_errors_total",
		Help: "Total number of reactive evaluation failures",
	})

	m.errorsLogged = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "errors_logged_total",
		Help: "Total number of error-log entries, by type and severity",
	}, []string{"error_type", "severity"})
	m.healthStatus = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "health_status",
		Help: "Derived health status: 0 healthy, 1 degraded, 2 critical",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "Total number of HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_memory_bytes",
		Help: "Current heap allocation in bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_goroutines",
		Help: "Current number of goroutines",
	})
}

// GetRegistry returns the registry backing the global manager, for the
// metrics HTTP handler.
func GetRegistry() *prometheus.Registry { return customRegistry }

// Package-level helpers on the global manager.

func RecordScoreCalculated()       { globalManager.scoresCalculated.Inc() }
func RecordScoreCalculationError() { globalManager.scoreCalculationErrors.Inc() }
func RecordScoreCalculationLatency(ms float64) {
	globalManager.scoreCalculationLatency.Observe(ms)
}

func RecordBatchRun()                { globalManager.batchRuns.Inc() }
func RecordBatchUserSucceeded()      { globalManager.batchUsersSucceeded.Inc() }
func RecordBatchUserFailed()         { globalManager.batchUsersFailed.Inc() }
func RecordBatchDuration(ms float64) { globalManager.batchDuration.Observe(ms) }
func RecordRuleEvaluation()          { globalManager.ruleEvaluations.Inc() }
func RecordInterventionTriggered(reason string) {
	globalManager.interventionsTriggered.WithLabelValues(reason).Inc()
}

func RecordNotificationCreated(notificationType string) {
	globalManager.notificationsCreated.WithLabelValues(notificationType).Inc()
}

func RecordNotificationSuppressed(notificationType string) {
	globalManager.notificationsSuppressed.WithLabelValues(notificationType).Inc()
}

func UpdateQueueSize(size int)         { globalManager.queueSize.Set(float64(size)) }
func UpdateQueueCapacity(c int)        { globalManager.queueCapacity.Set(float64(c)) }
func UpdateQueueUtilization(u float64) { globalManager.queueUtilization.Set(u) }
func RecordQueueEnqueue()              { globalManager.queueEnqueues.Inc() }
func RecordQueueEnqueueError()         { globalManager.queueEnqueueErrors.Inc() }

func UpdateWorkerActiveCount(n int)            { globalManager.workerActiveCount.Set(float64(n)) }
func RecordWorkerProcessingLatency(ms float64) { globalManager.workerProcessingLatency.Observe(ms) }
func RecordWorkerError()                       { globalManager.workerErrors.Inc() }

func RecordErrorLogged(errorType, severity string) {
	globalManager.errorsLogged.WithLabelValues(errorType, severity).Inc()
}

// UpdateHealthStatus maps a health status string onto the gauge.
func UpdateHealthStatus(status string) {
	switch status {
	case "healthy":
		globalManager.healthStatus.Set(0)
	case "degraded":
		globalManager.healthStatus.Set(1)
	default:
		globalManager.healthStatus.Set(2)
	}
}

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(n int) {
	globalManager.systemGoroutineCount.Set(float64(n))
}
