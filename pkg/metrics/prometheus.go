// Package metrics provides Prometheus metrics for the mirrorback fixture.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	delayBuckets     []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInFlight        prometheus.Gauge

	// Error Metrics
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec

	// Delayed Response Metrics
	delaysPending   prometheus.Gauge
	delaysCompleted prometheus.Counter
	delaysAbandoned prometheus.Counter
	delaysRejected  prometheus.Counter
	delayRequested  prometheus.Histogram

	// Echo Metrics
	echoBodyBytes prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	customRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "mirrorback",
		subsystem:        "fixture",
		histogramBuckets: prometheus.DefBuckets,
		delayBuckets:     []float64{0, 1, 2, 5, 10, 30, 60, 300},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by route, method and status",
			ConstLabels: m.constLabels,
		},
		[]string{"route", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds, delayed responses included",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"route", "method", "status_code"},
	)

	m.httpInFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_in_flight",
		Help:        "Requests currently being served",
		ConstLabels: m.constLabels,
	})

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_route_total",
			Help:        "Client-visible errors by route and method",
			ConstLabels: m.constLabels,
		},
		[]string{"route", "method", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_type_total",
			Help:        "Client-visible errors by type and severity",
			ConstLabels: m.constLabels,
		},
		[]string{"error_type", "severity"},
	)

	m.delaysPending = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "delays_pending",
		Help:        "Delayed requests currently suspended",
		ConstLabels: m.constLabels,
	})

	m.delaysCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "delays_completed_total",
		Help:        "Delayed requests that waited out their full delay",
		ConstLabels: m.constLabels,
	})

	m.delaysAbandoned = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "delays_abandoned_total",
		Help:        "Delayed requests abandoned because the client went away",
		ConstLabels: m.constLabels,
	})

	m.delaysRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "delays_rejected_total",
		Help:        "Delayed requests rejected by the pending-delay limit",
		ConstLabels: m.constLabels,
	})

	m.delayRequested = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "delay_requested_seconds",
		Help:        "Requested delay values",
		Buckets:     m.delayBuckets,
		ConstLabels: m.constLabels,
	})

	m.echoBodyBytes = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "echo_body_bytes",
		Help:        "Size of request bodies accepted by the echo route",
		Buckets:     prometheus.ExponentialBuckets(64, 4, 8),
		ConstLabels: m.constLabels,
	})
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(route, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(route, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in seconds.
func RecordHTTPRequestDuration(route, method, statusCode string, seconds float64) {
	globalManager.httpRequestDuration.WithLabelValues(route, method, statusCode).Observe(seconds)
}

// IncInFlight marks a request as started.
func IncInFlight() { globalManager.httpInFlight.Inc() }

// DecInFlight marks a request as finished.
func DecInFlight() { globalManager.httpInFlight.Dec() }

// RecordErrorByEndpoint records an error for a specific route.
func RecordErrorByEndpoint(route, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(route, method, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// DelayStarted records a delay entering suspension.
func DelayStarted(seconds uint64) {
	globalManager.delaysPending.Inc()
	globalManager.delayRequested.Observe(float64(seconds))
}

// DelayCompleted records a delay that ran to expiry.
func DelayCompleted() {
	globalManager.delaysPending.Dec()
	globalManager.delaysCompleted.Inc()
}

// DelayAbandoned records a delay cut short by cancellation.
func DelayAbandoned() {
	globalManager.delaysPending.Dec()
	globalManager.delaysAbandoned.Inc()
}

// DelayRejected records a delay refused by admission control.
func DelayRejected() {
	globalManager.delaysRejected.Inc()
}

// RecordEchoBody records the size of an echoed body.
func RecordEchoBody(size int) {
	globalManager.echoBodyBytes.Observe(float64(size))
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
