package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector holds all Prometheus metrics for Bureau.
// Uses a custom registry, no global state.
type MetricsCollector struct {
	Registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ActiveRequests      prometheus.Gauge

	// Tenant metrics.
	TenantScopeMissingTotal prometheus.Counter
	TenantRequestsTotal     *prometheus.CounterVec

	// Security metrics.
	SecurityChecksTotal *prometheus.CounterVec

	// Storage metrics.
	DBQueryDuration *prometheus.HistogramVec
	DBErrorsTotal   *prometheus.CounterVec

	// Visitor feed metrics.
	FeedConnections prometheus.Gauge
	FeedEventsTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a MetricsCollector with all metrics registered
// on a custom prometheus.Registry.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()

	m := &MetricsCollector{
		Registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bureau",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		}, []string{"method", "path", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bureau",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bureau",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		TenantScopeMissingTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bureau",
			Name:      "tenant_scope_missing_total",
			Help:      "Requests to tenant routes without a company header.",
		}),

		TenantRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bureau",
			Subsystem: "tenant",
			Name:      "requests_total",
			Help:      "Tenant-scoped requests by resolution result.",
		}, []string{"result"}),

		SecurityChecksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bureau",
			Subsystem: "security",
			Name:      "checks_total",
			Help:      "Total security checks performed.",
		}, []string{"check_type", "result"}),

		DBQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bureau",
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database statement duration in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation", "table"}),

		DBErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bureau",
			Subsystem: "db",
			Name:      "errors_total",
			Help:      "Database statements that failed.",
		}, []string{"operation", "table"}),

		FeedConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bureau",
			Subsystem: "feed",
			Name:      "connections",
			Help:      "Open visitor feed connections.",
		}),

		FeedEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bureau",
			Subsystem: "feed",
			Name:      "events_total",
			Help:      "Visitor feed events sent to clients.",
		}, []string{"type"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ActiveRequests,
		m.TenantScopeMissingTotal,
		m.TenantRequestsTotal,
		m.SecurityChecksTotal,
		m.DBQueryDuration,
		m.DBErrorsTotal,
		m.FeedConnections,
		m.FeedEventsTotal,
	)

	return m
}
