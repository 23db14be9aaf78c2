package metrics

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const statusClassDivisor = 100

// Metrics defines all Prometheus metrics for the digest service.
type Metrics struct {
	registry *prometheus.Registry

	// RED (Rate, Errors, Duration) for HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestsInFlight prometheus.Gauge
	HTTPRequestDuration  *prometheus.HistogramVec

	// Business metrics
	SubscriptionsCreated   *prometheus.CounterVec // by frequency
	SubscriptionsConfirmed prometheus.Counter
	SubscriptionsCanceled  prometheus.Counter

	// Broadcast cycle metrics
	CycleRuns     *prometheus.CounterVec // by frequency
	CycleSkipped  *prometheus.CounterVec // overlapping runs skipped, by frequency
	CycleDuration *prometheus.HistogramVec
	CitiesSkipped *prometheus.CounterVec // weather lookup failures, by frequency
	EmailsSent    *prometheus.CounterVec // by frequency, result

	// Errors metrics
	BusinessErrors  *prometheus.CounterVec
	TechnicalErrors *prometheus.CounterVec
}

// New creates and registers all metrics under the given namespace.
func New(namespace string, db *sql.DB, dbName string) *Metrics {
	registry := prometheus.NewRegistry()
	errorLabels := []string{"error_type", "severity"}

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests total",
			},
			[]string{"method", "endpoint", "status_class"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "In-flight HTTP requests",
			},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		SubscriptionsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscriptions_created_total",
				Help:      "Total subscriptions created",
			},
			[]string{"frequency"},
		),
		SubscriptionsConfirmed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscriptions_confirmed_total",
				Help:      "Total subscriptions confirmed",
			},
		),
		SubscriptionsCanceled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscriptions_canceled_total",
				Help:      "Total subscriptions canceled",
			},
		),

		CycleRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "broadcast_cycles_total",
				Help:      "Broadcast cycle executions",
			},
			[]string{"frequency"},
		),
		CycleSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "broadcast_cycles_skipped_total",
				Help:      "Broadcast cycles skipped because the previous run was still in flight",
			},
			[]string{"frequency"},
		),
		CycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "broadcast_cycle_duration_seconds",
				Help:      "Duration of broadcast cycles",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"frequency"},
		),
		CitiesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "broadcast_cities_skipped_total",
				Help:      "City groups skipped due to weather lookup failures",
			},
			[]string{"frequency"},
		),
		EmailsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "broadcast_emails_total",
				Help:      "Broadcast email attempts",
			},
			[]string{"frequency", "result"},
		),

		BusinessErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "business_errors_total",
				Help:      "Total business errors",
			},
			errorLabels,
		),
		TechnicalErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "technical_errors_total",
				Help:      "Total technical errors",
			},
			errorLabels,
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestsInFlight,
		m.HTTPRequestDuration,
		m.SubscriptionsCreated,
		m.SubscriptionsConfirmed,
		m.SubscriptionsCanceled,
		m.CycleRuns,
		m.CycleSkipped,
		m.CycleDuration,
		m.CitiesSkipped,
		m.EmailsSent,
		m.BusinessErrors,
		m.TechnicalErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, dbName),
	)

	return m
}

// Handler exposes the registry for a /metrics route.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware instruments Gin HTTP handlers for RED metrics.
func (m *Metrics) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		c.Next()
		m.HTTPRequestsInFlight.Dec()

		dur := time.Since(start).Seconds()
		status := c.Writer.Status()
		statusClass := fmt.Sprintf("%dxx", status/statusClassDivisor)

		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, c.FullPath(), statusClass).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, c.FullPath()).Observe(dur)
	}
}
