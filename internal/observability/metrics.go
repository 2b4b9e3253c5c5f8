package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the HTTP surface and the
// disclosure pipeline.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	decisions       *prometheus.CounterVec
	auditFailures   *prometheus.CounterVec
	relationErrors  *prometheus.CounterVec
}

// NewMetrics initialises a registry and the base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "buildmart_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "buildmart_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "buildmart_access_decisions_total",
		Help: "Disclosure decisions by resource type and reason.",
	}, []string{"resource", "reason"})
	auditFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "buildmart_audit_write_failures_total",
		Help: "Audit writes that failed and forced a public-only response.",
	}, []string{"resource"})
	relationErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "buildmart_relationship_failures_total",
		Help: "Relationship lookups that failed or timed out.",
	}, []string{"resource"})
	registry.MustRegister(requests, duration, decisions, auditFailures, relationErrors)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		decisions:       decisions,
		auditFailures:   auditFailures,
		relationErrors:  relationErrors,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Decision counts one disclosure decision.
func (m *Metrics) Decision(resource, reason string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(resource, reason).Inc()
}

// AuditFailure counts one failed audit write.
func (m *Metrics) AuditFailure(resource string) {
	if m == nil {
		return
	}
	m.auditFailures.WithLabelValues(resource).Inc()
}

// RelationshipFailure counts one failed relationship lookup.
func (m *Metrics) RelationshipFailure(resource string) {
	if m == nil {
		return
	}
	m.relationErrors.WithLabelValues(resource).Inc()
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
