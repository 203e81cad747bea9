package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the Prometheus registry and the streamhub collectors. It
// implements the auth observer consumed by the API handler.
type Metrics struct {
	reg *prometheus.Registry

	httpDuration *prometheus.HistogramVec
	authOps      *prometheus.CounterVec
}

// NewMetrics builds a registry with runtime collectors plus streamhub's own.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		reg: reg,
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "streamhub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status_class"}),
		authOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamhub",
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Auth operations by outcome.",
		}, []string{"op", "outcome"}),
	}
	reg.MustRegister(m.httpDuration, m.authOps)
	return m
}

// ObserveAuth satisfies the API handler's observer interface.
func (m *Metrics) ObserveAuth(op, outcome string) {
	if m == nil {
		return
	}
	m.authOps.WithLabelValues(op, outcome).Inc()
}

// ObserveHTTP records one request into the latency histogram.
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, metricsRoute(path), statusClass(status)).
		Observe(elapsed.Seconds())
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// metricsRoute collapses request paths onto the fixed route set so label
// cardinality stays bounded.
func metricsRoute(path string) string {
	switch path {
	case "/api/v1/accounts/register",
		"/api/v1/accounts/login",
		"/api/v1/accounts/refresh",
		"/api/v1/accounts/logout",
		"/api/v1/accounts/change-password",
		"/api/v1/accounts/current",
		"/healthz", "/readyz", "/metrics":
		return path
	}
	if strings.HasPrefix(path, "/media/") {
		return "/media/"
	}
	return "other"
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
