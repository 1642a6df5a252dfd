package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RequestDuration  *prometheus.HistogramVec
	LoginAttempts    *prometheus.CounterVec
	AuditEntries     *prometheus.CounterVec
	RateLimitBlocked prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aquicultura_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		LoginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aquicultura_login_attempts_total",
			Help: "Login attempts by outcome (success, failure, blocked)",
		}, []string{"outcome"}),
		AuditEntries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aquicultura_audit_entries_total",
			Help: "Audit log entries recorded by action",
		}, []string{"action"}),
		RateLimitBlocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aquicultura_rate_limit_blocked_total",
			Help: "Requests rejected by the login rate limiter",
		}),
	}
}
