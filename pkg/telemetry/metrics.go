package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus observability primitives for the studio
// backend.
type Metrics struct {
	apiRequests       *prometheus.CounterVec
	apiDuration       *prometheus.HistogramVec
	securityEvents    *prometheus.CounterVec
	loginOutcomes     *prometheus.CounterVec
	sessionChecks     *prometheus.CounterVec
	turnstileOutcomes *prometheus.CounterVec
	rateLimitDenied   *prometheus.CounterVec
}

// NewMetrics registers and returns Prometheus metrics for telemetry.
func NewMetrics() *Metrics {
	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_api_requests_total",
		Help: "Counts API requests by method, route, and status.",
	}, []string{"method", "route", "status"})

	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "studio_api_duration_seconds",
		Help:    "API request latency per method/route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	securityEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_security_events_total",
		Help: "Security events recorded by type and severity.",
	}, []string{"event_type", "severity"})

	loginOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_login_total",
		Help: "Login attempts by provider and outcome.",
	}, []string{"provider", "outcome"})

	sessionChecks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_session_validations_total",
		Help: "Session validation outcomes.",
	}, []string{"outcome"})

	turnstileOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_turnstile_verifications_total",
		Help: "Turnstile verification outcomes.",
	}, []string{"outcome"})

	rateLimitDenied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_rate_limit_denied_total",
		Help: "Requests denied by the login rate limiter.",
	}, []string{"route"})

	prometheus.MustRegister(
		apiRequests,
		apiDuration,
		securityEvents,
		loginOutcomes,
		sessionChecks,
		turnstileOutcomes,
		rateLimitDenied,
	)

	return &Metrics{
		apiRequests:       apiRequests,
		apiDuration:       apiDuration,
		securityEvents:    securityEvents,
		loginOutcomes:     loginOutcomes,
		sessionChecks:     sessionChecks,
		turnstileOutcomes: turnstileOutcomes,
		rateLimitDenied:   rateLimitDenied,
	}
}

// ObserveAPIRequest records an API request and latency.
func (m *Metrics) ObserveAPIRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	routeLabel := sanitizeLabel(route)
	m.apiRequests.WithLabelValues(method, routeLabel, status).Inc()
	m.apiDuration.WithLabelValues(method, routeLabel).Observe(duration.Seconds())
}

// RecordSecurityEvent counts a recorded security event.
func (m *Metrics) RecordSecurityEvent(eventType, severity string) {
	if m == nil {
		return
	}
	m.securityEvents.WithLabelValues(sanitizeLabel(eventType), sanitizeLabel(severity)).Inc()
}

// RecordLogin counts a login attempt outcome per provider.
func (m *Metrics) RecordLogin(provider, outcome string) {
	if m == nil {
		return
	}
	m.loginOutcomes.WithLabelValues(sanitizeLabel(provider), sanitizeLabel(outcome)).Inc()
}

// RecordSessionValidation counts a session validation outcome.
func (m *Metrics) RecordSessionValidation(outcome string) {
	if m == nil {
		return
	}
	m.sessionChecks.WithLabelValues(sanitizeLabel(outcome)).Inc()
}

// RecordTurnstile counts a turnstile verification outcome.
func (m *Metrics) RecordTurnstile(outcome string) {
	if m == nil {
		return
	}
	m.turnstileOutcomes.WithLabelValues(sanitizeLabel(outcome)).Inc()
}

// RecordRateLimitDenied counts a request rejected by the rate limiter.
func (m *Metrics) RecordRateLimitDenied(route string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.WithLabelValues(sanitizeLabel(route)).Inc()
}

func sanitizeLabel(val string) string {
	if val == "" {
		return "unknown"
	}
	return val
}
