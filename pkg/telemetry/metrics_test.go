package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveAPIRequest("GET", "/health", "200", time.Millisecond)
		m.RecordSecurityEvent("login_failure", "high")
		m.RecordLogin("credentials", "failure")
		m.RecordSessionValidation("ok")
		m.RecordTurnstile("rejected")
		m.RecordRateLimitDenied("/auth/login")
	})
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "unknown", sanitizeLabel(""))
	assert.Equal(t, "/auth/login", sanitizeLabel("/auth/login"))
}

func TestNewMetricsRecordsWithoutPanic(t *testing.T) {
	m := NewMetrics()

	assert.NotPanics(t, func() {
		m.ObserveAPIRequest("POST", "/auth/login", "401", 3*time.Millisecond)
		m.RecordSecurityEvent("suspicious_activity", "critical")
		m.RecordLogin("google", "success")
		m.RecordSessionValidation("rejected")
		m.RecordTurnstile("ok")
		m.RecordRateLimitDenied("")
	})
}
