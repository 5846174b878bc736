package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framecraft/studio/internal/auth/domain"
	"github.com/framecraft/studio/internal/securityevent/anomaly"
	eventdomain "github.com/framecraft/studio/internal/securityevent/domain"
)

func TestValidateHappyPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess, rawToken := h.mintUserSession(t)

	h.clock.Advance(10 * time.Minute)
	result := h.svc.Validate(ctx, rawToken, testMeta)
	require.True(t, result.Valid)
	assert.Equal(t, sess.SessionID, result.Session.SessionID)

	stored := h.loadSession(t, sess.SessionID)
	assert.True(t, stored.LastSeenAt.After(sess.LastSeenAt))
}

func TestValidateRejectsMissingOrUnknownTokens(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result := h.svc.Validate(ctx, "", testMeta)
	assert.False(t, result.Valid)
	assert.Equal(t, "No session found", result.Reason)

	result = h.svc.Validate(ctx, "not-a-token", testMeta)
	assert.False(t, result.Valid)
	assert.Equal(t, "No session found", result.Reason)
}

func TestValidateRejectsRevokedSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess, rawToken := h.mintUserSession(t)

	require.NoError(t, h.sessionRepo.RevokeSession(ctx, sess.ID, h.clock.Now()))
	result := h.svc.Validate(ctx, rawToken, testMeta)
	assert.False(t, result.Valid)
	assert.Equal(t, "No session found", result.Reason)
}

func TestValidateRejectsExpiredSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, rawToken := h.mintUserSession(t)

	h.clock.Advance(31 * 24 * time.Hour)
	h.events.reset()
	result := h.svc.Validate(ctx, rawToken, testMeta)
	assert.False(t, result.Valid)
	assert.Equal(t, "Session expired", result.Reason)
	assert.Len(t, h.events.byType(eventdomain.EventSessionExpired), 1)
}

func TestValidateRevokesAgedSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess, rawToken := h.mintUserSession(t)

	// Within the absolute lifetime but past the hijack cutoff.
	h.clock.Advance(25 * time.Hour)
	h.events.reset()
	result := h.svc.Validate(ctx, rawToken, testMeta)
	assert.False(t, result.Valid)
	assert.Equal(t, "Session expired", result.Reason)

	suspicious := h.events.byType(eventdomain.EventSuspiciousActivity)
	require.Len(t, suspicious, 1)
	assert.Equal(t, eventdomain.SeverityCritical, suspicious[0].Severity)
	assert.Equal(t, "Session age exceeded", suspicious[0].Details["reason"])
	assert.NotNil(t, h.loadSession(t, sess.SessionID).RevokedAt)
}

func TestValidateRejectsTamperedRoleClaim(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess, rawToken := h.mintUserSession(t)

	require.NoError(t, h.db.Model(&domain.Session{}).Where("id = ?", sess.ID).Update("role", domain.RoleAdmin).Error)

	result := h.svc.Validate(ctx, rawToken, testMeta)
	assert.False(t, result.Valid)
	assert.Equal(t, "Invalid session", result.Reason)
	assert.NotNil(t, h.loadSession(t, sess.SessionID).RevokedAt)
}

func TestValidateFlagsClusteredLoginFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess, rawToken := h.mintUserSession(t)

	for i := 0; i < anomaly.FailureThreshold; i++ {
		require.NoError(t, h.events.Record(ctx, eventdomain.Entry{
			EventType: eventdomain.EventLoginFailure,
			Severity:  eventdomain.SeverityMedium,
			UserID:    sess.UserID.String(),
			IPAddress: testMeta.IPAddress,
		}))
	}

	h.events.reset()
	result := h.svc.Validate(ctx, rawToken, testMeta)
	assert.False(t, result.Valid)
	assert.Equal(t, "Suspicious activity detected", result.Reason)

	flagged := h.events.byType(eventdomain.EventSuspiciousActivity)
	require.Len(t, flagged, 1)
	assert.Equal(t, eventdomain.SeverityHigh, flagged[0].Severity)
	assert.Equal(t, "Multiple failed login attempts", flagged[0].Details["reason"])
}

func TestValidateFlagsLoginsAcrossManyIPs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess, rawToken := h.mintUserSession(t)

	// The login itself already wrote one success from testMeta's address.
	ips := []string{"198.51.100.1", "198.51.100.2"}
	for _, ip := range ips {
		require.NoError(t, h.events.Record(ctx, eventdomain.Entry{
			EventType: eventdomain.EventLoginSuccess,
			Severity:  eventdomain.SeverityLow,
			UserID:    sess.UserID.String(),
			IPAddress: ip,
		}))
	}

	h.events.reset()
	result := h.svc.Validate(ctx, rawToken, testMeta)
	assert.False(t, result.Valid)
	assert.Equal(t, "Suspicious activity detected", result.Reason)

	flagged := h.events.byType(eventdomain.EventSuspiciousActivity)
	require.Len(t, flagged, 1)
	assert.Equal(t, eventdomain.SeverityMedium, flagged[0].Severity)
	assert.Equal(t, "Multiple IP addresses", flagged[0].Details["reason"])
}

func TestValidateIgnoresFailuresOutsideWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess, rawToken := h.mintUserSession(t)

	for i := 0; i < anomaly.FailureThreshold; i++ {
		require.NoError(t, h.events.Record(ctx, eventdomain.Entry{
			EventType: eventdomain.EventLoginFailure,
			Severity:  eventdomain.SeverityMedium,
			UserID:    sess.UserID.String(),
			IPAddress: testMeta.IPAddress,
		}))
	}

	h.clock.Advance(anomaly.Window + time.Minute)
	result := h.svc.Validate(ctx, rawToken, testMeta)
	assert.True(t, result.Valid)
}

func TestValidateAdminSessionSkipsAnomalyGate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, rawToken := h.mintAdminSession(t)

	result := h.svc.Validate(ctx, rawToken, testMeta)
	require.True(t, result.Valid)
	assert.True(t, result.Session.IsAdmin())
}

func TestValidateRefreshesRoleFromUserStore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess, rawToken := h.mintUserSession(t)

	require.NoError(t, h.db.Model(&domain.User{}).Where("id = ?", sess.UserID).Update("role", domain.RoleAdmin).Error)

	// The promotion lands on this pass; the session row now disagrees with
	// its type, so the following pass revokes it and forces a re-login.
	result := h.svc.Validate(ctx, rawToken, testMeta)
	require.True(t, result.Valid)
	assert.Equal(t, domain.RoleAdmin, result.Session.Role)

	second := h.svc.Validate(ctx, rawToken, testMeta)
	assert.False(t, second.Valid)
	assert.Equal(t, "Invalid session", second.Reason)
}

func TestValidateRevokesSessionForMissingUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess, rawToken := h.mintUserSession(t)

	require.NoError(t, h.db.Where("id = ?", sess.UserID).Delete(&domain.User{}).Error)

	h.events.reset()
	result := h.svc.Validate(ctx, rawToken, testMeta)
	assert.False(t, result.Valid)
	assert.Equal(t, "Invalid session", result.Reason)

	suspicious := h.events.byType(eventdomain.EventSuspiciousActivity)
	require.Len(t, suspicious, 1)
	assert.Equal(t, "Session references missing user", suspicious[0].Details["reason"])
	assert.NotNil(t, h.loadSession(t, sess.SessionID).RevokedAt)
}
