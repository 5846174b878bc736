package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framecraft/studio/internal/auth/domain"
	eventdomain "github.com/framecraft/studio/internal/securityevent/domain"
)

func (h *harness) mintUserSession(t *testing.T) (*domain.Session, string) {
	t.Helper()
	h.createUser(t, "client@studio.test", "open sesame", domain.RoleUser)
	result, err := h.svc.LoginWithCredentials(context.Background(), domain.LoginRequest{
		Email:          "client@studio.test",
		Password:       "open sesame",
		TurnstileToken: "tok",
		Meta:           testMeta,
	})
	require.NoError(t, err)
	return h.loadSession(t, result.Session.SessionID), result.RawToken
}

func (h *harness) mintAdminSession(t *testing.T) (*domain.Session, string) {
	t.Helper()
	result, err := h.svc.LoginAsAdmin(context.Background(), domain.LoginRequest{
		Email:          "owner@studio.test",
		Password:       "correct horse battery staple",
		TurnstileToken: "tok",
		Meta:           testMeta,
	})
	require.NoError(t, err)
	return h.loadSession(t, result.Session.SessionID), result.RawToken
}

func TestEnforceConsistencyRepairsAdminRoleDrift(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess, _ := h.mintAdminSession(t)

	// Simulate role drift on a legitimately minted admin session.
	require.NoError(t, h.db.Model(&domain.Session{}).Where("id = ?", sess.ID).Update("role", domain.RoleUser).Error)
	sess = h.loadSession(t, sess.SessionID)
	require.Equal(t, domain.RoleUser, sess.Role)

	h.events.reset()
	repaired, err := h.svc.EnforceConsistency(ctx, sess, testMeta)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, repaired.Role)

	stored := h.loadSession(t, sess.SessionID)
	assert.Equal(t, domain.RoleAdmin, stored.Role)
	assert.Nil(t, stored.RevokedAt)

	escalations := h.events.byType(eventdomain.EventRoleEscalationAttempt)
	require.Len(t, escalations, 1)
	assert.Equal(t, eventdomain.SeverityCritical, escalations[0].Severity)
	assert.Equal(t, "admin_role_repaired", escalations[0].Details["direction"])

	// Repair is idempotent: a consistent session passes silently.
	h.events.reset()
	again, err := h.svc.EnforceConsistency(ctx, stored, testMeta)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, again.Role)
	assert.Empty(t, h.events.byType(eventdomain.EventRoleEscalationAttempt))
}

func TestEnforceConsistencyRejectsUserClaimingAdmin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess, _ := h.mintUserSession(t)

	require.NoError(t, h.db.Model(&domain.Session{}).Where("id = ?", sess.ID).Update("role", domain.RoleAdmin).Error)
	sess = h.loadSession(t, sess.SessionID)

	h.events.reset()
	_, err := h.svc.EnforceConsistency(ctx, sess, testMeta)
	assert.ErrorIs(t, err, domain.ErrRoleEscalation)

	stored := h.loadSession(t, sess.SessionID)
	assert.NotNil(t, stored.RevokedAt)

	escalations := h.events.byType(eventdomain.EventRoleEscalationAttempt)
	require.Len(t, escalations, 1)
	assert.Equal(t, eventdomain.SeverityCritical, escalations[0].Severity)
	assert.Equal(t, "rejected", escalations[0].Details["direction"])
}

func TestEnforceConsistencyRejectsProviderMismatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	t.Run("admin session minted by non-admin provider", func(t *testing.T) {
		sess, _ := h.mintAdminSession(t)
		require.NoError(t, h.db.Model(&domain.Session{}).Where("id = ?", sess.ID).Update("provider", domain.ProviderCredentials).Error)
		sess = h.loadSession(t, sess.SessionID)

		h.events.reset()
		_, err := h.svc.EnforceConsistency(ctx, sess, testMeta)
		assert.ErrorIs(t, err, domain.ErrRoleEscalation)
		assert.NotNil(t, h.loadSession(t, sess.SessionID).RevokedAt)
	})

	t.Run("admin provider on user session", func(t *testing.T) {
		sess, _ := h.mintUserSession(t)
		require.NoError(t, h.db.Model(&domain.Session{}).Where("id = ?", sess.ID).Update("provider", domain.ProviderAdminCredentials).Error)
		sess = h.loadSession(t, sess.SessionID)

		h.events.reset()
		_, err := h.svc.EnforceConsistency(ctx, sess, testMeta)
		assert.ErrorIs(t, err, domain.ErrRoleEscalation)
		assert.NotNil(t, h.loadSession(t, sess.SessionID).RevokedAt)
	})

	t.Run("nil session is invalid", func(t *testing.T) {
		_, err := h.svc.EnforceConsistency(ctx, nil, testMeta)
		assert.ErrorIs(t, err, domain.ErrInvalidSession)
	})
}
