package service

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framecraft/studio/internal/auth/domain"
	eventdomain "github.com/framecraft/studio/internal/securityevent/domain"
	"github.com/framecraft/studio/internal/turnstile"
	"github.com/framecraft/studio/pkg/telemetry"
)

func TestLoginWithCredentials(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createUser(t, "client@studio.test", "open sesame", domain.RoleUser)

	t.Run("success mints user session", func(t *testing.T) {
		h.events.reset()
		result, err := h.svc.LoginWithCredentials(ctx, domain.LoginRequest{
			Email:          "client@studio.test",
			Password:       "open sesame",
			TurnstileToken: "tok",
			Meta:           testMeta,
		})
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.NotEmpty(t, result.RawToken)
		assert.Equal(t, domain.RoleUser, result.Session.Role)
		assert.Equal(t, domain.SessionTypeUser, result.Session.SessionType)
		assert.Equal(t, domain.ProviderCredentials, result.Session.Provider)

		stored := h.loadSession(t, result.Session.SessionID)
		assert.NotEqual(t, result.RawToken, stored.TokenHash)

		assert.Len(t, h.events.byType(eventdomain.EventLoginAttempt), 1)
		assert.Len(t, h.events.byType(eventdomain.EventLoginSuccess), 1)
	})

	t.Run("wrong password records failure with user id", func(t *testing.T) {
		h.events.reset()
		_, err := h.svc.LoginWithCredentials(ctx, domain.LoginRequest{
			Email:          "client@studio.test",
			Password:       "wrong",
			TurnstileToken: "tok",
			Meta:           testMeta,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

		failures := h.events.byType(eventdomain.EventLoginFailure)
		require.Len(t, failures, 1)
		assert.Equal(t, "Invalid password", failures[0].Details["reason"])
		assert.NotEmpty(t, failures[0].UserID)
	})

	t.Run("unknown email uses same failure reason as wrong provider", func(t *testing.T) {
		h.events.reset()
		_, err := h.svc.LoginWithCredentials(ctx, domain.LoginRequest{
			Email:          "nobody@studio.test",
			Password:       "whatever",
			TurnstileToken: "tok",
			Meta:           testMeta,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

		failures := h.events.byType(eventdomain.EventLoginFailure)
		require.Len(t, failures, 1)
		assert.Equal(t, "User not found or wrong provider", failures[0].Details["reason"])
		assert.Empty(t, failures[0].UserID)
	})

	t.Run("failed bot check rejects before credentials", func(t *testing.T) {
		h.events.reset()
		h.verifier.result = turnstile.Result{Success: false, ErrorCodes: []string{"invalid-input-response"}}
		defer func() { h.verifier.result = turnstile.Result{Success: true} }()

		_, err := h.svc.LoginWithCredentials(ctx, domain.LoginRequest{
			Email:          "client@studio.test",
			Password:       "open sesame",
			TurnstileToken: "bad",
			Meta:           testMeta,
		})
		assert.ErrorIs(t, err, domain.ErrVerificationRequired)
		assert.Len(t, h.events.byType(eventdomain.EventTurnstileFailure), 1)
		assert.Empty(t, h.events.byType(eventdomain.EventLoginAttempt))
	})
}

func TestLoginAsAdmin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	t.Run("correct pair mints admin session without a user row", func(t *testing.T) {
		h.events.reset()
		result, err := h.svc.LoginAsAdmin(ctx, domain.LoginRequest{
			Email:          "owner@studio.test",
			Password:       "correct horse battery staple",
			TurnstileToken: "tok",
			Meta:           testMeta,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, result.Session.Role)
		assert.Equal(t, domain.SessionTypeAdmin, result.Session.SessionType)
		assert.Equal(t, domain.ProviderAdminCredentials, result.Session.Provider)
		assert.True(t, strings.HasPrefix(result.Session.Subject, "admin-"))

		stored := h.loadSession(t, result.Session.SessionID)
		assert.Zero(t, stored.UserID)
	})

	t.Run("wrong password is a high severity failure", func(t *testing.T) {
		h.events.reset()
		_, err := h.svc.LoginAsAdmin(ctx, domain.LoginRequest{
			Email:          "owner@studio.test",
			Password:       "nope",
			TurnstileToken: "tok",
			Meta:           testMeta,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

		failures := h.events.byType(eventdomain.EventLoginFailure)
		require.Len(t, failures, 1)
		assert.Equal(t, eventdomain.SeverityHigh, failures[0].Severity)
	})

	t.Run("unconfigured credentials fail closed", func(t *testing.T) {
		h.events.reset()
		saved := h.svc.admin
		h.svc.admin.Email = ""
		h.svc.admin.Password = ""
		defer func() { h.svc.admin = saved }()

		_, err := h.svc.LoginAsAdmin(ctx, domain.LoginRequest{
			Email:          "owner@studio.test",
			Password:       "correct horse battery staple",
			TurnstileToken: "tok",
			Meta:           testMeta,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

		failures := h.events.byType(eventdomain.EventLoginFailure)
		require.Len(t, failures, 1)
		assert.Equal(t, "Admin credentials not configured", failures[0].Details["reason"])
	})
}

func TestLoginWithGoogle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := domain.FederatedLoginRequest{
		Email:       "Photographer@Studio.Test",
		DisplayName: "Pat Photographer",
		ExternalID:  "google-sub-1",
		Meta:        testMeta,
	}

	t.Run("first sign-in creates a user with role user", func(t *testing.T) {
		result, err := h.svc.LoginWithGoogle(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleUser, result.Session.Role)
		assert.Equal(t, domain.ProviderGoogle, result.Session.Provider)

		user, err := h.repo.FindByEmail(ctx, "photographer@studio.test")
		require.NoError(t, err)
		assert.Equal(t, domain.ProviderGoogle, user.Provider)
		assert.Equal(t, "Pat Photographer", user.DisplayName)
	})

	t.Run("returning sign-in reuses the identity", func(t *testing.T) {
		_, err := h.svc.LoginWithGoogle(ctx, req)
		require.NoError(t, err)

		var count int64
		require.NoError(t, h.db.Model(&domain.User{}).Where("email = ?", "photographer@studio.test").Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("federation never takes over a credentials account", func(t *testing.T) {
		h.createUser(t, "local@studio.test", "hunter22hunter22", domain.RoleUser)
		_, err := h.svc.LoginWithGoogle(ctx, domain.FederatedLoginRequest{
			Email:      "local@studio.test",
			ExternalID: "google-sub-2",
			Meta:       testMeta,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createUser(t, "client@studio.test", "open sesame", domain.RoleUser)

	result, err := h.svc.LoginWithCredentials(ctx, domain.LoginRequest{
		Email:          "client@studio.test",
		Password:       "open sesame",
		TurnstileToken: "tok",
		Meta:           testMeta,
	})
	require.NoError(t, err)

	h.events.reset()
	require.NoError(t, h.svc.Logout(ctx, result.RawToken, testMeta))
	assert.Len(t, h.events.byType(eventdomain.EventLogout), 1)

	check := h.svc.Validate(ctx, result.RawToken, testMeta)
	assert.False(t, check.Valid)

	assert.ErrorIs(t, h.svc.Logout(ctx, "no-such-token", testMeta), domain.ErrInvalidSession)
}

func TestLoginRecordsTurnstileOutcomes(t *testing.T) {
	h := newHarness(t)
	h.svc.metrics = telemetry.NewMetrics()
	ctx := context.Background()

	// Outcome counting does not depend on the credentials being right.
	_, err := h.svc.LoginWithCredentials(ctx, domain.LoginRequest{
		Email:          "nobody@studio.test",
		Password:       "whatever",
		TurnstileToken: "tok",
		Meta:           testMeta,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	h.verifier.result = turnstile.Result{Success: false, ErrorCodes: []string{"invalid-input-response"}}
	_, err = h.svc.LoginWithCredentials(ctx, domain.LoginRequest{
		Email:          "nobody@studio.test",
		Password:       "whatever",
		TurnstileToken: "bad",
		Meta:           testMeta,
	})
	assert.ErrorIs(t, err, domain.ErrVerificationRequired)

	expected := `
# HELP studio_turnstile_verifications_total Turnstile verification outcomes.
# TYPE studio_turnstile_verifications_total counter
studio_turnstile_verifications_total{outcome="ok"} 1
studio_turnstile_verifications_total{outcome="rejected"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(
		prometheus.DefaultGatherer,
		strings.NewReader(expected),
		"studio_turnstile_verifications_total",
	))
}
