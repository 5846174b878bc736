package service

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/framecraft/studio/internal/auth/domain"
	"github.com/framecraft/studio/internal/auth/password"
	eventdomain "github.com/framecraft/studio/internal/securityevent/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoginWithCredentials authenticates a studio client against the user store.
// Callers always receive ErrInvalidCredentials on authentication failure;
// which half of the pair was wrong goes only to the event log.
func (s *Service) LoginWithCredentials(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	if err := s.verifyTurnstile(ctx, req, eventdomain.SeverityMedium); err != nil {
		return nil, err
	}

	email, err := normalizeEmail(req.Email)
	if err != nil || strings.TrimSpace(req.Password) == "" {
		s.recordLoginFailure(ctx, "", req.Meta, map[string]any{
			"reason": "User not found or wrong provider",
			"email":  strings.TrimSpace(req.Email),
		}, eventdomain.SeverityMedium)
		return nil, domain.ErrInvalidCredentials
	}

	_ = s.events.Record(ctx, eventdomain.Entry{
		EventType: eventdomain.EventLoginAttempt,
		Severity:  eventdomain.SeverityLow,
		IPAddress: req.Meta.IPAddress,
		UserAgent: req.Meta.UserAgent,
		Details:   map[string]any{"email": email, "provider": string(domain.ProviderCredentials)},
	})

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil || user.Provider != domain.ProviderCredentials {
		if err != nil && err != domain.ErrUserNotFound {
			return nil, err
		}
		s.recordLoginFailure(ctx, "", req.Meta, map[string]any{
			"reason": "User not found or wrong provider",
			"email":  email,
		}, eventdomain.SeverityMedium)
		return nil, domain.ErrInvalidCredentials
	}

	if user.PasswordHash == nil || !password.Verify(req.Password, *user.PasswordHash) {
		s.recordLoginFailure(ctx, user.ID.String(), req.Meta, map[string]any{
			"reason": "Invalid password",
			"email":  email,
		}, eventdomain.SeverityMedium)
		return nil, domain.ErrInvalidCredentials
	}

	return s.mintSession(ctx, user.ID.String(), user.ID, user.Role, domain.SessionTypeUser, domain.ProviderCredentials, req.Meta)
}

// LoginAsAdmin authenticates against the operator-configured credential
// pair. There is no database lookup on this path; a successful match mints
// an admin-typed session unconditionally.
func (s *Service) LoginAsAdmin(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	if err := s.verifyTurnstile(ctx, req, eventdomain.SeverityHigh); err != nil {
		return nil, err
	}

	if !s.admin.Configured() {
		// Unconfigured admin login fails closed.
		s.recordLoginFailure(ctx, "", req.Meta, map[string]any{
			"reason": "Admin credentials not configured",
		}, eventdomain.SeverityHigh)
		return nil, domain.ErrInvalidCredentials
	}

	emailMatch := subtle.ConstantTimeCompare([]byte(strings.ToLower(strings.TrimSpace(req.Email))), []byte(strings.ToLower(s.admin.Email)))
	passwordMatch := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.admin.Password))
	if emailMatch&passwordMatch != 1 {
		s.recordLoginFailure(ctx, "", req.Meta, map[string]any{
			"reason":   "Invalid admin credentials",
			"provider": string(domain.ProviderAdminCredentials),
		}, eventdomain.SeverityHigh)
		return nil, domain.ErrInvalidCredentials
	}

	return s.mintSession(ctx, "admin", 0, domain.RoleAdmin, domain.SessionTypeAdmin, domain.ProviderAdminCredentials, req.Meta)
}

// LoginWithGoogle completes a federated sign-in. A previously unseen email
// gets a local identity with role user; a returning one reuses its record.
// Federation never takes over an account created under another provider.
func (s *Service) LoginWithGoogle(ctx context.Context, req domain.FederatedLoginRequest) (*domain.LoginResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	_ = s.events.Record(ctx, eventdomain.Entry{
		EventType: eventdomain.EventLoginAttempt,
		Severity:  eventdomain.SeverityLow,
		IPAddress: req.Meta.IPAddress,
		UserAgent: req.Meta.UserAgent,
		Details:   map[string]any{"email": email, "provider": string(domain.ProviderGoogle)},
	})

	user, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == domain.ErrUserNotFound:
		user, err = s.createFederatedUser(ctx, email, req)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case user.Provider != domain.ProviderGoogle:
		s.recordLoginFailure(ctx, user.ID.String(), req.Meta, map[string]any{
			"reason": "User not found or wrong provider",
			"email":  email,
		}, eventdomain.SeverityMedium)
		return nil, domain.ErrInvalidCredentials
	default:
		s.refreshFederatedProfile(ctx, user, req)
	}

	return s.mintSession(ctx, user.ID.String(), user.ID, user.Role, domain.SessionTypeUser, domain.ProviderGoogle, req.Meta)
}

func (s *Service) createFederatedUser(ctx context.Context, email string, req domain.FederatedLoginRequest) (*domain.User, error) {
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = defaultDisplayName(email)
	}
	externalID := strings.TrimSpace(req.ExternalID)
	if externalID == "" {
		externalID = uuid.NewString()
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:          s.genID.Generate(),
		ExternalID:  externalID,
		Email:       email,
		DisplayName: displayName,
		Role:        domain.RoleUser,
		Provider:    domain.ProviderGoogle,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if image := strings.TrimSpace(req.Image); image != "" {
		user.Image = &image
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// refreshFederatedProfile keeps name and avatar in sync with the provider.
// Failures are non-fatal to the login.
func (s *Service) refreshFederatedProfile(ctx context.Context, user *domain.User, req domain.FederatedLoginRequest) {
	fields := map[string]any{}
	if name := strings.TrimSpace(req.DisplayName); name != "" && name != user.DisplayName {
		fields["display_name"] = name
		user.DisplayName = name
	}
	if image := strings.TrimSpace(req.Image); image != "" && (user.Image == nil || *user.Image != image) {
		fields["image"] = image
		user.Image = &image
	}
	if len(fields) == 0 {
		return
	}
	fields["updated_at"] = s.clock.Now()
	if err := s.repo.UpdateFields(ctx, user.ID, fields); err != nil {
		s.log.Warn("failed to refresh federated profile", zap.Error(err))
	}
}

// verifyTurnstile gates every interactive login path. An absent token or a
// failed verification rejects the attempt before credentials are examined.
func (s *Service) verifyTurnstile(ctx context.Context, req domain.LoginRequest, severity eventdomain.Severity) error {
	result := s.verifier.Verify(ctx, req.TurnstileToken, req.Meta.IPAddress)
	if result.Success {
		s.metrics.RecordTurnstile("ok")
		return nil
	}

	s.metrics.RecordTurnstile("rejected")
	_ = s.events.Record(ctx, eventdomain.Entry{
		EventType: eventdomain.EventTurnstileFailure,
		Severity:  severity,
		IPAddress: req.Meta.IPAddress,
		UserAgent: req.Meta.UserAgent,
		Details: map[string]any{
			"error_codes": result.ErrorCodes,
			"email":       strings.TrimSpace(req.Email),
		},
	})
	return domain.ErrVerificationRequired
}

func (s *Service) recordLoginFailure(ctx context.Context, userID string, meta domain.RequestMeta, details map[string]any, severity eventdomain.Severity) {
	details["timestamp"] = s.clock.Now().Format(time.RFC3339)
	_ = s.events.Record(ctx, eventdomain.Entry{
		EventType: eventdomain.EventLoginFailure,
		Severity:  severity,
		UserID:    userID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Details:   details,
	})
}
