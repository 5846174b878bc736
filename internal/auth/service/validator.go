package service

import (
	"context"
	"strings"

	"github.com/framecraft/studio/internal/auth/domain"
	eventdomain "github.com/framecraft/studio/internal/securityevent/domain"
	"go.uber.org/zap"
)

const (
	reasonNoSession  = "No session found"
	reasonExpired    = "Session expired"
	reasonInvalid    = "Invalid session"
	reasonSuspicious = "Suspicious activity detected"
)

// Validate re-derives trust from the presented token. Checks short-circuit
// on first failure, and every rejection writes a security event before
// returning; only the client-safe reason leaves this function.
func (s *Service) Validate(ctx context.Context, rawToken string, meta domain.RequestMeta) domain.ValidationResult {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return domain.ValidationResult{Valid: false, Reason: reasonNoSession}
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if err != domain.ErrSessionNotFound {
			s.log.Warn("session lookup failed", zap.Error(err))
		}
		return domain.ValidationResult{Valid: false, Reason: reasonNoSession}
	}

	now := s.clock.Now()

	if session.RevokedAt != nil {
		return domain.ValidationResult{Valid: false, Reason: reasonNoSession}
	}

	if now.After(session.ExpiresAt) {
		_ = s.events.Record(ctx, eventdomain.Entry{
			EventType: eventdomain.EventSessionExpired,
			Severity:  eventdomain.SeverityLow,
			UserID:    session.UserID.String(),
			SessionID: session.SessionID,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
		})
		return domain.ValidationResult{Valid: false, Reason: reasonExpired}
	}

	// Hijack heuristic. Sessions are re-minted daily by the clients; one
	// older than that since issuance is treated as stolen. Richer signals
	// (user-agent drift, geo velocity) are not implemented.
	if now.Sub(session.IssuedAt) > maxSessionAge {
		_ = s.events.Record(ctx, eventdomain.Entry{
			EventType: eventdomain.EventSuspiciousActivity,
			Severity:  eventdomain.SeverityCritical,
			UserID:    session.UserID.String(),
			SessionID: session.SessionID,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
			Details: map[string]any{
				"reason":      "Session age exceeded",
				"issued_at":   session.IssuedAt,
				"age_seconds": int64(now.Sub(session.IssuedAt).Seconds()),
			},
		})
		if err := s.sessionRepo.RevokeSession(ctx, session.ID, now); err != nil {
			s.log.Warn("failed to revoke stale session", zap.Error(err))
		}
		return domain.ValidationResult{Valid: false, Reason: reasonExpired}
	}

	session, err = s.EnforceConsistency(ctx, session, meta)
	if err != nil {
		return domain.ValidationResult{Valid: false, Reason: reasonInvalid}
	}

	if session.SessionType != domain.SessionTypeAdmin {
		if s.detector.IsSuspicious(ctx, session.UserID, meta.IPAddress) {
			return domain.ValidationResult{Valid: false, Reason: reasonSuspicious}
		}

		if err := s.refreshRole(ctx, session); err != nil {
			return domain.ValidationResult{Valid: false, Reason: reasonInvalid}
		}
	}

	if err := s.sessionRepo.UpdateLastSeen(ctx, session.ID, now); err != nil {
		s.log.Warn("failed to update session last seen", zap.Error(err))
	}

	return domain.ValidationResult{Valid: true, Session: session}
}

// refreshRole re-syncs the session role from the user store so privilege
// changes take effect without re-login. The consistency check has already
// run for this pass; a promotion to admin lands on the next one.
func (s *Service) refreshRole(ctx context.Context, session *domain.Session) error {
	user, err := s.repo.FindByID(ctx, session.UserID)
	if err != nil {
		if err == domain.ErrUserNotFound {
			_ = s.events.Record(ctx, eventdomain.Entry{
				EventType: eventdomain.EventSuspiciousActivity,
				Severity:  eventdomain.SeverityHigh,
				SessionID: session.SessionID,
				Details:   map[string]any{"reason": "Session references missing user"},
			})
			if revokeErr := s.sessionRepo.RevokeSession(ctx, session.ID, s.clock.Now()); revokeErr != nil {
				s.log.Warn("failed to revoke orphaned session", zap.Error(revokeErr))
			}
		}
		return err
	}

	if user.Role != session.Role {
		if err := s.sessionRepo.UpdateSessionRole(ctx, session.ID, user.Role); err != nil {
			s.log.Warn("failed to refresh session role", zap.Error(err))
			return nil
		}
		session.Role = user.Role
	}
	return nil
}
