package service

import (
	"context"

	"github.com/framecraft/studio/internal/auth/domain"
	eventdomain "github.com/framecraft/studio/internal/securityevent/domain"
	"go.uber.org/zap"
)

// EnforceConsistency cross-checks role, session type and provider on every
// examination of a session, not only at mint time.
//
// The two directions are deliberately asymmetric:
//
//   - An admin-typed session minted by the admin-credentials path whose role
//     has drifted from admin is treated as a stale role cache: the role is
//     forced back to admin and the session passes, so a legitimate admin is
//     not locked out. The repair is idempotent and still raises a critical
//     role_escalation_attempt event.
//   - A user-typed session claiming the admin role is the attack this check
//     exists to stop. It is revoked outright.
//
// Any provider/session-type disagreement falls in the reject direction.
func (s *Service) EnforceConsistency(ctx context.Context, session *domain.Session, meta domain.RequestMeta) (*domain.Session, error) {
	if session == nil {
		return nil, domain.ErrInvalidSession
	}

	switch {
	case session.SessionType == domain.SessionTypeUser && session.Role == domain.RoleAdmin:
		s.rejectEscalation(ctx, session, meta, "user session claiming admin role")
		return nil, domain.ErrRoleEscalation

	case session.SessionType == domain.SessionTypeAdmin && session.Provider != domain.ProviderAdminCredentials:
		s.rejectEscalation(ctx, session, meta, "admin session minted by non-admin provider")
		return nil, domain.ErrRoleEscalation

	case session.SessionType == domain.SessionTypeUser && session.Provider == domain.ProviderAdminCredentials:
		s.rejectEscalation(ctx, session, meta, "admin provider on user session")
		return nil, domain.ErrRoleEscalation

	case session.SessionType == domain.SessionTypeAdmin && session.Role != domain.RoleAdmin:
		originalRole := session.Role
		session.Role = domain.RoleAdmin
		if err := s.sessionRepo.UpdateSessionRole(ctx, session.ID, domain.RoleAdmin); err != nil {
			s.log.Warn("failed to persist repaired admin role", zap.Error(err))
		}
		_ = s.events.Record(ctx, eventdomain.Entry{
			EventType: eventdomain.EventRoleEscalationAttempt,
			Severity:  eventdomain.SeverityCritical,
			UserID:    session.UserID.String(),
			SessionID: session.SessionID,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
			Details: map[string]any{
				"direction":     "admin_role_repaired",
				"original_role": string(originalRole),
				"session_type":  string(session.SessionType),
				"provider":      string(session.Provider),
			},
		})
		return session, nil
	}

	return session, nil
}

func (s *Service) rejectEscalation(ctx context.Context, session *domain.Session, meta domain.RequestMeta, detail string) {
	if err := s.sessionRepo.RevokeSession(ctx, session.ID, s.clock.Now()); err != nil {
		s.log.Warn("failed to revoke escalated session", zap.Error(err))
	}
	_ = s.events.Record(ctx, eventdomain.Entry{
		EventType: eventdomain.EventRoleEscalationAttempt,
		Severity:  eventdomain.SeverityCritical,
		UserID:    session.UserID.String(),
		SessionID: session.SessionID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Details: map[string]any{
			"direction":    "rejected",
			"detail":       detail,
			"role":         string(session.Role),
			"session_type": string(session.SessionType),
			"provider":     string(session.Provider),
		},
	})
}
