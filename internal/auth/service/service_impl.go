package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/framecraft/studio/internal/auth/domain"
	"github.com/framecraft/studio/internal/clock"
	"github.com/framecraft/studio/internal/config"
	"github.com/framecraft/studio/internal/securityevent/anomaly"
	eventdomain "github.com/framecraft/studio/internal/securityevent/domain"
	"github.com/framecraft/studio/internal/turnstile"
	"github.com/framecraft/studio/pkg/telemetry"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	sessionTokenBytes = 32

	// sessionTTL is the absolute session lifetime.
	sessionTTL = 30 * 24 * time.Hour

	// maxSessionAge is the hijack heuristic cutoff: sessions older than this
	// since issuance are invalidated regardless of the absolute lifetime.
	maxSessionAge = 24 * time.Hour
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Repo        domain.Repository
	SessionRepo domain.SessionRepository
	Events      eventdomain.Recorder
	Detector    *anomaly.Detector
	Verifier    turnstile.Verifier
	Admin       config.AdminCredentials
	Clock       clock.Clock
	GenID       *snowflake.Node
	Metrics     *telemetry.Metrics `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	repo        domain.Repository
	sessionRepo domain.SessionRepository
	events      eventdomain.Recorder
	detector    *anomaly.Detector
	verifier    turnstile.Verifier
	admin       config.AdminCredentials
	clock       clock.Clock
	genID       *snowflake.Node
	metrics     *telemetry.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:         p.Log.Named("auth.service"),
		repo:        p.Repo,
		sessionRepo: p.SessionRepo,
		events:      p.Events,
		detector:    p.Detector,
		verifier:    p.Verifier,
		admin:       p.Admin,
		clock:       p.Clock,
		genID:       p.GenID,
		metrics:     p.Metrics,
	}
}

func (s *Service) Logout(ctx context.Context, rawToken string, meta domain.RequestMeta) error {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if err == domain.ErrSessionNotFound {
			return domain.ErrInvalidSession
		}
		return err
	}

	if err := s.sessionRepo.RevokeSession(ctx, session.ID, s.clock.Now()); err != nil {
		return err
	}

	_ = s.events.Record(ctx, eventdomain.Entry{
		EventType: eventdomain.EventLogout,
		Severity:  eventdomain.SeverityLow,
		UserID:    session.UserID.String(),
		SessionID: session.SessionID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	return nil
}

func (s *Service) CurrentUser(ctx context.Context, session *domain.Session) (*domain.User, error) {
	if session == nil || session.UserID == 0 {
		return nil, domain.ErrUserNotFound
	}
	return s.repo.FindByID(ctx, session.UserID)
}

// mintSession issues a fresh session for the principal. Subject carries a
// mint-time suffix so two rapid logins by the same principal never collide.
func (s *Service) mintSession(ctx context.Context, principal string, userID snowflake.ID, role domain.Role, sessionType domain.SessionType, provider domain.Provider, meta domain.RequestMeta) (*domain.LoginResult, error) {
	rawToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &domain.Session{
		ID:          s.genID.Generate(),
		UserID:      userID,
		TokenHash:   hashToken(rawToken),
		Subject:     fmt.Sprintf("%s-%d", principal, now.UnixMilli()),
		SessionID:   uuid.NewString(),
		Role:        role,
		SessionType: sessionType,
		Provider:    provider,
		IPAddress:   strings.TrimSpace(meta.IPAddress),
		UserAgent:   strings.TrimSpace(meta.UserAgent),
		IssuedAt:    now,
		ExpiresAt:   now.Add(sessionTTL),
		LastSeenAt:  now,
	}
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	_ = s.events.Record(ctx, eventdomain.Entry{
		EventType: eventdomain.EventLoginSuccess,
		Severity:  eventdomain.SeverityLow,
		UserID:    userID.String(),
		SessionID: session.SessionID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Details: map[string]any{
			"provider":     string(provider),
			"session_type": string(sessionType),
			"timestamp":    now.Format(time.RFC3339),
		},
	})

	return &domain.LoginResult{
		Session:   sessionView(session),
		RawToken:  rawToken,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func sessionView(session *domain.Session) *domain.SessionView {
	return &domain.SessionView{
		Subject:     session.Subject,
		SessionID:   session.SessionID,
		Role:        session.Role,
		SessionType: session.SessionType,
		Provider:    session.Provider,
		IssuedAt:    session.IssuedAt,
		ExpiresAt:   session.ExpiresAt,
	}
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func defaultDisplayName(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) > 0 && strings.TrimSpace(parts[0]) != "" {
		return strings.TrimSpace(parts[0])
	}
	return email
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
