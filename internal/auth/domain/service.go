package domain

import (
	"context"
	"time"
)

// Issuer authenticates credentials and mints sessions. Every path verifies
// the bot-check token before touching the user store.
type Issuer interface {
	LoginWithCredentials(ctx context.Context, req LoginRequest) (*LoginResult, error)
	LoginAsAdmin(ctx context.Context, req LoginRequest) (*LoginResult, error)
	LoginWithGoogle(ctx context.Context, req FederatedLoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string, meta RequestMeta) error
}

// Validator re-derives trust from a presented token on every request.
type Validator interface {
	Validate(ctx context.Context, rawToken string, meta RequestMeta) ValidationResult
}

// Service is the full session-security surface.
type Service interface {
	Issuer
	Validator
	CurrentUser(ctx context.Context, session *Session) (*User, error)
}

// RequestMeta is the per-request metadata attached to issued sessions and
// security events.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

type LoginRequest struct {
	Email          string
	Password       string
	TurnstileToken string
	Meta           RequestMeta
}

// FederatedLoginRequest carries the identity the federated provider
// asserted. The bot check has no place on this path; the provider's own
// flow gates it.
type FederatedLoginRequest struct {
	Email       string
	DisplayName string
	Image       string
	ExternalID  string
	Meta        RequestMeta
}

type LoginResult struct {
	Session   *SessionView
	RawToken  string
	ExpiresAt time.Time
}

// ValidationResult reports a validation pass. Reason carries only the
// client-safe summary; detail goes to the event log.
type ValidationResult struct {
	Valid   bool
	Session *Session
	Reason  string
}
