// Package domain contains core types for authentication and session
// security.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role is the privilege level stored on a user account and carried by a
// session.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// SessionType tags which kind of authentication produced a session,
// independent of Role. The two must agree; a disagreement is a forged or
// corrupted session.
type SessionType string

const (
	SessionTypeUser  SessionType = "user"
	SessionTypeAdmin SessionType = "admin"
)

// Provider identifies the authentication path.
type Provider string

const (
	ProviderCredentials      Provider = "credentials"
	ProviderAdminCredentials Provider = "admin-credentials"
	ProviderGoogle           Provider = "google"
)

// User is an authenticated principal. Admin-secret logins do not have a
// user row; they authenticate against operator configuration.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	ExternalID   string       `gorm:"column:external_id;type:text;not null;uniqueIndex" json:"external_id"`
	Email        string       `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	DisplayName  string       `gorm:"column:display_name;type:text;not null" json:"display_name"`
	Image        *string      `gorm:"column:image;type:text" json:"image,omitempty"`
	Role         Role         `gorm:"column:role;type:text;not null;default:user" json:"role"`
	Provider     Provider     `gorm:"column:provider;type:text;not null" json:"provider"`
	PasswordHash *string      `gorm:"column:password_hash;type:text" json:"-"`
	CreatedAt    time.Time    `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Session is a persisted login session. The raw token is opaque and only
// its sha256 hash is stored; the row carries the claims the validator
// cross-checks on every request.
type Session struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID      snowflake.ID `gorm:"column:user_id;not null;index" json:"user_id"`
	TokenHash   string       `gorm:"column:token_hash;type:text;not null;uniqueIndex" json:"-"`
	Subject     string       `gorm:"column:subject;type:text;not null" json:"subject"`
	SessionID   string       `gorm:"column:session_id;type:text;not null;uniqueIndex" json:"session_id"`
	Role        Role         `gorm:"column:role;type:text;not null" json:"role"`
	SessionType SessionType  `gorm:"column:session_type;type:text;not null" json:"session_type"`
	Provider    Provider     `gorm:"column:provider;type:text;not null" json:"provider"`
	IPAddress   string       `gorm:"column:ip_address;type:text" json:"ip_address"`
	UserAgent   string       `gorm:"column:user_agent;type:text" json:"-"`
	IssuedAt    time.Time    `gorm:"column:issued_at;not null" json:"issued_at"`
	ExpiresAt   time.Time    `gorm:"column:expires_at;not null;index" json:"expires_at"`
	RevokedAt   *time.Time   `gorm:"column:revoked_at" json:"revoked_at,omitempty"`
	LastSeenAt  time.Time    `gorm:"column:last_seen_at;not null" json:"last_seen_at"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// IsAdmin reports whether this is a consistent admin session.
func (s *Session) IsAdmin() bool {
	return s.SessionType == SessionTypeAdmin && s.Role == RoleAdmin
}

// SessionView is returned to clients without exposing token values.
type SessionView struct {
	Subject     string      `json:"subject"`
	SessionID   string      `json:"session_id"`
	Role        Role        `json:"role"`
	SessionType SessionType `json:"session_type"`
	Provider    Provider    `json:"provider"`
	Email       string      `json:"email,omitempty"`
	DisplayName string      `json:"display_name,omitempty"`
	Image       *string     `json:"image,omitempty"`
	IssuedAt    time.Time   `json:"issued_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
}
