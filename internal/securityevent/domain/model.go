// Package domain contains the security event log model shared by the
// session issuer, validator and anomaly detector.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventType classifies a security event record.
type EventType string

const (
	EventLoginAttempt          EventType = "login_attempt"
	EventLoginSuccess          EventType = "login_success"
	EventLoginFailure          EventType = "login_failure"
	EventLogout                EventType = "logout"
	EventSessionExpired        EventType = "session_expired"
	EventRoleEscalationAttempt EventType = "role_escalation_attempt"
	EventSuspiciousActivity    EventType = "suspicious_activity"
	EventRateLimitExceeded     EventType = "rate_limit_exceeded"
	EventCSRFViolation         EventType = "csrf_violation"
	EventTurnstileFailure      EventType = "turnstile_failure"
)

// Severity is the ordered urgency tag attached to every security event.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities: low < medium < high < critical. Unknown values
// rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether s is at or above the given severity.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// SecurityEvent is an append-only record. Rows are never updated after
// insert except for the Resolved flag flipped from the admin review surface.
type SecurityEvent struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID    *snowflake.ID     `gorm:"column:user_id;index" json:"user_id,omitempty"`
	SessionID *string           `gorm:"column:session_id;type:text;index" json:"session_id,omitempty"`
	EventType EventType         `gorm:"column:event_type;type:text;not null;index" json:"event_type"`
	Severity  Severity          `gorm:"column:severity;type:text;not null;index" json:"severity"`
	IPAddress *string           `gorm:"column:ip_address;type:text" json:"ip_address,omitempty"`
	UserAgent *string           `gorm:"column:user_agent;type:text" json:"user_agent,omitempty"`
	Details   datatypes.JSONMap `gorm:"column:details;type:jsonb" json:"details"`
	Resolved  bool              `gorm:"column:resolved;not null;default:false" json:"resolved"`
	CreatedAt time.Time         `gorm:"column:created_at;not null;index" json:"created_at"`
}

// TableName sets the database table name.
func (SecurityEvent) TableName() string { return "security_events" }
