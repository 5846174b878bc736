// Package domain contains the user activity trail model.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/framecraft/studio/pkg/db/pagination"
	"gorm.io/datatypes"
)

// ActionSecurityAlert is written as a side effect of critical security
// events so alerts show up in the per-user activity trail.
const ActionSecurityAlert = "security_alert"

// ActivityRecord is an append-only log of user-attributable actions.
type ActivityRecord struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID     snowflake.ID      `gorm:"column:user_id;not null;index" json:"user_id"`
	Action     string            `gorm:"column:action;type:text;not null;index" json:"action"`
	Resource   string            `gorm:"column:resource;type:text;not null" json:"resource"`
	ResourceID *string           `gorm:"column:resource_id;type:text" json:"resource_id,omitempty"`
	Details    datatypes.JSONMap `gorm:"column:details;type:jsonb" json:"details"`
	IPAddress  *string           `gorm:"column:ip_address;type:text" json:"ip_address,omitempty"`
	UserAgent  *string           `gorm:"column:user_agent;type:text" json:"user_agent,omitempty"`
	CreatedAt  time.Time         `gorm:"column:created_at;not null;index" json:"created_at"`
}

// TableName sets the database table name.
func (ActivityRecord) TableName() string { return "activity_records" }

// Entry is a pending activity record.
type Entry struct {
	UserID     snowflake.ID
	Action     string
	Resource   string
	ResourceID string
	Details    map[string]any
	IPAddress  string
	UserAgent  string
}

type ListRequest struct {
	pagination.Pagination
	UserID string
	Action string
}

type ListResponse struct {
	pagination.PageInfo
	Activities []ActivityRecord `json:"activities"`
}

// Recorder writes activity records. Like the security event log, failures
// are non-fatal to the action being recorded.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

type Service interface {
	Recorder
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

type ActivityCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	UserID *snowflake.ID
	Action string
	Cursor *ActivityCursor
	Limit  int
}

type Repository interface {
	Insert(ctx context.Context, record *ActivityRecord) error
	List(ctx context.Context, filter ListFilter) ([]*ActivityRecord, error)
}

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
