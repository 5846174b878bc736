package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/framecraft/studio/pkg/db/pagination"
)

// Entry is a security event to record. UserID and SessionID are best-effort:
// values that do not parse as identity references are dropped, not stored.
type Entry struct {
	EventType EventType
	Severity  Severity
	UserID    string
	SessionID string
	IPAddress string
	UserAgent string
	Details   map[string]any
}

type ListRequest struct {
	pagination.Pagination
	EventType   string
	MinSeverity string
	UserID      string
	StartAt     *time.Time
	EndAt       *time.Time
	Unresolved  bool
}

type ListResponse struct {
	pagination.PageInfo
	Events []SecurityEvent `json:"events"`
}

// Recorder is the write side of the event log. Record never blocks the
// action it observes: persistence failures are logged and returned as an
// error the caller is free to ignore.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Service is the full event log surface, including the admin review reads.
type Service interface {
	Recorder
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Resolve(ctx context.Context, id snowflake.ID) error
}

var (
	ErrEventNotFound    = errors.New("security event not found")
	ErrInvalidEventType = errors.New("invalid event type")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
