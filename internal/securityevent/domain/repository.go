package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type EventCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	EventType   EventType
	MinSeverity Severity
	UserID      *snowflake.ID
	StartAt     *time.Time
	EndAt       *time.Time
	Unresolved  bool
	Cursor      *EventCursor
	Limit       int
}

type Repository interface {
	Insert(ctx context.Context, event *SecurityEvent) error
	List(ctx context.Context, filter ListFilter) ([]*SecurityEvent, error)
	MarkResolved(ctx context.Context, id snowflake.ID) error

	// CountByUserAndType counts events of one type for one user since the
	// given instant. Used by the anomaly detector's failure-cluster check.
	CountByUserAndType(ctx context.Context, userID snowflake.ID, eventType EventType, since time.Time) (int64, error)

	// DistinctIPs returns the number of distinct source IPs on events of one
	// type for one user since the given instant.
	DistinctIPs(ctx context.Context, userID snowflake.ID, eventType EventType, since time.Time) (int64, error)
}
