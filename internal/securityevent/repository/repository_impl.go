package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/framecraft/studio/internal/securityevent/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, event *domain.SecurityEvent) error {
	if event == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repo) List(ctx context.Context, filter domain.ListFilter) ([]*domain.SecurityEvent, error) {
	var events []*domain.SecurityEvent
	stmt := r.db.WithContext(ctx).Model(&domain.SecurityEvent{})

	if eventType := strings.TrimSpace(string(filter.EventType)); eventType != "" {
		stmt = stmt.Where("event_type = ?", eventType)
	}
	if filter.MinSeverity != "" {
		stmt = stmt.Where("severity IN ?", severitiesAtLeast(filter.MinSeverity))
	}
	if filter.UserID != nil {
		stmt = stmt.Where("user_id = ?", *filter.UserID)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", filter.EndAt.UTC())
	}
	if filter.Unresolved {
		stmt = stmt.Where("resolved = ?", false)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) MarkResolved(ctx context.Context, id snowflake.ID) error {
	result := r.db.WithContext(ctx).Model(&domain.SecurityEvent{}).
		Where("id = ?", id).
		Update("resolved", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *repo) CountByUserAndType(ctx context.Context, userID snowflake.ID, eventType domain.EventType, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SecurityEvent{}).
		Where("user_id = ? AND event_type = ? AND created_at >= ?", userID, eventType, since.UTC()).
		Count(&count).Error
	return count, err
}

func (r *repo) DistinctIPs(ctx context.Context, userID snowflake.ID, eventType domain.EventType, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SecurityEvent{}).
		Where("user_id = ? AND event_type = ? AND created_at >= ? AND ip_address IS NOT NULL", userID, eventType, since.UTC()).
		Distinct("ip_address").
		Count(&count).Error
	return count, err
}

func severitiesAtLeast(min domain.Severity) []string {
	all := []domain.Severity{domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical}
	out := make([]string, 0, len(all))
	for _, s := range all {
		if s.AtLeast(min) {
			out = append(out, string(s))
		}
	}
	return out
}
