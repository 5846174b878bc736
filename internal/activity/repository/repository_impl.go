package repository

import (
	"context"
	"strings"

	"github.com/framecraft/studio/internal/activity/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, record *domain.ActivityRecord) error {
	if record == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repo) List(ctx context.Context, filter domain.ListFilter) ([]*domain.ActivityRecord, error) {
	var records []*domain.ActivityRecord
	stmt := r.db.WithContext(ctx).Model(&domain.ActivityRecord{})

	if filter.UserID != nil {
		stmt = stmt.Where("user_id = ?", *filter.UserID)
	}
	if action := strings.TrimSpace(filter.Action); action != "" {
		stmt = stmt.Where("action = ?", action)
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

	if err := stmt.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
