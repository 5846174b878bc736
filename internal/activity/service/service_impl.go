package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/framecraft/studio/internal/activity/domain"
	"github.com/framecraft/studio/internal/clock"
	"github.com/framecraft/studio/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("activity.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, entry domain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return domain.ErrInvalidAction
	}

	resource := strings.TrimSpace(entry.Resource)
	if resource == "" {
		resource = "unknown"
	}

	payload := map[string]any{}
	for key, value := range entry.Details {
		if key == "" {
			continue
		}
		payload[key] = value
	}

	record := domain.ActivityRecord{
		ID:        s.genID.Generate(),
		UserID:    entry.UserID,
		Action:    action,
		Resource:  resource,
		Details:   datatypes.JSONMap(payload),
		CreatedAt: s.clock.Now(),
	}
	if id := strings.TrimSpace(entry.ResourceID); id != "" {
		record.ResourceID = &id
	}
	if ip := strings.TrimSpace(entry.IPAddress); ip != "" {
		record.IPAddress = &ip
	}
	if ua := strings.TrimSpace(entry.UserAgent); ua != "" {
		record.UserAgent = &ua
	}

	if err := s.repo.Insert(ctx, &record); err != nil {
		s.log.Warn("failed to write activity record", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	var cursor *domain.ActivityCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		cursor = &domain.ActivityCursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	filter := domain.ListFilter{
		Action: req.Action,
		Cursor: cursor,
		Limit:  pageSize,
	}
	// Unparseable user filters are ignored, same as the identity-reference
	// handling on the event log.
	if raw := strings.TrimSpace(req.UserID); raw != "" {
		if id, err := snowflake.ParseString(raw); err == nil && id != 0 {
			filter.UserID = &id
		}
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *domain.ActivityRecord) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	activities := make([]domain.ActivityRecord, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		activities = append(activities, *item)
	}

	resp := domain.ListResponse{Activities: activities}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}
