package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/framecraft/studio/internal/activity/domain"
	"github.com/framecraft/studio/internal/clock"
	"github.com/framecraft/studio/internal/securityevent/domain"
	"github.com/framecraft/studio/pkg/db/pagination"
	"github.com/framecraft/studio/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Activity activitydomain.Recorder
	Metrics  *telemetry.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	alert    *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	activity activitydomain.Recorder
	metrics  *telemetry.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("securityevent.service"),
		alert:    p.Log.Named("security.alert"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		activity: p.Activity,
		metrics:  p.Metrics,
	}
}

// Record persists a security event. It never blocks the action it observes:
// a persistence failure is logged locally and returned as an error callers
// are free to ignore. Malformed user or session references are dropped from
// the record rather than stored.
func (s *Service) Record(ctx context.Context, entry domain.Entry) error {
	if strings.TrimSpace(string(entry.EventType)) == "" {
		return domain.ErrInvalidEventType
	}
	severity := entry.Severity
	if severity.Rank() == 0 {
		severity = domain.SeverityLow
	}

	payload := map[string]any{}
	for key, value := range entry.Details {
		if key == "" {
			continue
		}
		payload[key] = value
	}

	event := domain.SecurityEvent{
		ID:        s.genID.Generate(),
		EventType: entry.EventType,
		Severity:  severity,
		Details:   datatypes.JSONMap(payload),
		CreatedAt: s.clock.Now(),
	}

	userID, userIDValid := normalizeUserID(entry.UserID)
	if userIDValid {
		event.UserID = &userID
	}
	if sessionID := strings.TrimSpace(entry.SessionID); sessionID != "" {
		event.SessionID = &sessionID
	}
	if ip := strings.TrimSpace(entry.IPAddress); ip != "" {
		event.IPAddress = &ip
	}
	if ua := strings.TrimSpace(entry.UserAgent); ua != "" {
		event.UserAgent = &ua
	}

	if err := s.repo.Insert(ctx, &event); err != nil {
		s.log.Warn("failed to write security event",
			zap.String("event_type", string(entry.EventType)),
			zap.Error(err),
		)
		return err
	}

	s.metrics.RecordSecurityEvent(string(entry.EventType), string(severity))

	if severity == domain.SeverityCritical && userIDValid {
		s.raiseAlert(ctx, &event, userID)
	}

	return nil
}

// raiseAlert performs the critical-event side effects: a companion activity
// record and an immediate operator-visible log line. Both are best-effort.
func (s *Service) raiseAlert(ctx context.Context, event *domain.SecurityEvent, userID snowflake.ID) {
	s.alert.Error("critical security event",
		zap.String("event_type", string(event.EventType)),
		zap.String("user_id", userID.String()),
		zap.Stringp("session_id", event.SessionID),
		zap.Stringp("ip_address", event.IPAddress),
		zap.Any("details", map[string]any(event.Details)),
	)

	entry := activitydomain.Entry{
		UserID:   userID,
		Action:   activitydomain.ActionSecurityAlert,
		Resource: "security",
		Details: map[string]any{
			"event_type": string(event.EventType),
			"severity":   string(event.Severity),
		},
	}
	if event.IPAddress != nil {
		entry.IPAddress = *event.IPAddress
	}
	if event.UserAgent != nil {
		entry.UserAgent = *event.UserAgent
	}
	if err := s.activity.Record(ctx, entry); err != nil {
		s.log.Warn("failed to write security alert activity", zap.Error(err))
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return domain.ListResponse{}, domain.ErrInvalidTimeRange
	}

	var cursor *domain.EventCursor
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
		cursor = &domain.EventCursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	filter := domain.ListFilter{
		EventType:   domain.EventType(strings.TrimSpace(req.EventType)),
		MinSeverity: domain.Severity(strings.TrimSpace(req.MinSeverity)),
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Unresolved:  req.Unresolved,
		Cursor:      cursor,
		Limit:       pageSize,
	}
	if userID, ok := normalizeUserID(req.UserID); ok {
		filter.UserID = &userID
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *domain.SecurityEvent) string {
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

	events := make([]domain.SecurityEvent, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		events = append(events, *item)
	}

	resp := domain.ListResponse{Events: events}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Resolve(ctx context.Context, id snowflake.ID) error {
	if id == 0 {
		return domain.ErrEventNotFound
	}
	return s.repo.MarkResolved(ctx, id)
}

// normalizeUserID accepts only strings that parse as identity references.
// Anything else is dropped so the event log never carries corrupt foreign
// keys.
func normalizeUserID(raw string) (snowflake.ID, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
