package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	activitydomain "github.com/framecraft/studio/internal/activity/domain"
	eventdomain "github.com/framecraft/studio/internal/securityevent/domain"
	"github.com/framecraft/studio/pkg/db/pagination"
)

type listSecurityEventsQuery struct {
	PageToken   string `form:"page_token"`
	PageSize    int    `form:"page_size"`
	EventType   string `form:"event_type"`
	MinSeverity string `form:"min_severity"`
	UserID      string `form:"user_id"`
	StartAt     string `form:"start_at"`
	EndAt       string `form:"end_at"`
	Unresolved  bool   `form:"unresolved"`
}

func (s *Server) ListSecurityEvents(c *gin.Context) {
	var query listSecurityEventsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startAt, err := parseOptionalTime(query.StartAt)
	if err != nil {
		AbortWithError(c, newValidationError("start_at", "invalid_start_at", "invalid start_at"))
		return
	}
	endAt, err := parseOptionalTime(query.EndAt)
	if err != nil {
		AbortWithError(c, newValidationError("end_at", "invalid_end_at", "invalid end_at"))
		return
	}

	resp, err := s.events.List(c.Request.Context(), eventdomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		EventType:   strings.TrimSpace(query.EventType),
		MinSeverity: strings.TrimSpace(query.MinSeverity),
		UserID:      strings.TrimSpace(query.UserID),
		StartAt:     startAt,
		EndAt:       endAt,
		Unresolved:  query.Unresolved,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Events, "page_info": resp.PageInfo})
}

func (s *Server) ResolveSecurityEvent(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id == 0 {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid event id"))
		return
	}

	if err := s.events.Resolve(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type listActivityQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
	UserID    string `form:"user_id"`
	Action    string `form:"action"`
}

func (s *Server) ListActivity(c *gin.Context) {
	var query listActivityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.activities.List(c.Request.Context(), activitydomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		UserID: strings.TrimSpace(query.UserID),
		Action: strings.TrimSpace(query.Action),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Activities, "page_info": resp.PageInfo})
}

func parseOptionalTime(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
