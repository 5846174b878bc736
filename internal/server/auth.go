package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	authdomain "github.com/framecraft/studio/internal/auth/domain"
)

type LoginRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	TurnstileToken string `json:"turnstile_token"`
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.authsvc.LoginWithCredentials(c.Request.Context(), authdomain.LoginRequest{
		Email:          strings.TrimSpace(req.Email),
		Password:       req.Password,
		TurnstileToken: req.TurnstileToken,
		Meta:           requestMeta(c),
	})
	if err != nil {
		s.metrics.RecordLogin(string(authdomain.ProviderCredentials), "failure")
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordLogin(string(authdomain.ProviderCredentials), "success")
	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusOK, result.Session)
}

func (s *Server) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.authsvc.LoginAsAdmin(c.Request.Context(), authdomain.LoginRequest{
		Email:          strings.TrimSpace(req.Email),
		Password:       req.Password,
		TurnstileToken: req.TurnstileToken,
		Meta:           requestMeta(c),
	})
	if err != nil {
		s.metrics.RecordLogin(string(authdomain.ProviderAdminCredentials), "failure")
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordLogin(string(authdomain.ProviderAdminCredentials), "success")
	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusOK, result.Session)
}

func (s *Server) Logout(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		// Logging out without a session is a no-op, not an error.
		s.sessions.Clear(c)
		c.Status(http.StatusNoContent)
		return
	}

	if err := s.authsvc.Logout(c.Request.Context(), token, requestMeta(c)); err != nil {
		s.sessions.Clear(c)
		AbortWithError(c, err)
		return
	}

	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	result := s.authsvc.Validate(c.Request.Context(), token, requestMeta(c))
	if !result.Valid {
		s.metrics.RecordSessionValidation("rejected")
		s.sessions.Clear(c)
		AbortWithError(c, ErrUnauthorized)
		return
	}
	s.metrics.RecordSessionValidation("ok")

	sess := result.Session
	view := authdomain.SessionView{
		Subject:     sess.Subject,
		SessionID:   sess.SessionID,
		Role:        sess.Role,
		SessionType: sess.SessionType,
		Provider:    sess.Provider,
		IssuedAt:    sess.IssuedAt,
		ExpiresAt:   sess.ExpiresAt,
	}

	if user, err := s.authsvc.CurrentUser(c.Request.Context(), sess); err == nil && user != nil {
		view.Email = user.Email
		view.DisplayName = user.DisplayName
		view.Image = user.Image
	}

	c.JSON(http.StatusOK, view)
}
