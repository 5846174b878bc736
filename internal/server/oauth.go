package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authdomain "github.com/framecraft/studio/internal/auth/domain"
)

const oauthErrorRedirect = "/login?error=oauth_login"

func (s *Server) GoogleLogin(c *gin.Context) {
	result, err := s.googlesvc.RedirectURL(s.cfg.Google.RedirectURI)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.SetOAuthState(c, result.State, result.CodeVerifier)
	c.Redirect(http.StatusFound, result.URL)
}

func (s *Server) GoogleCallback(c *gin.Context) {
	if strings.TrimSpace(c.Query("error")) != "" {
		s.log.Warn("google sign-in cancelled or failed",
			zap.String("error", c.Query("error")))
		s.sessions.ClearOAuthState(c)
		c.Redirect(http.StatusFound, oauthErrorRedirect)
		return
	}

	code := strings.TrimSpace(c.Query("code"))
	state := strings.TrimSpace(c.Query("state"))
	storedState, verifier, ok := s.sessions.ReadOAuthState(c)
	s.sessions.ClearOAuthState(c)
	if code == "" || state == "" || !ok || !constantEquals(state, storedState) {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	identity, err := s.googlesvc.Exchange(c.Request.Context(), code, s.cfg.Google.RedirectURI, verifier)
	if err != nil {
		s.log.Warn("google code exchange failed", zap.Error(err))
		c.Redirect(http.StatusFound, oauthErrorRedirect)
		return
	}

	result, err := s.authsvc.LoginWithGoogle(c.Request.Context(), authdomain.FederatedLoginRequest{
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		Image:       identity.Image,
		ExternalID:  identity.ExternalID,
		Meta:        requestMeta(c),
	})
	if err != nil {
		s.metrics.RecordLogin(string(authdomain.ProviderGoogle), "failure")
		c.Redirect(http.StatusFound, oauthErrorRedirect)
		return
	}

	s.metrics.RecordLogin(string(authdomain.ProviderGoogle), "success")
	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.Redirect(http.StatusFound, "/")
}

func constantEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
