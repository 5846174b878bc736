package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authdomain "github.com/framecraft/studio/internal/auth/domain"
	eventdomain "github.com/framecraft/studio/internal/securityevent/domain"
	"github.com/framecraft/studio/pkg/telemetry"
)

const contextSessionKey = "auth_session"

// RequestLogger logs each request with safe fields only.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if lastErr := c.Errors.Last(); lastErr != nil {
			fields = append(fields, zap.Error(lastErr.Err))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// MetricsMiddleware counts requests and observes latency per route.
func MetricsMiddleware(metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		metrics.ObserveAPIRequest(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}

// OriginCheck rejects state-changing cross-origin requests. Browsers send
// Origin on POST; a mismatch against the configured app origin is treated
// as a forged request and logged.
func (s *Server) OriginCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		origin := strings.TrimSpace(c.GetHeader("Origin"))
		if origin == "" || s.cfg.AppOrigin == "" {
			c.Next()
			return
		}
		if sameOrigin(origin, s.cfg.AppOrigin) {
			c.Next()
			return
		}

		meta := requestMeta(c)
		_ = s.events.Record(c.Request.Context(), eventdomain.Entry{
			EventType: eventdomain.EventCSRFViolation,
			Severity:  eventdomain.SeverityHigh,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
			Details: map[string]any{
				"origin": origin,
				"path":   c.Request.URL.Path,
			},
		})
		AbortWithError(c, ErrForbidden)
	}
}

func sameOrigin(origin, expected string) bool {
	got, err := url.Parse(origin)
	if err != nil {
		return false
	}
	want, err := url.Parse(expected)
	if err != nil {
		return false
	}
	return strings.EqualFold(got.Scheme, want.Scheme) && strings.EqualFold(got.Host, want.Host)
}

// LoginRateLimit throttles login attempts per client address. The limiter
// fails open; only an explicit deny blocks the request.
func (s *Server) LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.loginLimiter == nil {
			c.Next()
			return
		}

		ip := clientIP(c)
		if s.loginLimiter.Allow(c.Request.Context(), ip) {
			c.Next()
			return
		}

		_ = s.events.Record(c.Request.Context(), eventdomain.Entry{
			EventType: eventdomain.EventRateLimitExceeded,
			Severity:  eventdomain.SeverityMedium,
			IPAddress: ip,
			UserAgent: c.Request.UserAgent(),
			Details: map[string]any{
				"path": c.Request.URL.Path,
			},
		})
		s.metrics.RecordRateLimitDenied(c.FullPath())
		AbortWithError(c, ErrTooManyRequests)
	}
}

// WebAuthRequired validates the session cookie and stores the session on
// the request context.
func (s *Server) WebAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
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
		c.Set(contextSessionKey, result.Session)
		c.Next()
	}
}

// AdminRequired gates admin surfaces on a consistent admin session. Must
// run after WebAuthRequired.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := s.sessionFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !sess.IsAdmin() {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func (s *Server) sessionFromContext(c *gin.Context) (*authdomain.Session, bool) {
	value, ok := c.Get(contextSessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := value.(*authdomain.Session)
	if !ok || sess == nil {
		return nil, false
	}
	return sess, true
}
