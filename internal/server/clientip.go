package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	authdomain "github.com/framecraft/studio/internal/auth/domain"
)

// clientIP resolves the caller address from proxy headers in fixed
// preference order. Requests with none of them resolve to "unknown" so
// the rate limiter and anomaly detector never key on an empty string.
func clientIP(c *gin.Context) string {
	if forwarded := strings.TrimSpace(c.GetHeader("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(c.GetHeader("CF-Connecting-IP")); ip != "" {
		return ip
	}
	return "unknown"
}

func requestMeta(c *gin.Context) authdomain.RequestMeta {
	return authdomain.RequestMeta{
		IPAddress: clientIP(c),
		UserAgent: c.Request.UserAgent(),
	}
}
