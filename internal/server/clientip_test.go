package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestClientIPHeaderPreference(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name: "forwarded-for wins over everything",
			headers: map[string]string{
				"X-Forwarded-For":  "198.51.100.7, 10.0.0.1",
				"X-Real-IP":        "203.0.113.1",
				"CF-Connecting-IP": "203.0.113.2",
			},
			want: "198.51.100.7",
		},
		{
			name: "real-ip fills in when forwarded-for is absent",
			headers: map[string]string{
				"X-Real-IP":        "203.0.113.1",
				"CF-Connecting-IP": "203.0.113.2",
			},
			want: "203.0.113.1",
		},
		{
			name:    "cloudflare header is the last resort",
			headers: map[string]string{"CF-Connecting-IP": "203.0.113.2"},
			want:    "203.0.113.2",
		},
		{
			name:    "no headers resolves to unknown",
			headers: map[string]string{},
			want:    "unknown",
		},
		{
			name:    "whitespace-only forwarded-for falls through",
			headers: map[string]string{"X-Forwarded-For": "  ", "X-Real-IP": "203.0.113.1"},
			want:    "203.0.113.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(c))
		})
	}
}
