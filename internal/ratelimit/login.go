package ratelimit

import (
	"context"

	"go.uber.org/zap"
)

const (
	// Default per-IP login budget: one attempt every 12s sustained, with
	// room for a short burst of retries.
	loginRate  = 1.0 / 12.0
	loginBurst = 5
)

// LoginLimiter throttles interactive login attempts per source IP. With no
// redis configured the limiter is disabled and everything is allowed; the
// turnstile check still gates automated abuse.
type LoginLimiter struct {
	log    *zap.Logger
	bucket *TokenBucket
}

func NewLoginLimiter(log *zap.Logger, bucket *TokenBucket) *LoginLimiter {
	return &LoginLimiter{
		log:    log.Named("ratelimit.login"),
		bucket: bucket,
	}
}

// Allow reports whether another login attempt from this IP may proceed.
// Limiter errors fail open: availability of login outranks throttling.
func (l *LoginLimiter) Allow(ctx context.Context, ip string) bool {
	if l == nil || l.bucket == nil || ip == "" || ip == "unknown" {
		return true
	}

	result, err := l.bucket.Allow(ctx, "login:"+ip, loginRate, loginBurst)
	if err != nil {
		l.log.Warn("login rate limiter unavailable", zap.Error(err))
		return true
	}
	return result.Allowed
}
