package ratelimit

import (
	"github.com/framecraft/studio/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// NewRedisClient returns nil when no redis address is configured; the
// limiter then runs disabled.
func NewRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

var Module = fx.Module("ratelimit",
	fx.Provide(
		NewRedisClient,
		NewTokenBucket,
		NewLoginLimiter,
	),
)
