package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/framecraft/studio/internal/activity"
	"github.com/framecraft/studio/internal/auth"
	"github.com/framecraft/studio/internal/auth/google"
	"github.com/framecraft/studio/internal/auth/session"
	"github.com/framecraft/studio/internal/clock"
	"github.com/framecraft/studio/internal/config"
	"github.com/framecraft/studio/internal/logger"
	"github.com/framecraft/studio/internal/migration"
	"github.com/framecraft/studio/internal/ratelimit"
	"github.com/framecraft/studio/internal/securityevent"
	"github.com/framecraft/studio/internal/server"
	"github.com/framecraft/studio/internal/turnstile"
	"github.com/framecraft/studio/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		// Session security
		turnstile.Module,
		securityevent.Module,
		activity.Module,
		auth.Module,
		google.Module,
		session.Module,
		ratelimit.Module,

		// HTTP surface
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
