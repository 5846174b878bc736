package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	activitydomain "github.com/framecraft/studio/internal/activity/domain"
	authdomain "github.com/framecraft/studio/internal/auth/domain"
	"github.com/framecraft/studio/internal/config"
	eventdomain "github.com/framecraft/studio/internal/securityevent/domain"
	"github.com/framecraft/studio/internal/seed"
)

var Module = fx.Module("migration",
	fx.Invoke(func(db *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if err := Run(db, log); err != nil {
			return err
		}
		return seed.EnsureBootstrapOwner(db, cfg.BootstrapOwnerEmail, cfg.BootstrapOwnerPassword)
	}),
)

// Run migrates the schema. Postgres uses the embedded versioned
// migrations; sqlite (used by tests and local scratch setups) falls back
// to gorm AutoMigrate because golang-migrate's sqlite driver needs cgo.
func Run(db *gorm.DB, log *zap.Logger) error {
	log = log.Named("migration")

	if db.Dialector.Name() != "postgres" {
		log.Info("non-postgres dialect, using auto migration",
			zap.String("dialect", db.Dialector.Name()))
		return AutoMigrate(db)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := RunMigrations(sqlDB); err != nil {
		return err
	}
	log.Info("schema migrations applied")
	return nil
}

// AutoMigrate creates the schema from the model structs.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&eventdomain.SecurityEvent{},
		&activitydomain.ActivityRecord{},
	)
}
