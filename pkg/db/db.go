package db

import (
	"fmt"

	"github.com/framecraft/studio/internal/config"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// New opens the application database from configuration.
func New(cfg config.Config) (*gorm.DB, error) {
	dialect, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(dialect, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

// NewTest opens an in-memory sqlite database for package tests. Each call
// gets its own database; cache=shared keeps the pool's connections on the
// same instance.
func NewTest() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

var Module = fx.Module("db",
	fx.Provide(New),
)
