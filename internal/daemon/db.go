package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/newsdesk-cms/newsdesk/internal/config"
	"github.com/newsdesk-cms/newsdesk/internal/db/dsn"
	"github.com/newsdesk-cms/newsdesk/internal/db/models"
	gormlogger "github.com/newsdesk-cms/newsdesk/internal/logger/adapter/gorm"
)

// OpenDB opens the configured database with SQL logging routed through zerolog.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DB.GormEngine {
	case config.EnginePostgres:
		dialector = postgres.Open(dsn.Create(cfg))
	case config.EngineSQLite:
		if dir := filepath.Dir(cfg.DB.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}

		dialector = sqlite.Open(dsn.Create(cfg))
	default:
		dialector = gormmysql.Open(dsn.Create(cfg))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.New(cfg.DB.SlowThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s database: %w", cfg.DB.GormEngine, err)
	}

	if cfg.DB.GormEngine == config.EngineSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}

		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// Migrate creates or updates the tables of every model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	return nil
}
