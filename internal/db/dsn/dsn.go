// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"
	"strings"

	"github.com/newsdesk-cms/newsdesk/internal/config"
)

// Create builds the Data Source Name for the configured gorm engine.
func Create(cfg *config.Config) string {
	db := cfg.DB

	switch db.GormEngine {
	case config.EnginePostgres:
		out := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
			db.Host,
			db.Port,
			db.User,
			db.Password,
			db.Name,
		)

		if db.Extras != "" {
			out += " " + db.Extras
		}

		return out
	case config.EngineSQLite:
		if db.Extras == "" {
			return db.Path
		}

		sep := "?"
		if strings.Contains(db.Path, "?") {
			sep = "&"
		}

		return db.Path + sep + db.Extras
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			db.User,
			db.Password,
			db.Host,
			db.Port,
			db.Name,
			db.Extras,
		)
	}
}
