package instcache

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectMySQL opens a shared, out-of-process instantiation cache over
// MySQL, following the same Connect-then-Migrate shape as ConnectSQLite
// and the teacher's db.Connect for Postgres. This is the concrete home
// for the teacher's gorm.io/driver/mysql dependency (see DESIGN.md):
// a build farm running many short-lived compiler sessions against the
// same template-heavy headers can share one cache across sessions,
// which a per-process SQLite file cannot do.
func ConnectMySQL(dsn string, debug bool) (*gorm.DB, error) {
	cfg := &gorm.Config{}
	if debug {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(mysql.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to instantiation cache: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("instantiation cache migration failed: %w", err)
	}
	return db, nil
}
