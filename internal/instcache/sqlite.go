package instcache

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	libsql "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectSQLite opens a local SQLite-backed cache file, or a remote
// libsql replica when dsn is a URL, and runs migrations. Mirrors
// termfx-morfx's db.Connect almost line for line: directory creation for
// file-based DSNs, debug logging, and an optional libsql connector picked
// up from FLASHCPP_LIBSQL_AUTH_TOKEN (the teacher's MORFX_LIBSQL_AUTH_TOKEN,
// renamed) for a Turso-hosted shared cache.
func ConnectSQLite(dsn string, debug bool) (*gorm.DB, error) {
	if !isURL(dsn) {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create cache directory: %w", err)
			}
		}
	}

	cfg := &gorm.Config{}
	if debug {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var (
		dialector gorm.Dialector
		conn      *sql.DB
	)
	if isURL(dsn) {
		var (
			connector driver.Connector
			err       error
		)
		if token := os.Getenv("FLASHCPP_LIBSQL_AUTH_TOKEN"); token != "" {
			connector, err = libsql.NewConnector(dsn, libsql.WithAuthToken(token))
		} else {
			connector, err = libsql.NewConnector(dsn)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create libsql connector: %w", err)
		}
		conn = sql.OpenDB(connector)
		dialector = sqlite.New(sqlite.Config{DriverName: "libsql", Conn: conn, DSN: dsn})
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, fmt.Errorf("failed to connect to instantiation cache: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("instantiation cache migration failed: %w", err)
	}
	return db, nil
}

// isURL reports whether dsn names a remote libsql/Turso replica rather
// than a local file path.
func isURL(dsn string) bool {
	return len(dsn) > 7 && (dsn[:7] == "http://" || (len(dsn) > 8 && dsn[:8] == "https://") || dsn[:6] == "libsql")
}

// Migrate applies the cache schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Instantiation{}, &Diagnostic{})
}
