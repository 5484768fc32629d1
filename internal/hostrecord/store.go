package hostrecord

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	libsql "github.com/tursodatabase/libsql-client-go/libsql"
	gsqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens dsn and runs migrations, mirroring the teacher's
// db.Connect: a local file path goes through the pure-Go glebarez/sqlite
// dialector (no cgo, matching this module's rest-of-stack preference for
// single-binary embeddability); an http(s)/libsql URL goes through a
// libsql connector wrapped in gorm.io/driver/sqlite's dialector, exactly
// as the teacher does for its Turso-hosted database option.
func Connect(dsn string, debug bool) (*gorm.DB, error) {
	if !isURL(dsn) {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("hostrecord: failed to create database directory: %w", err)
			}
		}
	}

	config := &gorm.Config{}
	if debug {
		config.Logger = logger.Default.LogMode(logger.Info)
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
		token := os.Getenv("ECMACORE_LIBSQL_AUTH_TOKEN")
		if token != "" {
			connector, err = libsql.NewConnector(dsn, libsql.WithAuthToken(token))
		} else {
			connector, err = libsql.NewConnector(dsn)
		}
		if err != nil {
			return nil, fmt.Errorf("hostrecord: failed to create libsql connector: %w", err)
		}
		conn = sql.OpenDB(connector)
		dialector = sqlite.New(sqlite.Config{
			DriverName: "libsql",
			Conn:       conn,
			DSN:        dsn,
		})
	} else {
		dialector = gsqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, fmt.Errorf("hostrecord: failed to connect: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Exec("PRAGMA foreign_keys = ON")
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("hostrecord: migration failed: %w", err)
	}
	return db, nil
}

func isURL(dsn string) bool {
	return strings.HasPrefix(dsn, "http://") || strings.HasPrefix(dsn, "https://") || strings.HasPrefix(dsn, "libsql://")
}

// Migrate brings db's schema up to date with this package's models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&RealmSession{},
		&ScriptRun{},
		&JobRecord{},
	)
}
