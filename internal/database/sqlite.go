package database

import (
	"database/sql"
	"fmt"
	"strings"

	"selfx-go/internal/database/migrations"
	"selfx-go/internal/selfx"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// NewSQLiteStorage opens the SQLite database at path and applies migrations.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStorage(path string, clock selfx.Clock) (*Storage, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db, migrations.SQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	s := NewStorageFromDB(db, migrations.SQLite, clock)
	if path != ":memory:" {
		s.path = path
	}
	return s, nil
}

// connectionParams are applied by the driver to every pooled connection.
// SQLite leaves foreign keys off by default. Immediate transactions take the
// write lock on BEGIN, so concurrent writers wait on the busy timeout instead
// of failing on a lock upgrade.
const connectionParams = "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"

// sqliteDSN appends connectionParams to path.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + connectionParams
	}
	return path + "?" + connectionParams
}

// OpenConnection opens and configures a SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
