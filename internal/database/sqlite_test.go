package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func TestSqliteDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{":memory:", ":memory:?" + connectionParams},
		{"/var/lib/selfx/selfx.db", "/var/lib/selfx/selfx.db?" + connectionParams},
		{"file:selfx.db?mode=rwc", "file:selfx.db?mode=rwc&" + connectionParams},
	}
	for _, tt := range tests {
		if got := sqliteDSN(tt.path); got != tt.want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestOpenConnection_PragmasOnEveryConnection(t *testing.T) {
	ctx := context.Background()
	db, err := OpenConnection(filepath.Join(t.TempDir(), "selfx.db"))
	if err != nil {
		t.Fatalf("OpenConnection() error = %v", err)
	}
	defer db.Close()

	// Hold several connections at once so the pool has to open new ones.
	var conns []*sql.Conn
	for i := 0; i < 3; i++ {
		conn, err := db.Conn(ctx)
		if err != nil {
			t.Fatalf("Conn() error = %v", err)
		}
		conns = append(conns, conn)
	}
	for i, conn := range conns {
		var foreignKeys, busyTimeout int
		if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
			t.Fatalf("conn %d: PRAGMA foreign_keys error = %v", i, err)
		}
		if foreignKeys != 1 {
			t.Errorf("conn %d: foreign_keys = %d, want 1", i, foreignKeys)
		}
		if err := conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
			t.Fatalf("conn %d: PRAGMA busy_timeout error = %v", i, err)
		}
		if busyTimeout != 5000 {
			t.Errorf("conn %d: busy_timeout = %d, want 5000", i, busyTimeout)
		}
	}
	for _, conn := range conns {
		conn.Close()
	}
}

func TestNewSQLiteStorage_ForeignKeysOnFile(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "selfx.db"), &tickingClock{})
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	defer s.Close()

	// Keep one connection busy so the insert runs on another.
	held, err := s.db.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn() error = %v", err)
	}
	defer held.Close()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO wallets (repo_full_name, provider, type, identifier, cash, active) VALUES (?, ?, ?, ?, ?, 0)`,
		"nobody/repo", "github", "FAKE", "x", "1")
	if err == nil {
		t.Error("insert of a wallet without project succeeded, want foreign key error")
	}
}
