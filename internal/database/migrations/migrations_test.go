package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db, SQLite); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	tables := []string{
		"projects", "contributors", "contracts", "invoices", "invoiced_tasks",
		"payments", "wallets", "tasks", "schema_migrations",
	}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestCheckDBMigrationStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	err := CheckDBMigrationStatus(db, SQLite)
	if err == nil {
		t.Fatal("CheckDBMigrationStatus() expected error for fresh database, got nil")
	}
	if err.Error() != "database has no schema version (needs migration)" {
		t.Errorf("CheckDBMigrationStatus() error = %q, want error about needing migration", err.Error())
	}
}

func TestCheckDBMigrationStatus_AfterMigration(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db, SQLite); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}
	if err := CheckDBMigrationStatus(db, SQLite); err != nil {
		t.Errorf("CheckDBMigrationStatus() after migration returned error: %v", err)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db, SQLite); err != nil {
		t.Fatalf("First MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db, SQLite); err != nil {
		t.Errorf("Second MigrateUp() failed: %v (should be idempotent)", err)
	}
}

func TestMigrateUp_UnknownDialect(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db, Dialect("oracle")); err == nil {
		t.Error("MigrateUp() expected error for unknown dialect")
	}
}

func TestForeignKeyConstraints(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db, SQLite); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	// Contract of a project that does not exist.
	_, err := db.Exec(`
		INSERT INTO contracts (repo_full_name, provider, username, role, hourly_rate, created_at)
		VALUES ('john/none', 'github', 'mihai', 'DEV', '2500', '2024-01-01T00:00:00Z')
	`)
	if err == nil {
		t.Error("Expected foreign key constraint violation, but insert succeeded")
	}
}

func TestSchema_ProjectIdentity(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db, SQLite); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	// Same repo name at two providers is allowed.
	if _, err := db.Exec("INSERT INTO projects (repo_full_name, provider, owner) VALUES ('john/repo', 'github', 'john')"); err != nil {
		t.Fatalf("insert github project: %v", err)
	}
	if _, err := db.Exec("INSERT INTO projects (repo_full_name, provider, owner) VALUES ('john/repo', 'gitlab', 'john')"); err != nil {
		t.Fatalf("insert gitlab project: %v", err)
	}

	_, err := db.Exec("INSERT INTO projects (repo_full_name, provider, owner) VALUES ('john/repo', 'github', 'other')")
	if err == nil {
		t.Error("Expected primary key violation for duplicate project, but insert succeeded")
	}
}

func TestSchema_PaymentIdentity(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db, SQLite); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	if _, err := db.Exec(`INSERT INTO invoices (id, repo_full_name, provider, username, role, created_at, amount)
		VALUES ('inv-1', 'john/repo', 'github', 'mihai', 'DEV', '2024-01-01T00:00:00Z', '100')`); err != nil {
		t.Fatalf("insert invoice: %v", err)
	}
	insert := `INSERT INTO payments (invoice_id, payment_time, transaction_id, value, status)
		VALUES ('inv-1', '2024-01-02T00:00:00Z', ?, '100', 'SUCCESSFUL')`
	if _, err := db.Exec(insert, "tx-1"); err != nil {
		t.Fatalf("insert payment: %v", err)
	}
	if _, err := db.Exec(insert, "tx-2"); err == nil {
		t.Error("Expected primary key violation for same invoice and payment time, but insert succeeded")
	}
}

// openTestDB opens an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Every connection to :memory: is a new database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	return db
}
