package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"selfx-go/internal/database/migrations"
	"selfx-go/internal/selfx"
)

// Storage implements selfx.Storage on database/sql. SQLite and PostgreSQL run
// the same queries, written with '?' placeholders and rebound for PostgreSQL.
//
// Decimals are stored as TEXT to keep their exact representation; times are
// stored as fixed-width UTC TEXT so that they sort lexicographically.
type Storage struct {
	db      *sql.DB
	dialect migrations.Dialect
	clock   selfx.Clock
	path    string
}

var _ selfx.Storage = (*Storage)(nil)

// NewStorageFromDB wraps an existing connection. The caller is responsible
// for configuring the connection and applying migrations.
func NewStorageFromDB(db *sql.DB, dialect migrations.Dialect, clock selfx.Clock) *Storage {
	if clock == nil {
		clock = selfx.RealClock{}
	}
	return &Storage{db: db, dialect: dialect, clock: clock}
}

func (s *Storage) Projects() selfx.Projects         { return &projects{s: s} }
func (s *Storage) Contributors() selfx.Contributors { return &contributors{s: s} }
func (s *Storage) Contracts() selfx.Contracts       { return &contracts{s: s} }
func (s *Storage) Invoices() selfx.Invoices         { return &invoices{s: s} }
func (s *Storage) Payments() selfx.Payments         { return &payments{s: s} }
func (s *Storage) Wallets() selfx.Wallets           { return &wallets{s: s} }
func (s *Storage) Tasks() selfx.Tasks               { return &tasks{s: s} }

// Dialect returns the SQL dialect of the connection.
func (s *Storage) Dialect() migrations.Dialect { return s.dialect }

// Path returns the database file path, or "" for in-memory and PostgreSQL storage.
func (s *Storage) Path() string { return s.path }

// Migrate applies pending schema migrations.
func (s *Storage) Migrate() error {
	return migrations.MigrateUp(s.db, s.dialect)
}

// CheckMigrations verifies that the schema is at the latest version.
func (s *Storage) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db, s.dialect)
}

// Close closes the database connection.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Storage) exec(ctx context.Context, q execer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Storage) query(ctx context.Context, q execer, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Storage) queryRow(ctx context.Context, q execer, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.rebind(query), args...)
}

// rebind turns '?' placeholders into '$n' for PostgreSQL.
func (s *Storage) rebind(query string) string {
	if s.dialect != migrations.Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// withTx runs fn in a transaction, committing when fn succeeds.
func (s *Storage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func parseNullTime(ns sql.NullString) (time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return time.Time{}, nil
	}
	return parseTime(ns.String)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing stored amount %q: %w", s, err)
	}
	return d, nil
}

// isUniqueViolation reports whether err is a primary key or unique
// constraint failure in either engine.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func checkAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, selfx.ErrNotFound)
	}
	return nil
}
