// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so there is no CGo
// and no C toolchain involved. Use ":memory:" for tests.
//
// The schema lives in migrations/*.sql and is embedded into the binary. New()
// applies any pending migrations with goose before returning, and cmd/migrate
// exposes the same migrations for manual up/down/status.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrations returns the embedded migration files, rooted so that goose sees
// the .sql files at the top level.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		// The directory is embedded at compile time; Sub only fails on a bad path.
		panic(fmt.Sprintf("sqlite: embedded migrations: %v", err))
	}
	return sub
}

// DB wraps a sql.DB connection pool and implements every repository
// interface in internal/repository.
type DB struct {
	conn *sql.DB
}

// Open opens the database at dbPath with foreign keys enforced, without
// running migrations. Most callers want New; cmd/migrate uses Open.
//
// dbPath examples:
//   - "data/library.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests)
func Open(dbPath string) (*sql.DB, error) {
	// Pragmas in the DSN run on every new pool connection. A one-off Exec would
	// only configure whichever connection happened to run it.
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if dbPath != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Each connection to ":memory:" is a separate, empty database, so the
	// pool must never grow past one.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	return conn, nil
}

// New opens the database and brings the schema up to date.
func New(dbPath string) (*DB, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn}

	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// NewMigrationProvider returns a goose provider over the embedded migrations.
func NewMigrationProvider(conn *sql.DB) (*goose.Provider, error) {
	return goose.NewProvider(goose.DialectSQLite3, conn, Migrations())
}

// migrate applies all pending migrations.
func (db *DB) migrate(ctx context.Context) error {
	provider, err := NewMigrationProvider(db.conn)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is SQLite's UNIQUE (or PRIMARY KEY)
// constraint failure. Services rely on this to turn commit-time races into
// domain errors.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// isForeignKeyViolation reports whether err is a FOREIGN KEY constraint failure.
func isForeignKeyViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("sqlite: rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}
