package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// Open opens a SQLite database using the modernc.org/sqlite driver.
//
// File-based databases get WAL journaling and a busy timeout so that the
// daemon's concurrent async operations (an insert racing a prune, a scan
// racing an insert) block briefly instead of failing. Pass ":memory:" for an
// in-memory database (tests).
func Open(dsn string) (*sql.DB, error) {
	if dsn != ":memory:" && !strings.Contains(dsn, "?") {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	return sql.Open("sqlite", dsn)
}

// Migration is one schema upgrade step for a component. Versions start at 1
// and must be contiguous.
type Migration struct {
	Version    int
	Statements []string
}

const versionSchema = `CREATE TABLE IF NOT EXISTS schema_version (
    component TEXT PRIMARY KEY,
    version   INTEGER NOT NULL
)`

// Migrate applies the migrations for a component that are newer than the
// version recorded in schema_version, each step inside its own transaction.
// The database is opened or created in place; existing user data is never
// dropped to "reset" the schema.
func Migrate(ctx context.Context, db *sql.DB, component string, migrations []Migration) error {
	if _, err := db.ExecContext(ctx, versionSchema); err != nil {
		return fmt.Errorf("engine: create schema_version: %w", err)
	}

	var current int
	err := db.QueryRowContext(ctx,
		`SELECT version FROM schema_version WHERE component = ?`, component).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("engine: read schema version for %s: %w", component, err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(ctx, db, component, m); err != nil {
			return err
		}
		current = m.Version
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, component string, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("engine: begin migration %s v%d: %w", component, m.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("engine: migration %s v%d: %w", component, m.Version, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version(component, version) VALUES(?, ?)
		 ON CONFLICT(component) DO UPDATE SET version = excluded.version`,
		component, m.Version); err != nil {
		return fmt.Errorf("engine: record migration %s v%d: %w", component, m.Version, err)
	}
	return tx.Commit()
}
