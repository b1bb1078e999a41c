// Package db opens the SQL databases backing the record store and keeps
// their schema and tombstones in shape.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names a record store backend.
type Driver string

const (
	Memory   Driver = "memory"
	SQLite   Driver = "sqlite"
	Postgres Driver = "postgres"
)

var placeholder = regexp.MustCompile(`\$\d+`)

// Rebind rewrites $N placeholders for drivers that only take "?".
// Queries must reference each placeholder once, in ascending order.
func (d Driver) Rebind(query string) string {
	if d == SQLite {
		return placeholder.ReplaceAllString(query, "?")
	}
	return query
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS records (
    address TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    owner TEXT NOT NULL,
    data BYTEA,
    payer TEXT NOT NULL,
    size BIGINT NOT NULL,
    created_at BIGINT NOT NULL,
    closed BOOLEAN NOT NULL DEFAULT FALSE,
    closed_at BIGINT,
    refund_to TEXT
);

CREATE INDEX IF NOT EXISTS records_owner_kind ON records (owner, kind) WHERE closed = false;
`

var sqliteSchema = []string{
	`PRAGMA journal_mode = WAL`,
	`PRAGMA busy_timeout = 5000`,
	`CREATE TABLE IF NOT EXISTS records (
    address TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    owner TEXT NOT NULL,
    data BLOB,
    payer TEXT NOT NULL,
    size INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    closed BOOLEAN NOT NULL DEFAULT FALSE,
    closed_at INTEGER,
    refund_to TEXT
)`,
	`CREATE INDEX IF NOT EXISTS records_owner_kind ON records (owner, kind) WHERE closed = false`,
}

// sqlOpen is swapped in tests.
var sqlOpen = sql.Open

func InitPostgres(dsn string) (*sql.DB, error) {
	db, err := sqlOpen("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.Exec(postgresSchema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}

// InitSQLite opens (creating if needed) the SQLite database at path and applies the schema.
func InitSQLite(path string) (*sql.DB, error) {
	if path == "" {
		path = "gophtodo.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sqlOpen("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time; SQLite serialises them anyway
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return db, nil
}
