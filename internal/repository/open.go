package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/GophTodo/internal/db"
	"github.com/atinyakov/GophTodo/internal/models"
)

// Store is a transactional record store.
type Store interface {
	Update(ctx context.Context, fn func(tx models.RecordWriter) error) error
	View(ctx context.Context, fn func(tx models.RecordReader) error) error
}

// Open builds the record store for driver. The returned *sql.DB is nil for
// the memory driver; otherwise the caller owns and closes it.
func Open(driver db.Driver, dsn, sqlitePath string, maxRecordSize int) (Store, *sql.DB, error) {
	switch driver {
	case db.Memory:
		return NewMemoryRecordRepository(maxRecordSize), nil, nil
	case db.SQLite:
		conn, err := db.InitSQLite(sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLiteRecordRepository(conn, maxRecordSize), conn, nil
	case db.Postgres:
		conn, err := db.InitPostgres(dsn)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresRecordRepository(conn, maxRecordSize), conn, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
