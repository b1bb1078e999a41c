// Package repository provides the record store implementations: an
// in-memory store and a SQL store for PostgreSQL and SQLite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/GophTodo/internal/db"
	"github.com/atinyakov/GophTodo/internal/models"
	"github.com/lib/pq"
)

// SQLRecordRepository stores records in the records table of a PostgreSQL or SQLite database.
type SQLRecordRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB

	driver        db.Driver
	maxRecordSize int
	now           func() time.Time
}

// NewPostgresRecordRepository creates a store over a PostgreSQL connection.
// Transactions run at SERIALIZABLE isolation.
func NewPostgresRecordRepository(conn *sql.DB, maxRecordSize int) *SQLRecordRepository {
	return &SQLRecordRepository{DB: conn, driver: db.Postgres, maxRecordSize: maxRecordSize, now: time.Now}
}

// NewSQLiteRecordRepository creates a store over a SQLite connection.
func NewSQLiteRecordRepository(conn *sql.DB, maxRecordSize int) *SQLRecordRepository {
	return &SQLRecordRepository{DB: conn, driver: db.SQLite, maxRecordSize: maxRecordSize, now: time.Now}
}

// Update runs fn inside one SQL transaction, committing only if fn succeeds.
func (r *SQLRecordRepository) Update(ctx context.Context, fn func(tx models.RecordWriter) error) error {
	return r.run(ctx, false, func(tx *sqlTx) error { return fn(tx) })
}

// View runs fn inside a read-only transaction.
func (r *SQLRecordRepository) View(ctx context.Context, fn func(tx models.RecordReader) error) error {
	return r.run(ctx, true, func(tx *sqlTx) error { return fn(tx) })
}

func (r *SQLRecordRepository) run(ctx context.Context, readOnly bool, fn func(tx *sqlTx) error) error {
	var opts *sql.TxOptions
	if r.driver == db.Postgres {
		opts = &sql.TxOptions{Isolation: sql.LevelSerializable, ReadOnly: readOnly}
	}
	tx, err := r.DB.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", mapSQLError(err))
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx, repo: r}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", mapSQLError(err))
	}
	return nil
}

// mapSQLError turns serialization failures and unique violations into models.ErrConflict.
func mapSQLError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "23505":
			return fmt.Errorf("%w: %v", models.ErrConflict, err)
		}
	}
	return err
}

type sqlTx struct {
	tx   *sql.Tx
	repo *SQLRecordRepository
}

func (t *sqlTx) q(query string) string { return t.repo.driver.Rebind(query) }

func (t *sqlTx) checkSize(data []byte) error {
	if limit := t.repo.maxRecordSize; limit > 0 && len(data) > limit {
		return fmt.Errorf("%d bytes over limit %d: %w", len(data), limit, models.ErrRecordTooLarge)
	}
	return nil
}

func (t *sqlTx) Load(ctx context.Context, addr models.Address) (*models.Record, error) {
	var kind, owner, payer string
	var data []byte
	err := t.tx.QueryRowContext(ctx, t.q(`
		SELECT kind, owner, data, payer FROM records WHERE address = $1 AND closed = false
	`), addr.String()).Scan(&kind, &owner, &data, &payer)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", addr, models.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", addr, mapSQLError(err))
	}
	rec, err := scanRecord(addr.String(), kind, owner, payer, data)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (t *sqlTx) ListByOwner(ctx context.Context, kind models.Kind, owner models.Identity) ([]models.Record, error) {
	rows, err := t.tx.QueryContext(ctx, t.q(`
		SELECT address, kind, owner, data, payer FROM records
		 WHERE owner = $1 AND kind = $2 AND closed = false
		 ORDER BY address
	`), owner.String(), string(kind))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", mapSQLError(err))
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var addr, k, o, payer string
		var data []byte
		if err := rows.Scan(&addr, &k, &o, &data, &payer); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rec, err := scanRecord(addr, k, o, payer, data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", mapSQLError(err))
	}
	return out, nil
}

func (t *sqlTx) Create(ctx context.Context, rec models.Record, payer models.Identity) error {
	if err := t.checkSize(rec.Data); err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, t.q(`
		INSERT INTO records (address, kind, owner, data, payer, size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (address) DO NOTHING
	`), rec.Address.String(), string(rec.Kind), rec.Owner.String(), rec.Data,
		payer.String(), len(rec.Data), t.repo.now().Unix())
	if err != nil {
		return fmt.Errorf("create %s: %w", rec.Address, mapSQLError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create %s: %w", rec.Address, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", rec.Address, models.ErrAddressInUse)
	}
	return nil
}

func (t *sqlTx) Save(ctx context.Context, addr models.Address, data []byte) error {
	if err := t.checkSize(data); err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, t.q(`
		UPDATE records SET data = $1, size = $2 WHERE address = $3 AND closed = false
	`), data, len(data), addr.String())
	return t.expectOne(res, err, "save", addr)
}

func (t *sqlTx) Close(ctx context.Context, addr models.Address, refundTo models.Identity) error {
	res, err := t.tx.ExecContext(ctx, t.q(`
		UPDATE records SET closed = true, closed_at = $1, refund_to = $2
		 WHERE address = $3 AND closed = false
	`), t.repo.now().Unix(), refundTo.String(), addr.String())
	return t.expectOne(res, err, "close", addr)
}

func (t *sqlTx) expectOne(res sql.Result, err error, op string, addr models.Address) error {
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, addr, mapSQLError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, addr, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", addr, models.ErrRecordNotFound)
	}
	return nil
}

func scanRecord(addr, kind, owner, payer string, data []byte) (models.Record, error) {
	var rec models.Record
	var err error
	if rec.Address, err = models.ParseAddress(addr); err != nil {
		return rec, err
	}
	if rec.Owner, err = models.ParseIdentity(owner); err != nil {
		return rec, err
	}
	if rec.Payer, err = models.ParseIdentity(payer); err != nil {
		return rec, err
	}
	rec.Kind = models.Kind(kind)
	rec.Data = data
	return rec, nil
}
