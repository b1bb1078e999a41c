package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/atinyakov/GophTodo/internal/db"
	"github.com/atinyakov/GophTodo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordStore interface {
	Update(ctx context.Context, fn func(tx models.RecordWriter) error) error
	View(ctx context.Context, fn func(tx models.RecordReader) error) error
}

func newStores(t *testing.T, maxRecordSize int) map[string]recordStore {
	t.Helper()
	conn, err := db.InitSQLite(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return map[string]recordStore{
		"memory": NewMemoryRecordRepository(maxRecordSize),
		"sqlite": NewSQLiteRecordRepository(conn, maxRecordSize),
	}
}

func testRecord(addr, owner byte, kind models.Kind, data string) models.Record {
	return models.Record{
		Address: models.Address{addr},
		Kind:    kind,
		Owner:   models.Identity{owner},
		Data:    []byte(data),
	}
}

func create(t *testing.T, s recordStore, rec models.Record) {
	t.Helper()
	require.NoError(t, s.Update(context.Background(), func(tx models.RecordWriter) error {
		return tx.Create(context.Background(), rec, rec.Owner)
	}))
}

func TestRecordStore_CreateLoad(t *testing.T) {
	for name, s := range newStores(t, 0) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := testRecord(1, 7, models.KindProfile, "hello")
			payer := models.Identity{9}
			require.NoError(t, s.Update(ctx, func(tx models.RecordWriter) error {
				return tx.Create(ctx, rec, payer)
			}))

			err := s.View(ctx, func(tx models.RecordReader) error {
				got, err := tx.Load(ctx, rec.Address)
				require.NoError(t, err)
				assert.Equal(t, rec.Address, got.Address)
				assert.Equal(t, rec.Kind, got.Kind)
				assert.Equal(t, rec.Owner, got.Owner)
				assert.Equal(t, payer, got.Payer)
				assert.Equal(t, []byte("hello"), got.Data)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestRecordStore_CreateOccupied(t *testing.T) {
	for name, s := range newStores(t, 0) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := testRecord(1, 7, models.KindProfile, "a")
			create(t, s, rec)

			err := s.Update(ctx, func(tx models.RecordWriter) error {
				return tx.Create(ctx, rec, rec.Owner)
			})
			assert.ErrorIs(t, err, models.ErrAddressInUse)
		})
	}
}

func TestRecordStore_LoadMissing(t *testing.T) {
	for name, s := range newStores(t, 0) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := s.View(ctx, func(tx models.RecordReader) error {
				_, err := tx.Load(ctx, models.Address{42})
				return err
			})
			assert.ErrorIs(t, err, models.ErrRecordNotFound)
		})
	}
}

func TestRecordStore_SaveReplacesData(t *testing.T) {
	for name, s := range newStores(t, 0) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := testRecord(1, 7, models.KindTask, "old")
			create(t, s, rec)

			require.NoError(t, s.Update(ctx, func(tx models.RecordWriter) error {
				return tx.Save(ctx, rec.Address, []byte("new"))
			}))
			require.NoError(t, s.View(ctx, func(tx models.RecordReader) error {
				got, err := tx.Load(ctx, rec.Address)
				require.NoError(t, err)
				assert.Equal(t, []byte("new"), got.Data)
				return nil
			}))

			err := s.Update(ctx, func(tx models.RecordWriter) error {
				return tx.Save(ctx, models.Address{99}, []byte("x"))
			})
			assert.ErrorIs(t, err, models.ErrRecordNotFound)
		})
	}
}

func TestRecordStore_CloseTombstones(t *testing.T) {
	for name, s := range newStores(t, 0) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := testRecord(3, 7, models.KindTask, "todo")
			create(t, s, rec)

			require.NoError(t, s.Update(ctx, func(tx models.RecordWriter) error {
				return tx.Close(ctx, rec.Address, rec.Owner)
			}))

			err := s.View(ctx, func(tx models.RecordReader) error {
				_, err := tx.Load(ctx, rec.Address)
				return err
			})
			assert.ErrorIs(t, err, models.ErrRecordNotFound)

			err = s.Update(ctx, func(tx models.RecordWriter) error {
				return tx.Close(ctx, rec.Address, rec.Owner)
			})
			assert.ErrorIs(t, err, models.ErrRecordNotFound, "closing twice")

			err = s.Update(ctx, func(tx models.RecordWriter) error {
				return tx.Create(ctx, rec, rec.Owner)
			})
			assert.ErrorIs(t, err, models.ErrAddressInUse, "closed address must stay unusable")
		})
	}
}

func TestRecordStore_FailedUpdateDiscardsWrites(t *testing.T) {
	for name, s := range newStores(t, 0) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			existing := testRecord(1, 7, models.KindProfile, "keep")
			create(t, s, existing)

			boom := errors.New("boom")
			err := s.Update(ctx, func(tx models.RecordWriter) error {
				if err := tx.Create(ctx, testRecord(2, 7, models.KindTask, "new"), existing.Owner); err != nil {
					return err
				}
				if err := tx.Save(ctx, existing.Address, []byte("changed")); err != nil {
					return err
				}
				return boom
			})
			require.ErrorIs(t, err, boom)

			require.NoError(t, s.View(ctx, func(tx models.RecordReader) error {
				got, err := tx.Load(ctx, existing.Address)
				require.NoError(t, err)
				assert.Equal(t, []byte("keep"), got.Data)

				_, err = tx.Load(ctx, models.Address{2})
				assert.ErrorIs(t, err, models.ErrRecordNotFound)
				return nil
			}))
		})
	}
}

func TestRecordStore_ListByOwner(t *testing.T) {
	for name, s := range newStores(t, 0) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			create(t, s, testRecord(5, 1, models.KindTask, "b"))
			create(t, s, testRecord(4, 1, models.KindTask, "a"))
			create(t, s, testRecord(6, 1, models.KindProfile, "p"))
			create(t, s, testRecord(7, 2, models.KindTask, "other"))
			create(t, s, testRecord(8, 1, models.KindTask, "closed"))
			require.NoError(t, s.Update(ctx, func(tx models.RecordWriter) error {
				return tx.Close(ctx, models.Address{8}, models.Identity{1})
			}))

			require.NoError(t, s.View(ctx, func(tx models.RecordReader) error {
				recs, err := tx.ListByOwner(ctx, models.KindTask, models.Identity{1})
				require.NoError(t, err)
				require.Len(t, recs, 2)
				assert.Equal(t, models.Address{4}, recs[0].Address)
				assert.Equal(t, models.Address{5}, recs[1].Address)
				return nil
			}))
		})
	}
}

func TestRecordStore_RecordTooLarge(t *testing.T) {
	for name, s := range newStores(t, 4) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := s.Update(ctx, func(tx models.RecordWriter) error {
				return tx.Create(ctx, testRecord(1, 1, models.KindTask, "12345"), models.Identity{1})
			})
			assert.ErrorIs(t, err, models.ErrRecordTooLarge)

			create(t, s, testRecord(2, 1, models.KindTask, "1234"))
			err = s.Update(ctx, func(tx models.RecordWriter) error {
				return tx.Save(ctx, models.Address{2}, []byte("12345"))
			})
			assert.ErrorIs(t, err, models.ErrRecordTooLarge)
		})
	}
}

func TestMemoryRecordRepository_RefundedTo(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRecordRepository(0)
	rec := testRecord(1, 7, models.KindTask, "x")
	create(t, s, rec)

	_, ok := s.RefundedTo(rec.Address)
	assert.False(t, ok)

	require.NoError(t, s.Update(ctx, func(tx models.RecordWriter) error {
		return tx.Close(ctx, rec.Address, models.Identity{7})
	}))
	got, ok := s.RefundedTo(rec.Address)
	require.True(t, ok)
	assert.Equal(t, models.Identity{7}, got)
}

func TestMemoryRecordRepository_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryRecordRepository(0)
	called := false
	err := s.Update(ctx, func(models.RecordWriter) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestSQLiteRecordRepository_RefundRecorded(t *testing.T) {
	ctx := context.Background()
	conn, err := db.InitSQLite(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	defer conn.Close()

	s := NewSQLiteRecordRepository(conn, 0)
	rec := testRecord(1, 7, models.KindTask, "x")
	create(t, s, rec)
	require.NoError(t, s.Update(ctx, func(tx models.RecordWriter) error {
		return tx.Close(ctx, rec.Address, models.Identity{7})
	}))

	var refund string
	var closed bool
	require.NoError(t, conn.QueryRow(`SELECT refund_to, closed FROM records WHERE address = ?`, rec.Address.String()).Scan(&refund, &closed))
	assert.True(t, closed)
	assert.Equal(t, models.Identity{7}.String(), refund)
}
