package repository

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/atinyakov/GophTodo/internal/models"
)

type memEntry struct {
	rec      models.Record
	closed   bool
	refundTo models.Identity
}

// MemoryRecordRepository keeps records in process memory. Update works on a
// copy of the state and swaps it in only when the callback succeeds.
type MemoryRecordRepository struct {
	mu            sync.RWMutex
	entries       map[models.Address]memEntry
	maxRecordSize int
}

// NewMemoryRecordRepository returns an empty store. maxRecordSize <= 0 disables the size check.
func NewMemoryRecordRepository(maxRecordSize int) *MemoryRecordRepository {
	return &MemoryRecordRepository{
		entries:       make(map[models.Address]memEntry),
		maxRecordSize: maxRecordSize,
	}
}

// Update runs fn with exclusive access. Writes are discarded if fn fails.
func (m *MemoryRecordRepository) Update(ctx context.Context, fn func(tx models.RecordWriter) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{entries: maps.Clone(m.entries), maxRecordSize: m.maxRecordSize}
	if err := fn(tx); err != nil {
		return err
	}
	m.entries = tx.entries
	return nil
}

// View runs fn against the current state.
func (m *MemoryRecordRepository) View(ctx context.Context, fn func(tx models.RecordReader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memTx{entries: m.entries})
}

// RefundedTo reports who received the storage of the closed record at addr.
func (m *MemoryRecordRepository) RefundedTo(addr models.Address) (models.Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[addr]
	if !ok || !e.closed {
		return models.Identity{}, false
	}
	return e.refundTo, true
}

// memTx never mutates an entry in place; every write stores a new value,
// so the shallow map clone taken by Update is enough.
type memTx struct {
	entries       map[models.Address]memEntry
	maxRecordSize int
}

func (tx *memTx) Load(_ context.Context, addr models.Address) (*models.Record, error) {
	e, ok := tx.entries[addr]
	if !ok || e.closed {
		return nil, fmt.Errorf("%s: %w", addr, models.ErrRecordNotFound)
	}
	rec := e.rec
	rec.Data = bytes.Clone(e.rec.Data)
	return &rec, nil
}

func (tx *memTx) ListByOwner(_ context.Context, kind models.Kind, owner models.Identity) ([]models.Record, error) {
	var out []models.Record
	for _, e := range tx.entries {
		if e.closed || e.rec.Kind != kind || e.rec.Owner != owner {
			continue
		}
		rec := e.rec
		rec.Data = bytes.Clone(e.rec.Data)
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	return out, nil
}

func (tx *memTx) Create(_ context.Context, rec models.Record, payer models.Identity) error {
	if err := tx.checkSize(rec.Data); err != nil {
		return err
	}
	if _, ok := tx.entries[rec.Address]; ok {
		return fmt.Errorf("%s: %w", rec.Address, models.ErrAddressInUse)
	}
	rec.Data = bytes.Clone(rec.Data)
	rec.Payer = payer
	tx.entries[rec.Address] = memEntry{rec: rec}
	return nil
}

func (tx *memTx) Save(_ context.Context, addr models.Address, data []byte) error {
	if err := tx.checkSize(data); err != nil {
		return err
	}
	e, ok := tx.entries[addr]
	if !ok || e.closed {
		return fmt.Errorf("%s: %w", addr, models.ErrRecordNotFound)
	}
	e.rec.Data = bytes.Clone(data)
	tx.entries[addr] = e
	return nil
}

func (tx *memTx) Close(_ context.Context, addr models.Address, refundTo models.Identity) error {
	e, ok := tx.entries[addr]
	if !ok || e.closed {
		return fmt.Errorf("%s: %w", addr, models.ErrRecordNotFound)
	}
	e.closed = true
	e.refundTo = refundTo
	e.rec.Data = nil
	tx.entries[addr] = e
	return nil
}

func (tx *memTx) checkSize(data []byte) error {
	if tx.maxRecordSize > 0 && len(data) > tx.maxRecordSize {
		return fmt.Errorf("%d bytes over limit %d: %w", len(data), tx.maxRecordSize, models.ErrRecordTooLarge)
	}
	return nil
}
