// Package service implements the profile and todo lifecycle on top of a
// key-addressed record store. Every operation is one atomic read-modify-write
// unit against the store.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/GophTodo/internal/derive"
	"github.com/atinyakov/GophTodo/internal/metrics"
	"github.com/atinyakov/GophTodo/internal/models"
	"go.uber.org/zap"
)

// RecordStore defines the transactional record store the services run against.
type RecordStore interface {
	// Update runs fn as a single all-or-nothing unit. If fn returns an
	// error, none of its writes are applied and the error is returned.
	Update(ctx context.Context, fn func(tx models.RecordWriter) error) error
	// View runs fn against a consistent read-only view.
	View(ctx context.Context, fn func(tx models.RecordReader) error) error
}

// ProfileRef is a profile together with its derived address and bump.
type ProfileRef struct {
	Address models.Address `json:"address"`
	Bump    uint8          `json:"bump"`
	Profile models.Profile `json:"profile"`
}

// TaskRef is a task together with its derived address and bump.
type TaskRef struct {
	Address models.Address `json:"address"`
	Bump    uint8          `json:"bump"`
	Task    models.Task    `json:"task"`
}

// Option configures a service.
type Option func(*core)

// WithLogger sets the logger used for operation outcomes.
func WithLogger(log *zap.Logger) Option {
	return func(c *core) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics sets the recorder receiving one observation per operation.
func WithMetrics(rec metrics.Recorder) Option {
	return func(c *core) {
		if rec != nil {
			c.metrics = rec
		}
	}
}

// core holds what both lifecycle managers share.
type core struct {
	store   RecordStore
	deriver *derive.Deriver
	log     *zap.Logger
	metrics metrics.Recorder
}

func newCore(store RecordStore, deriver *derive.Deriver, opts []Option) core {
	c := core{
		store:   store,
		deriver: deriver,
		log:     zap.NewNop(),
		metrics: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// observe is deferred by every operation with a pointer to its named error.
func (c *core) observe(op string, owner models.Identity, started time.Time, errp *error) {
	err := *errp
	c.metrics.Observe(op, ErrorKind(err), time.Since(started))

	fields := []zap.Field{zap.String("op", op), zap.Stringer("owner", owner)}
	switch {
	case err == nil:
		c.log.Debug("operation applied", fields...)
	case IsConsistencyViolation(err):
		c.log.Warn("profile may be corrupted", append(fields, zap.Error(err))...)
	case ErrorKind(err) == "internal":
		c.log.Error("operation failed", append(fields, zap.Error(err))...)
	default:
		c.log.Debug("operation rejected", append(fields, zap.String("kind", ErrorKind(err)))...)
	}
}

// loadProfile resolves and decodes owner's profile inside a transaction.
func (c *core) loadProfile(ctx context.Context, tx models.RecordReader, owner models.Identity) (ProfileRef, error) {
	addr, bump, err := c.deriver.ProfileAddress(owner)
	if err != nil {
		return ProfileRef{}, fmt.Errorf("derive profile address: %w", err)
	}
	rec, err := tx.Load(ctx, addr)
	if errors.Is(err, models.ErrRecordNotFound) {
		return ProfileRef{}, fmt.Errorf("owner %s: %w", owner, ErrProfileNotFound)
	}
	if err != nil {
		return ProfileRef{}, fmt.Errorf("load profile: %w", err)
	}
	profile, err := models.DecodeProfile(rec.Data)
	if err != nil {
		return ProfileRef{}, fmt.Errorf("profile %s: %w", addr, err)
	}
	if profile.Owner != owner {
		return ProfileRef{}, fmt.Errorf("profile %s: %w", addr, ErrForbidden)
	}
	return ProfileRef{Address: addr, Bump: bump, Profile: profile}, nil
}

// loadTask resolves and decodes owner's task at index inside a transaction.
func (c *core) loadTask(ctx context.Context, tx models.RecordReader, owner models.Identity, index uint8) (TaskRef, error) {
	addr, bump, err := c.deriver.TaskAddress(owner, index)
	if err != nil {
		return TaskRef{}, fmt.Errorf("derive todo address: %w", err)
	}
	rec, err := tx.Load(ctx, addr)
	if errors.Is(err, models.ErrRecordNotFound) {
		return TaskRef{}, fmt.Errorf("todo %d of %s: %w", index, owner, ErrNotFound)
	}
	if err != nil {
		return TaskRef{}, fmt.Errorf("load todo: %w", err)
	}
	task, err := models.DecodeTask(rec.Data)
	if err != nil {
		return TaskRef{}, fmt.Errorf("todo %s: %w", addr, err)
	}
	if task.Owner != owner {
		return TaskRef{}, fmt.Errorf("todo %s: %w", addr, ErrForbidden)
	}
	if task.Index != index {
		return TaskRef{}, fmt.Errorf("todo %s stores index %d, want %d: %w", addr, task.Index, index, models.ErrCorruptRecord)
	}
	return TaskRef{Address: addr, Bump: bump, Task: task}, nil
}
