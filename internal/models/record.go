package models

import (
	"context"
	"errors"
)

// Store-level failures shared by every record store implementation.
var (
	// ErrRecordNotFound is returned when an address holds no live record.
	ErrRecordNotFound = errors.New("record not found")
	// ErrAddressInUse is returned when Create targets an occupied or closed address.
	ErrAddressInUse = errors.New("address already in use")
	// ErrRecordTooLarge is returned when a payload exceeds the store's record size limit.
	ErrRecordTooLarge = errors.New("record too large")
	// ErrConflict is returned when a concurrent transaction touched the same records.
	ErrConflict = errors.New("concurrent modification conflict")
)

// Kind distinguishes the record types kept in the store.
type Kind string

const (
	// KindProfile marks a serialized Profile.
	KindProfile Kind = "profile"
	// KindTask marks a serialized Task.
	KindTask Kind = "task"
)

// Record is a raw entry of the key-addressed store.
type Record struct {
	Address Address
	Kind    Kind
	Owner   Identity
	// Data is the encoded Profile or Task, discriminator included.
	Data []byte
	// Payer is the identity charged for the record's storage.
	Payer Identity
}

// RecordReader is the read side of a store transaction.
type RecordReader interface {
	// Load returns the live record at addr or ErrRecordNotFound.
	Load(ctx context.Context, addr Address) (*Record, error)
	// ListByOwner returns every live record of the given kind owned by owner.
	ListByOwner(ctx context.Context, kind Kind, owner Identity) ([]Record, error)
}

// RecordWriter is a store transaction. Writes become visible only if the
// enclosing unit of work succeeds.
type RecordWriter interface {
	RecordReader
	// Create stores rec at rec.Address, charging payer. It fails with
	// ErrAddressInUse when the address is occupied or was closed before.
	Create(ctx context.Context, rec Record, payer Identity) error
	// Save replaces the payload of a live record.
	Save(ctx context.Context, addr Address, data []byte) error
	// Close tombstones a live record and refunds its storage to refundTo.
	// The address can never be created again.
	Close(ctx context.Context, addr Address, refundTo Identity) error
}
