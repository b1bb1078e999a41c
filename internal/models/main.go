// Package models defines the core data structures for profiles, tasks and
// the key-addressed records they are stored in.
package models

import (
	"encoding/hex"
	"fmt"
)

// IdentitySize is the width of an identity key and of a derived address.
const IdentitySize = 32

// Identity is the caller's opaque fixed-width key. It is used both for
// authorization and as a derivation input.
type Identity [IdentitySize]byte

// Address is a derived storage key.
type Address [IdentitySize]byte

// String returns the lowercase hex form of the identity.
func (id Identity) String() string { return hex.EncodeToString(id[:]) }

// IsZero reports whether the identity is all zero bytes.
func (id Identity) IsZero() bool { return id == Identity{} }

// MarshalText implements encoding.TextMarshaler.
func (id Identity) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseIdentity decodes a 64-character hex identity.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	if err := decodeFixed(id[:], s); err != nil {
		return Identity{}, fmt.Errorf("parse identity: %w", err)
	}
	return id, nil
}

// String returns the lowercase hex form of the address.
func (a Address) String() string { return hex.EncodeToString(a[:]) }

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress decodes a 64-character hex address.
func ParseAddress(s string) (Address, error) {
	var a Address
	if err := decodeFixed(a[:], s); err != nil {
		return Address{}, fmt.Errorf("parse address: %w", err)
	}
	return a, nil
}

func decodeFixed(dst []byte, s string) error {
	if len(s) != hex.EncodedLen(len(dst)) {
		return fmt.Errorf("want %d hex characters, got %d", hex.EncodedLen(len(dst)), len(s))
	}
	_, err := hex.Decode(dst, []byte(s))
	return err
}

// Profile is the per-identity record tracking task sequencing.
type Profile struct {
	// Owner is the identity that created the profile. Immutable.
	Owner Identity `json:"owner"`
	// NextIndex is the sequence value the next task will receive.
	// It never decreases, so removed indices are never handed out again.
	NextIndex uint8 `json:"next_index"`
	// TaskCount is the number of live tasks.
	TaskCount uint8 `json:"task_count"`
}

// Task is a single to-do item owned by an identity.
type Task struct {
	// Owner must equal the owning profile's Owner.
	Owner Identity `json:"owner"`
	// Index is the sequence value assigned at creation.
	Index uint8 `json:"index"`
	// Content is the user-supplied text.
	Content string `json:"content"`
	// Completed flips to true exactly once.
	Completed bool `json:"completed"`
}
