// Package derive computes deterministic record addresses from a fixed tag,
// an owner identity and an optional sequence index.
//
// An address is SHA-256 over the seeds, a one-byte bump, the namespace and a
// fixed marker. Bumps are tried from 255 downwards and the first digest that
// is not a valid Ed25519 point is taken, so an address can never double as an
// identity key. Anyone holding the same inputs reproduces the same address.
package derive

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/atinyakov/GophTodo/internal/models"
)

const (
	// MaxSeedLen is the longest accepted single seed.
	MaxSeedLen = 32
	// MaxSeeds is the largest accepted number of seeds, bump excluded.
	MaxSeeds = 16

	addressMarker = "ProgramDerivedAddress"
)

// Record tags.
var (
	ProfileTag = []byte("USER_STATE")
	TaskTag    = []byte("TODO_STATE")
)

var (
	// ErrExhausted is returned when no bump yields an off-curve address.
	ErrExhausted = errors.New("derivation space exhausted")
	// ErrSeedTooLong is returned for a seed above MaxSeedLen bytes.
	ErrSeedTooLong = errors.New("seed too long")
	// ErrTooManySeeds is returned for more than MaxSeeds seeds.
	ErrTooManySeeds = errors.New("too many seeds")
)

// Namespace scopes every derivation so separate deployments never share addresses.
type Namespace [32]byte

// NamespaceFromString hashes an arbitrary label into a Namespace.
func NamespaceFromString(label string) Namespace {
	return Namespace(sha256.Sum256([]byte(label)))
}

// Deriver derives addresses within one namespace.
type Deriver struct {
	ns Namespace
}

// New returns a Deriver bound to ns.
func New(ns Namespace) *Deriver {
	return &Deriver{ns: ns}
}

// Derive returns the address and canonical bump for (tag, owner, index).
// A nil index derives the owner-level address.
func (d *Deriver) Derive(tag []byte, owner models.Identity, index *uint8) (models.Address, uint8, error) {
	seeds := [][]byte{tag, owner[:]}
	if index != nil {
		seeds = append(seeds, []byte{*index})
	}
	return d.Find(seeds)
}

// ProfileAddress derives the profile address of owner.
func (d *Deriver) ProfileAddress(owner models.Identity) (models.Address, uint8, error) {
	return d.Derive(ProfileTag, owner, nil)
}

// TaskAddress derives the address of owner's task at index.
func (d *Deriver) TaskAddress(owner models.Identity, index uint8) (models.Address, uint8, error) {
	return d.Derive(TaskTag, owner, &index)
}

// Find searches bumps 255..0 and returns the first off-curve address.
func (d *Deriver) Find(seeds [][]byte) (models.Address, uint8, error) {
	if err := checkSeeds(seeds); err != nil {
		return models.Address{}, 0, err
	}
	for bump := 255; bump >= 0; bump-- {
		addr, ok := d.create(seeds, uint8(bump))
		if ok {
			return addr, uint8(bump), nil
		}
	}
	return models.Address{}, 0, ErrExhausted
}

// Verify reports whether addr is the derivation of seeds with the given bump.
func (d *Deriver) Verify(seeds [][]byte, bump uint8, addr models.Address) bool {
	if checkSeeds(seeds) != nil {
		return false
	}
	got, ok := d.create(seeds, bump)
	return ok && got == addr
}

func (d *Deriver) create(seeds [][]byte, bump uint8) (models.Address, bool) {
	h := sha256.New()
	for _, s := range seeds {
		h.Write(s)
	}
	h.Write([]byte{bump})
	h.Write(d.ns[:])
	h.Write([]byte(addressMarker))

	var addr models.Address
	copy(addr[:], h.Sum(nil))
	return addr, !onCurve(addr[:])
}

func onCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

func checkSeeds(seeds [][]byte) error {
	if len(seeds) > MaxSeeds {
		return fmt.Errorf("%w: %d > %d", ErrTooManySeeds, len(seeds), MaxSeeds)
	}
	for i, s := range seeds {
		if len(s) > MaxSeedLen {
			return fmt.Errorf("%w: seed %d is %d bytes", ErrSeedTooLong, i, len(s))
		}
	}
	return nil
}
