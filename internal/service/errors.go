package service

import (
	"errors"

	"github.com/atinyakov/GophTodo/internal/derive"
	"github.com/atinyakov/GophTodo/internal/models"
)

// Operation failures. Every one aborts the whole operation; nothing is retried here.
var (
	ErrAlreadyInitialized = errors.New("profile already initialized")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrNotFound           = errors.New("todo not found")
	ErrForbidden          = errors.New("caller does not own the record")
	ErrAlreadyCompleted   = errors.New("todo already completed")
	ErrAlreadyExists      = errors.New("todo address already occupied")
	ErrCounterOverflow    = errors.New("counter overflow")
	ErrCounterUnderflow   = errors.New("counter underflow")
	ErrInvalidFilter      = errors.New("invalid filter expression")

	// ErrDerivationExhausted is the deriver's exhaustion error.
	ErrDerivationExhausted = derive.ErrExhausted
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrAlreadyInitialized, "already_initialized"},
	{ErrProfileNotFound, "profile_not_found"},
	{ErrNotFound, "not_found"},
	{ErrForbidden, "forbidden"},
	{ErrAlreadyCompleted, "already_completed"},
	{ErrAlreadyExists, "already_exists"},
	{ErrCounterOverflow, "counter_overflow"},
	{ErrCounterUnderflow, "counter_underflow"},
	{ErrDerivationExhausted, "derivation_exhausted"},
	{ErrInvalidFilter, "invalid_filter"},
	{models.ErrRecordTooLarge, "record_too_large"},
	{models.ErrCorruptRecord, "corrupt_record"},
	{models.ErrConflict, "conflict"},
}

// ErrorKind returns a stable label for err: "ok" for nil, "internal" for
// anything outside the taxonomy.
func ErrorKind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}

// IsConsistencyViolation reports whether err means the stored profile and
// tasks disagree. Callers should treat the profile as corrupted, not retry.
func IsConsistencyViolation(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrCounterOverflow) ||
		errors.Is(err, ErrCounterUnderflow) ||
		errors.Is(err, models.ErrCorruptRecord)
}
