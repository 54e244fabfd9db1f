package keystore

import (
	"errors"
	"fmt"
)

// Error kinds reported by keystore backends.
var (
	// ErrIO indicates that opening, locking, reading or writing the backing store failed
	ErrIO = errors.New("keystore I/O failure")

	// ErrCorruptFormat indicates that a stored line could not be parsed
	ErrCorruptFormat = errors.New("keystore corrupt format")

	// ErrEncoding indicates that an entry was rejected while encoding the store for writing
	ErrEncoding = errors.New("keystore encoding failure")

	// ErrInvalidEntry indicates that values or secret were rejected before storing
	ErrInvalidEntry = errors.New("invalid keystore entry")

	// ErrNoPath indicates that the keystore was initialized without a backing path
	ErrNoPath = errors.New("keystore path is not set")
)

// LineError reports a corrupt line of the backing store.
type LineError struct {
	Err  error
	Line int
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}
