package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Reserve records are never replaced.
	ErrDuplicateKey = errors.New("duplicate key: record already exists")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTypeMismatch is returned when the record stored at an address
	// is not of the requested type.
	ErrTypeMismatch = errors.New("record type mismatch")
)

// ErrConflict is returned when a unit of work lost a race with a concurrent
// one and could not be committed after retrying.
var ErrConflict = errors.New("concurrent update conflict")
