package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCapacityExceeded is returned when persisting a registry with more
	// protocols than the configured maximum. Stores must reject the write
	// rather than truncate.
	ErrCapacityExceeded = errors.New("registry capacity exceeded")
)
