package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when a chat does not exist.
	ErrNotFound = errors.New("chat not found")

	// ErrConflict is returned when a chat or message with the given ID already exists.
	ErrConflict = errors.New("already exists")
)
