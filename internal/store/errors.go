package store

import "errors"

var (
	// ErrNotFound is returned when the referenced receipt or category does
	// not exist.
	ErrNotFound = errors.New("not found")
)
