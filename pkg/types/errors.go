package types

import "errors"

var (
	// ErrValidation marks a record rejected before any side effect.
	ErrValidation = errors.New("invalid record")

	// ErrNotFound marks a missing row or file.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate marks a catalog insert with an id that already exists.
	ErrDuplicate = errors.New("duplicate id")

	// ErrClosed marks a catalog operation issued after Close.
	ErrClosed = errors.New("catalog is closed")
)
