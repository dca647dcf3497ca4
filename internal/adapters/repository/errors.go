package repository

import "errors"

// Sentinel kinds for persistence errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrConflict          = errors.New("record conflicts with existing state")
	ErrUnsupportedDriver = errors.New("unsupported store driver")
)
