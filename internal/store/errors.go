package store

import "errors"

var (
	// ErrMount is returned when the backing filesystem cannot be made available.
	ErrMount = errors.New("storage mount failed")

	// ErrNotFound is returned when a collection file is absent or holds no entries.
	ErrNotFound = errors.New("no stored data")

	// ErrParse is returned when stored data or an incoming record is malformed.
	ErrParse = errors.New("malformed record")

	// ErrWrite is returned when a collection file could not be rewritten.
	ErrWrite = errors.New("storage write failed")

	// ErrInvalidCount is returned for negative failure counts.
	ErrInvalidCount = errors.New("failure count must not be negative")
)
