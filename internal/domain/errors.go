package domain

import "errors"

// Error taxonomy for the attribute store. Every failure returned by this
// package wraps exactly one of these, so callers test with errors.Is.
var (
	// ErrTypeConflict is returned when a requested element type does not match
	// a datum's kind, or when an already-typed datum is asked to change kind.
	ErrTypeConflict = errors.New("type conflict")

	// ErrInvalidOperation is returned when an operation is not allowed for the
	// datum's storage mode (external storage cannot be resized) or kind
	// (pointers and tables have no text form).
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrOutOfRange is returned for an index at or past the end.
	ErrOutOfRange = errors.New("index out of range")

	// ErrInvalidArgument is returned for empty names and unparsable text.
	ErrInvalidArgument = errors.New("invalid argument")
)
