package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrCorrupt is returned when stored data cannot be decoded or fails its
	// integrity check.
	ErrCorrupt = errors.New("persistence: corrupt snapshot")
	// ErrConstraintViolation is returned when a snapshot breaks a storage
	// constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)
