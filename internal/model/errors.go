package model

import "errors"

// Sentinel errors shared by the services and storage drivers. Callers
// match them with errors.Is; the HTTP layer maps them onto statuses.
var (
	// ErrNotFound marks lookups of missing or soft-deleted records.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks input rejected before it reaches storage.
	ErrValidation = errors.New("validation error")
	// ErrConflict marks writes that would collide with an existing
	// active record, such as restoring an entity whose comparison key
	// is now claimed by another.
	ErrConflict = errors.New("conflict")
)
