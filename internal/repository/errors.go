package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrStaleState is returned by guarded updates when the row no longer
	// holds the expected state, e.g. another run already advanced the case.
	ErrStaleState = errors.New("stale state")
)
