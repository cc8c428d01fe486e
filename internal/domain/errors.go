package domain

import "errors"

// Sentinel errors for the two categories that propagate to callers.
// Everything else (collaborator failures, degenerate computations) is
// absorbed into degraded result objects rather than returned as errors.
var (
	// ErrNotFound indicates a referenced budget, itinerary or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed constraints that have no safe fallback.
	ErrInvalidInput = errors.New("invalid input")
)
