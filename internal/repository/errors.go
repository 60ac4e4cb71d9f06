package repository

import "errors"

var (
	// ErrNotFoundOrForbidden is returned by conditional item writes whose
	// owner or deletion check failed. Callers cannot tell the cases apart.
	ErrNotFoundOrForbidden = errors.New("item not found, deleted or owned by another user")

	// ErrSessionNotFound is returned when no session matches a token hash.
	ErrSessionNotFound = errors.New("session not found")
)
