package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidID        = errors.New("invalid initiative id")
	ErrInvalidSortField = errors.New("invalid sort field")
	ErrInvalidView      = errors.New("invalid view")
	ErrInvalidSnapshot  = errors.New("invalid snapshot")
	ErrSeedUnavailable  = errors.New("seed unavailable")
)
