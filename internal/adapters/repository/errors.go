package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("incident not found")
	ErrInvalidLimit = errors.New("invalid result limit")
)
