package directory

import "errors"

// Sentinel kinds for directory errors.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidProfile  = errors.New("invalid profile")
)
