package matching

import "errors"

// Sentinel kinds for matching errors.
var (
	ErrInvalidRequest = errors.New("invalid match request")
)
