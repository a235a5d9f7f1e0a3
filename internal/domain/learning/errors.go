package learning

import "errors"

// Sentinel kinds for learning errors.
var (
	ErrUpdateDiscarded = errors.New("weight update discarded")
)
