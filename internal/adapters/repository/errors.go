package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrClosed       = errors.New("repository closed")
	ErrEmptyRecord  = errors.New("audit record missing anchor or candidate id")
	ErrOpenDatabase = errors.New("open database failed")
)
