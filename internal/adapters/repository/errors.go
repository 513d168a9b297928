package repository

import "errors"

// Sentinel kinds for dedupe store errors.
var (
	ErrInvalidURL  = errors.New("invalid redis url")
	ErrUnavailable = errors.New("redis unavailable")
)
