package httppredictor

import "errors"

// ErrNoURL is returned by New when no endpoint URL is configured.
var ErrNoURL = errors.New("predict url is required")
