package feature

import "errors"

// Sentinel error kinds for this package.
var (
	ErrMissingFeatures = errors.New("missing features")
)
