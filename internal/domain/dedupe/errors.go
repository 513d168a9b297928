package dedupe

import "errors"

// ErrDuplicate reports a message id that was already accepted.
var ErrDuplicate = errors.New("duplicate message")
