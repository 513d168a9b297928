package envelope

import "errors"

// Sentinel error kinds for envelope decoding.
var (
	ErrNotObject   = errors.New("decoded payload is not a JSON object")
	ErrInvalidJSON = errors.New("invalid JSON")
	ErrInvalidUTF8 = errors.New("payload is not valid UTF-8")
	ErrBase64      = errors.New("invalid base64")
	ErrSerialize   = errors.New("payload is not JSON-serializable")
)
