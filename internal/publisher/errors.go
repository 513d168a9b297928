package publisher

import "errors"

var (
	// ErrInvalidPayload is returned for payloads that are not JSON.
	ErrInvalidPayload = errors.New("payload is not valid JSON")
	// ErrUnhealthy is returned when the adapter health check fails.
	ErrUnhealthy = errors.New("adapter is not healthy")
)
