package kafka

import "errors"

var (
	// ErrNoTopic is returned when no topic is configured.
	ErrNoTopic = errors.New("kafka topic is required")
	// ErrConsumer wraps consumer creation and subscription failures.
	ErrConsumer = errors.New("kafka consumer failed")
)
