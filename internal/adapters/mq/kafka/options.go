package kafka

import (
	"time"

	"github.com/okian/matchpred/pkg/logger"
)

// Option configures a Consumer.
type Option func(*Consumer)

// WithPollTimeout sets how long one Poll waits for an event.
func WithPollTimeout(d time.Duration) Option {
	return func(c *Consumer) {
		if d > 0 {
			c.pollTimeout = d
		}
	}
}

// WithRetryBackoff sets the wait between submit attempts while the
// pipeline queue is full.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *Consumer) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Consumer) {
		if l != nil {
			c.logger = l
		}
	}
}
