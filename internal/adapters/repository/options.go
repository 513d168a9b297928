package repository

import (
	"time"

	"github.com/okian/matchpred/pkg/logger"
)

// Option applies a configuration option to the RedisDeduper.
type Option func(*RedisDeduper)

// WithTTL sets how long a message id is remembered.
func WithTTL(ttl time.Duration) Option {
	return func(d *RedisDeduper) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithKeyPrefix namespaces the keys, e.g. per deployment.
func WithKeyPrefix(prefix string) Option {
	return func(d *RedisDeduper) {
		if prefix != "" {
			d.prefix = prefix
		}
	}
}

// WithLogger sets the logger used for store failures.
func WithLogger(l logger.Logger) Option {
	return func(d *RedisDeduper) {
		if l != nil {
			d.logger = l
		}
	}
}
