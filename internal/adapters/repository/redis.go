// Package repository holds the shared, Redis-backed message id store used
// to drop redeliveries across replicas.
package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/matchpred/pkg/logger"
	"github.com/okian/matchpred/pkg/metrics"
)

const (
	defaultTTL    = time.Hour
	defaultPrefix = "matchpred:seen:"
)

// RedisDeduper implements dedupe.Deduper with SET NX and a TTL per id.
// When Redis cannot be reached it fails open: the message is treated as
// new, so at worst a redelivery produces a second row.
type RedisDeduper struct {
	client   redis.UniversalClient
	ttl      time.Duration
	prefix   string
	logger   logger.Logger
	recorded atomic.Int64
}

// NewRedisDeduper wraps an existing client.
func NewRedisDeduper(client redis.UniversalClient, opts ...Option) *RedisDeduper {
	d := &RedisDeduper{
		client: client,
		ttl:    defaultTTL,
		prefix: defaultPrefix,
		logger: logger.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewClient builds a client from a redis:// URL.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	return redis.NewClient(opts), nil
}

// Ping checks the connection.
func (d *RedisDeduper) Ping(ctx context.Context) error {
	if err := d.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// SeenAndRecord sets the id key if absent. Returns true if it already existed.
func (d *RedisDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	ok, err := d.client.SetNX(ctx, d.prefix+id, 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn(ctx, "dedupe lookup failed, treating message as new",
			logger.String("id", id), logger.Error(err))
		metrics.RecordErrorByComponent("dedupe", "redis")
		return false
	}
	if ok {
		d.recorded.Add(1)
	}
	return !ok
}

// Unrecord deletes the id key.
func (d *RedisDeduper) Unrecord(ctx context.Context, id string) {
	n, err := d.client.Del(ctx, d.prefix+id).Result()
	if err != nil {
		d.logger.Warn(ctx, "dedupe unrecord failed", logger.String("id", id), logger.Error(err))
		metrics.RecordErrorByComponent("dedupe", "redis")
		return
	}
	if n > 0 {
		d.recorded.Add(-1)
	}
}

// Size is the number of ids this process recorded and did not unrecord.
// Keys expire in Redis, so it is an upper bound of what is still stored.
func (d *RedisDeduper) Size() int64 {
	return d.recorded.Load()
}

// Close closes the client.
func (d *RedisDeduper) Close() error {
	return d.client.Close()
}
