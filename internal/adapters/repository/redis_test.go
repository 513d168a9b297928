package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/matchpred/internal/adapters/repository"
	"github.com/okian/matchpred/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

var _ dedupe.Deduper = (*repository.RedisDeduper)(nil)

func unreachable() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 50 * time.Millisecond,
	})
}

func TestRedisDeduper(t *testing.T) {
	Convey("Given a deduper whose Redis is down", t, func() {
		d := repository.NewRedisDeduper(unreachable(), repository.WithTTL(time.Minute), repository.WithKeyPrefix("t:"))
		defer d.Close()
		ctx := context.Background()

		Convey("Then messages are treated as new", func() {
			So(d.SeenAndRecord(ctx, "m-1"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "m-1"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("Then unrecord does not fail", func() {
			So(func() { d.Unrecord(ctx, "m-1") }, ShouldNotPanic)
		})

		Convey("Then ping reports the store unavailable", func() {
			err := d.Ping(ctx)
			So(errors.Is(err, repository.ErrUnavailable), ShouldBeTrue)
		})
	})

	Convey("Given redis URLs", t, func() {
		Convey("Then a valid URL builds a client", func() {
			c, err := repository.NewClient("redis://localhost:6379/2")
			So(err, ShouldBeNil)
			So(c.Options().DB, ShouldEqual, 2)
			So(c.Close(), ShouldBeNil)
		})

		Convey("Then an invalid URL is rejected", func() {
			_, err := repository.NewClient("http://localhost")
			So(errors.Is(err, repository.ErrInvalidURL), ShouldBeTrue)
		})
	})
}
