package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	ckafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/okian/matchpred/internal/adapters/mq/queue"
	"github.com/okian/matchpred/internal/domain/dedupe"
	"github.com/okian/matchpred/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClient struct {
	mu        sync.Mutex
	events    []ckafka.Event
	committed []*ckafka.Message
	closed    bool
}

func (f *fakeClient) Poll(int) ckafka.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil
	}
	e := f.events[0]
	f.events = f.events[1:]
	return e
}

func (f *fakeClient) CommitMessage(m *ckafka.Message) ([]ckafka.TopicPartition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, m)
	return []ckafka.TopicPartition{m.TopicPartition}, nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func record(offset int64, headers ...ckafka.Header) *ckafka.Message {
	topic := "wtt-live"
	return &ckafka.Message{
		TopicPartition: ckafka.TopicPartition{Topic: &topic, Partition: 3, Offset: ckafka.Offset(offset)},
		Value:          []byte(`{"match_id":"m-1"}`),
		Key:            []byte("m-1"),
		Headers:        headers,
	}
}

func TestToMessage(t *testing.T) {
	Convey("Given Kafka records", t, func() {
		now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

		Convey("When the record has a message_id header", func() {
			msg := ToMessage(record(7, ckafka.Header{Key: "message_id", Value: []byte("abc")}), now)

			Convey("Then it becomes the message id", func() {
				So(msg.ID, ShouldEqual, "abc")
				So(msg.Source, ShouldEqual, model.SourceKafka)
				So(msg.Data, ShouldResemble, []byte(`{"match_id":"m-1"}`))
				So(msg.Attributes["key"], ShouldEqual, "m-1")
				So(msg.ReceivedAt, ShouldEqual, now)
			})
		})

		Convey("When only a ce_id header is present", func() {
			msg := ToMessage(record(7, ckafka.Header{Key: "ce_id", Value: []byte("ce-9")}), now)
			So(msg.ID, ShouldEqual, "ce-9")
		})

		Convey("When no id header is present", func() {
			msg := ToMessage(record(7), now)

			Convey("Then the record coordinates are the id", func() {
				So(msg.ID, ShouldEqual, "wtt-live/3@7")
				So(msg.Key(), ShouldEqual, "kafka:wtt-live/3@7")
			})
		})

		Convey("When the record carries a timestamp", func() {
			km := record(1)
			km.Timestamp = now.Add(-time.Minute)
			msg := ToMessage(km, now)
			So(msg.ReceivedAt, ShouldEqual, km.Timestamp)
		})
	})
}

func TestConsumer_Run(t *testing.T) {
	Convey("Given a consumer over a fake client", t, func() {
		fc := &fakeClient{}
		var mu sync.Mutex
		var got []model.Message
		fullOnce := true
		submit := SubmitFunc(func(_ context.Context, msg model.Message) error {
			mu.Lock()
			defer mu.Unlock()
			if msg.ID == "wtt-live/3@2" && fullOnce {
				fullOnce = false
				return queue.ErrFull
			}
			got = append(got, msg)
			return nil
		})
		c := newConsumer(fc, submit, WithPollTimeout(time.Millisecond), WithRetryBackoff(time.Millisecond))

		Convey("When records and a transient error arrive", func() {
			fc.events = []ckafka.Event{
				record(1),
				ckafka.NewError(ckafka.ErrTransport, "broker down", false),
				record(2),
			}
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			err := c.Run(ctx)

			Convey("Then every record is submitted once and committed", func() {
				So(err, ShouldBeNil)
				mu.Lock()
				defer mu.Unlock()
				So(got, ShouldHaveLength, 2)
				So(got[1].ID, ShouldEqual, "wtt-live/3@2")
				So(fc.committed, ShouldHaveLength, 2)
			})
		})

		Convey("When a fatal error arrives", func() {
			fc.events = []ckafka.Event{ckafka.NewError(ckafka.ErrFatal, "fenced", true)}
			err := c.Run(context.Background())

			Convey("Then Run stops with a consumer error", func() {
				So(errors.Is(err, ErrConsumer), ShouldBeTrue)
			})
		})

		Convey("When a duplicate is rejected by the pipeline", func() {
			c.submit = SubmitFunc(func(context.Context, model.Message) error { return dedupe.ErrDuplicate })
			fc.events = []ckafka.Event{record(5)}
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			So(c.Run(ctx), ShouldBeNil)

			Convey("Then the offset is still committed", func() {
				So(fc.committed, ShouldHaveLength, 1)
			})
		})

		Convey("When the pipeline refuses a record", func() {
			c.submit = SubmitFunc(func(context.Context, model.Message) error { return queue.ErrClosed })
			fc.events = []ckafka.Event{record(6), record(7)}
			err := c.Run(context.Background())

			Convey("Then its offset is not committed and Run stops", func() {
				So(errors.Is(err, ErrConsumer), ShouldBeTrue)
				So(errors.Is(err, queue.ErrClosed), ShouldBeTrue)
				So(fc.committed, ShouldBeEmpty)
			})
		})

		Convey("When submission is cancelled during shutdown", func() {
			ctx, cancel := context.WithCancel(context.Background())
			c.submit = SubmitFunc(func(context.Context, model.Message) error {
				cancel()
				return fmt.Errorf("enqueue: %w", context.Canceled)
			})
			fc.events = []ckafka.Event{record(8)}
			err := c.Run(ctx)

			Convey("Then Run ends cleanly without committing", func() {
				So(err, ShouldBeNil)
				So(fc.committed, ShouldBeEmpty)
			})
		})

		Convey("When closed", func() {
			So(c.Close(), ShouldBeNil)
			So(fc.closed, ShouldBeTrue)
		})
	})

	Convey("Given no topic", t, func() {
		_, err := New(Config{BootstrapServers: "localhost:9092"}, SubmitFunc(nil))
		So(err, ShouldEqual, ErrNoTopic)
	})
}
