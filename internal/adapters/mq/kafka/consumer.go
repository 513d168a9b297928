// Package kafka feeds messages from a Kafka topic into the pipeline.
// Offsets are committed only after a message was accepted, so a crash
// redelivers instead of dropping.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	ckafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/okian/matchpred/internal/adapters/mq/queue"
	"github.com/okian/matchpred/internal/domain/dedupe"
	"github.com/okian/matchpred/internal/domain/model"
	"github.com/okian/matchpred/pkg/logger"
	"github.com/okian/matchpred/pkg/metrics"
)

const (
	bootstrapServers = "bootstrap.servers"
	groupID          = "group.id"
	autoOffsetReset  = "auto.offset.reset"
	enableAutoCommit = "enable.auto.commit"
	clientID         = "client.id"

	defaultPollTimeout = 100 * time.Millisecond
	defaultBackoff     = 50 * time.Millisecond

	// Header names checked, in order, for a publisher-assigned message id.
	headerMessageID = "message_id"
	headerCEID      = "ce_id"
)

// Submitter accepts a message into the pipeline.
type Submitter interface {
	Submit(ctx context.Context, msg model.Message) error
}

// SubmitFunc adapts a function to Submitter.
type SubmitFunc func(ctx context.Context, msg model.Message) error

// Submit calls f.
func (f SubmitFunc) Submit(ctx context.Context, msg model.Message) error { return f(ctx, msg) }

// client is the part of *ckafka.Consumer the loop uses.
type client interface {
	Poll(timeoutMs int) ckafka.Event
	CommitMessage(m *ckafka.Message) ([]ckafka.TopicPartition, error)
	Close() error
}

// Config holds connection settings.
type Config struct {
	BootstrapServers string
	Topic            string
	GroupID          string
}

// Consumer polls one topic and submits every record.
type Consumer struct {
	client      client
	submit      Submitter
	pollTimeout time.Duration
	backoff     time.Duration
	logger      logger.Logger
}

// New connects a consumer group member and subscribes to cfg.Topic.
func New(cfg Config, submit Submitter, opts ...Option) (*Consumer, error) {
	if cfg.Topic == "" {
		return nil, ErrNoTopic
	}
	kc, err := ckafka.NewConsumer(&ckafka.ConfigMap{
		bootstrapServers: cfg.BootstrapServers,
		groupID:          cfg.GroupID,
		autoOffsetReset:  "earliest",
		enableAutoCommit: false,
		clientID:         cfg.GroupID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConsumer, err)
	}
	if err := kc.SubscribeTopics([]string{cfg.Topic}, nil); err != nil {
		_ = kc.Close()
		return nil, fmt.Errorf("%w: subscribe %s: %w", ErrConsumer, cfg.Topic, err)
	}
	return newConsumer(kc, submit, opts...), nil
}

func newConsumer(c client, submit Submitter, opts ...Option) *Consumer {
	k := &Consumer{
		client:      c,
		submit:      submit,
		pollTimeout: defaultPollTimeout,
		backoff:     defaultBackoff,
		logger:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(k)
	}
	k.logger = k.logger.Named("kafka")
	return k
}

// Run polls until ctx is done or the client reports a fatal error.
func (k *Consumer) Run(ctx context.Context) error {
	k.logger.Info(ctx, "kafka consumer started")
	for {
		select {
		case <-ctx.Done():
			k.logger.Info(ctx, "kafka consumer stopping")
			return nil
		default:
		}

		switch e := k.client.Poll(int(k.pollTimeout.Milliseconds())).(type) {
		case nil:
		case *ckafka.Message:
			if err := k.deliver(ctx, e); err != nil {
				if ctx.Err() != nil {
					k.logger.Info(ctx, "kafka consumer stopping")
					return nil
				}
				return fmt.Errorf("%w: %w", ErrConsumer, err)
			}
		case ckafka.Error:
			metrics.RecordErrorByComponent("kafka", e.Code().String())
			if e.IsFatal() {
				k.logger.Error(ctx, "fatal kafka error", logger.Error(e))
				return fmt.Errorf("%w: %w", ErrConsumer, e)
			}
			k.logger.Warn(ctx, "kafka error", logger.Error(e))
		default:
			k.logger.Debug(ctx, "ignored kafka event", logger.String("event", e.String()))
		}
	}
}

// deliver submits one record, retrying while the queue is full. The offset
// is committed only once the record is queued or known to be a duplicate;
// any other outcome leaves it uncommitted for redelivery and is returned.
func (k *Consumer) deliver(ctx context.Context, km *ckafka.Message) error {
	msg := ToMessage(km, time.Now())
	for {
		err := k.submit.Submit(ctx, msg)
		if err == nil {
			break
		}
		if errors.Is(err, dedupe.ErrDuplicate) {
			k.logger.Debug(ctx, "redelivery skipped", logger.String("id", msg.ID))
			break
		}
		if !errors.Is(err, queue.ErrFull) {
			k.logger.Warn(ctx, "message not submitted", logger.String("id", msg.ID), logger.Error(err))
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(k.backoff):
		}
	}
	if _, err := k.client.CommitMessage(km); err != nil {
		metrics.RecordErrorByComponent("kafka", "commit")
		k.logger.Warn(ctx, "offset commit failed", logger.String("id", msg.ID), logger.Error(err))
	}
	return nil
}

// Close leaves the group and releases the client.
func (k *Consumer) Close() error {
	return k.client.Close()
}

// ToMessage converts a Kafka record. The id is taken from the message_id or
// ce_id header, falling back to topic/partition@offset.
func ToMessage(km *ckafka.Message, receivedAt time.Time) model.Message {
	attrs := make(map[string]string, len(km.Headers)+1)
	for _, h := range km.Headers {
		attrs[h.Key] = string(h.Value)
	}
	if len(km.Key) > 0 {
		attrs["key"] = string(km.Key)
	}

	id := attrs[headerMessageID]
	if id == "" {
		id = attrs[headerCEID]
	}
	if id == "" {
		id = recordID(km.TopicPartition)
	}

	if !km.Timestamp.IsZero() {
		receivedAt = km.Timestamp
	}
	return model.Message{
		ID:         id,
		Data:       km.Value,
		Attributes: attrs,
		ReceivedAt: receivedAt,
		Source:     model.SourceKafka,
	}
}

func recordID(tp ckafka.TopicPartition) string {
	topic := ""
	if tp.Topic != nil {
		topic = *tp.Topic
	}
	return fmt.Sprintf("%s/%d@%d", topic, tp.Partition, int64(tp.Offset))
}
