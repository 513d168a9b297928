// Package service wires the prediction pipeline: redelivery dedupe, the
// bounded queue, the worker pool running the coordinator, and the optional
// Kafka intake.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/okian/matchpred/internal/adapters/mq/kafka"
	"github.com/okian/matchpred/internal/adapters/mq/queue"
	"github.com/okian/matchpred/internal/adapters/mq/worker"
	"github.com/okian/matchpred/internal/domain/audit"
	"github.com/okian/matchpred/internal/domain/dedupe"
	"github.com/okian/matchpred/internal/domain/feature"
	"github.com/okian/matchpred/internal/domain/model"
	"github.com/okian/matchpred/internal/domain/prediction"
	"github.com/okian/matchpred/pkg/logger"
	"github.com/okian/matchpred/pkg/metrics"
)

// pinger is implemented by components with a reachability check.
type pinger interface {
	Ping(ctx context.Context) error
}

// Service accepts messages and runs them through the pipeline.
type Service struct {
	mu sync.Mutex

	// Core components
	schema      *feature.Schema
	predictor   prediction.Predictor
	sink        audit.Sink
	deduper     dedupe.Deduper
	queue       *queue.InMemoryQueue
	pool        *worker.Pool
	coordinator *Coordinator

	// Kafka intake, when configured
	kafkaCfg     *kafka.Config
	kafkaOpts    []kafka.Option
	consumer     *kafka.Consumer
	stopConsumer context.CancelFunc
	consumerDone chan error

	// Configuration
	workerCount int
	queueSize   int
	endpoint    string

	// State
	started   bool
	accepting atomic.Bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of buffered messages.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDeduper replaces the default in-memory deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithEndpointID sets the model endpoint id written to audit rows.
func WithEndpointID(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.endpoint = id
		}
	}
}

// WithSchema overrides the feature schema.
func WithSchema(schema *feature.Schema) Option {
	return func(s *Service) {
		if schema != nil {
			s.schema = schema
		}
	}
}

// WithKafka starts a consumer for cfg.Topic when the service starts.
func WithKafka(cfg kafka.Config, opts ...kafka.Option) Option {
	return func(s *Service) {
		s.kafkaCfg = &cfg
		s.kafkaOpts = opts
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service around a predictor and an audit sink.
func New(predictor prediction.Predictor, sink audit.Sink, opts ...Option) *Service {
	s := &Service{
		schema:      feature.DefaultSchema(),
		predictor:   predictor,
		sink:        sink,
		workerCount: runtime.NumCPU() * 4,
		queueSize:   10_000,
		endpoint:    "unknown",
		logger:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper()
	}
	return s
}

// Start builds the queue and workers and begins accepting messages.
// Workers outlive ctx cancellation; Stop drains them.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting prediction service...")

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.coordinator = NewCoordinator(s.schema, s.predictor, s.sink,
		WithEndpoint(s.endpoint),
		WithCoordinatorLogger(s.logger),
	)
	s.pool = worker.NewPool(s.workerCount, s.queue, s.coordinator, s.logger)
	s.pool.Start(context.WithoutCancel(ctx))
	s.accepting.Store(true)

	if s.kafkaCfg != nil {
		consumer, err := kafka.New(*s.kafkaCfg, s, s.kafkaOpts...)
		if err != nil {
			s.accepting.Store(false)
			_ = s.pool.Shutdown(ctx)
			return fmt.Errorf("start kafka intake: %w", err)
		}
		cctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.consumer = consumer
		s.stopConsumer = cancel
		s.consumerDone = make(chan error, 1)
		go func() {
			err := consumer.Run(cctx)
			if err != nil {
				s.logger.Error(cctx, "kafka intake stopped", logger.Error(err))
			}
			s.consumerDone <- err
		}()
	}

	s.started = true
	s.logger.Info(ctx, "prediction service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.String("endpoint", s.endpoint),
		logger.Any("kafka", s.kafkaCfg != nil),
	)
	return nil
}

// Submit dedupes msg by source and id and enqueues it. It returns
// dedupe.ErrDuplicate for a redelivery, queue.ErrFull under backpressure,
// and ErrNotStarted or queue.ErrClosed when not accepting.
func (s *Service) Submit(ctx context.Context, msg model.Message) error { //nolint:gocritic // hugeParam: messages are passed by value
	if !s.accepting.Load() {
		return ErrNotStarted
	}
	metrics.RecordMessageReceived(string(msg.Source))

	key := msg.Key()
	if key != "" && s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordMessageDuplicate(string(msg.Source))
		s.logger.Debug(ctx, "duplicate message skipped", logger.String("key", key))
		return dedupe.ErrDuplicate
	}

	if err := s.queue.Enqueue(ctx, msg); err != nil {
		if key != "" {
			s.deduper.Unrecord(ctx, key)
		}
		return err
	}
	metrics.UpdateQueueSize(s.queue.Len())
	return nil
}

// Stop stops intake, drains the queue and closes owned components.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping prediction service...")

	var errs []error
	if s.consumer != nil {
		s.stopConsumer()
		select {
		case err := <-s.consumerDone:
			if err != nil {
				errs = append(errs, err)
			}
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("kafka intake: %w", ctx.Err()))
		}
		if err := s.consumer.Close(); err != nil {
			errs = append(errs, err)
		}
		s.consumer = nil
	}

	s.accepting.Store(false)
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	for _, c := range []any{s.predictor, s.sink, s.deduper} {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	s.started = false
	s.logger.Info(ctx, "prediction service stopped")
	return errors.Join(errs...)
}

// HealthChecks returns a probe per component that can report reachability.
func (s *Service) HealthChecks() map[string]func(context.Context) error {
	checks := make(map[string]func(context.Context) error)
	named := map[string]any{"predictor": s.predictor, "sink": s.sink, "dedupe": s.deduper}
	for name, c := range named {
		if p, ok := c.(pinger); ok {
			checks[name] = p.Ping
		}
	}
	checks["pipeline"] = func(context.Context) error {
		if !s.accepting.Load() {
			return ErrNotStarted
		}
		return nil
	}
	return checks
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := map[string]any{
		"started":     s.started,
		"endpoint":    s.endpoint,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.deduper.Size(),
		"kafka":       s.consumer != nil,
	}
	if s.started {
		queueLen := s.queue.Len()
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
