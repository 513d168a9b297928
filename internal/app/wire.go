package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/matchpred/internal/adapters/mq/kafka"
	"github.com/okian/matchpred/internal/adapters/predictor/httppredictor"
	"github.com/okian/matchpred/internal/adapters/predictor/static"
	"github.com/okian/matchpred/internal/adapters/repository"
	"github.com/okian/matchpred/internal/adapters/sink/clickhouse"
	"github.com/okian/matchpred/internal/adapters/sink/logsink"
	"github.com/okian/matchpred/internal/config"
	"github.com/okian/matchpred/internal/domain/audit"
	"github.com/okian/matchpred/internal/domain/dedupe"
	"github.com/okian/matchpred/internal/domain/prediction"
	"github.com/okian/matchpred/pkg/logger"
)

// NewFromConfig builds the adapters selected by cfg and the Service around
// them. The returned service is not started.
func NewFromConfig(ctx context.Context, cfg *config.Config, log logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.NewNop()
	}

	predictor, err := newPredictor(cfg)
	if err != nil {
		return nil, err
	}
	sink, err := newSink(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	deduper, err := newDeduper(cfg, log)
	if err != nil {
		if closer, ok := sink.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		return nil, err
	}

	opts := []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithEndpointID(cfg.EndpointID),
		WithDeduper(deduper),
		WithLogger(log),
	}
	if cfg.KafkaEnabled {
		opts = append(opts, WithKafka(
			kafka.Config{
				BootstrapServers: cfg.KafkaBootstrapServers,
				Topic:            cfg.KafkaTopic,
				GroupID:          cfg.KafkaGroupID,
			},
			kafka.WithPollTimeout(cfg.KafkaPollTimeout()),
			kafka.WithLogger(log),
		))
	}
	return New(predictor, sink, opts...), nil
}

func newPredictor(cfg *config.Config) (prediction.Predictor, error) {
	switch cfg.Predictor {
	case config.PredictorHTTP:
		p, err := httppredictor.New(cfg.PredictURL, httppredictor.WithTimeout(cfg.PredictTimeout()))
		if err != nil {
			return nil, fmt.Errorf("http predictor: %w", err)
		}
		return p, nil
	case config.PredictorStatic:
		return static.New(
			static.WithScore(cfg.StaticScore),
			static.WithLatencyRange(
				time.Duration(cfg.ScoringLatencyMinMS)*time.Millisecond,
				time.Duration(cfg.ScoringLatencyMaxMS)*time.Millisecond,
			),
		), nil
	default:
		return nil, fmt.Errorf("%w: unknown predictor %q", config.ErrInvalidConfig, cfg.Predictor)
	}
}

func newSink(ctx context.Context, cfg *config.Config, log logger.Logger) (audit.Sink, error) {
	switch cfg.Sink {
	case config.SinkClickHouse:
		s, err := clickhouse.Open(ctx, cfg.ClickHouseDSN, clickhouse.WithTable(cfg.AuditTable))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureTable(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case config.SinkLog:
		return logsink.New(log), nil
	default:
		return nil, fmt.Errorf("%w: unknown sink %q", config.ErrInvalidConfig, cfg.Sink)
	}
}

func newDeduper(cfg *config.Config, log logger.Logger) (dedupe.Deduper, error) {
	if cfg.RedisURL != "" {
		client, err := repository.NewClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return repository.NewRedisDeduper(client,
			repository.WithTTL(cfg.DedupeTTL()),
			repository.WithLogger(log.Named("dedupe")),
		), nil
	}
	return dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(cfg.DedupeSize),
		dedupe.WithTTL(cfg.DedupeTTL()),
	), nil
}
