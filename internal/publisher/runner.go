package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/matchpred/pkg/logger"
)

// Run checks the adapter, builds deliveries from files or the generator,
// and submits them.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	applyDefaults(cfg)
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("publisher")

	log.Info(ctx, "starting publish run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("files", len(cfg.Files)),
		logger.Int("workers", cfg.Workers),
		logger.Int("repeat", cfg.Repeat))

	client := &http.Client{Timeout: cfg.Timeout}
	if err := checkHealth(ctx, client, cfg.BaseURL); err != nil {
		return nil, err
	}

	payloads, err := loadPayloads(cfg)
	if err != nil {
		return nil, err
	}
	stats.Payloads = len(payloads)

	deliveries := make([]Delivery, 0, len(payloads)*cfg.Repeat)
	for _, p := range payloads {
		d, err := Wrap(p)
		if err != nil {
			return nil, err
		}
		for i := 0; i < cfg.Repeat; i++ {
			deliveries = append(deliveries, d)
		}
	}

	submit(ctx, cfg, client, deliveries, stats)
	stats.Duration = time.Since(stats.StartTime)

	log.Info(ctx, "publish run completed",
		logger.Int("payloads", stats.Payloads),
		logger.Int("sent", stats.Sent),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("throttled", stats.Throttled),
		logger.Int("failed", stats.Failed),
		logger.String("duration", stats.Duration.String()))
	return stats, ctx.Err()
}

func applyDefaults(cfg *Config) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Count <= 0 {
		cfg.Count = DefaultCount
	}
	if cfg.Repeat <= 0 {
		cfg.Repeat = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
}

func loadPayloads(cfg *Config) ([][]byte, error) {
	if len(cfg.Files) > 0 {
		var out [][]byte
		for _, f := range cfg.Files {
			items, err := LoadFile(f)
			if err != nil {
				return nil, err
			}
			out = append(out, items...)
		}
		return out, nil
	}

	gen := NewGenerator(cfg.Seed)
	out := make([][]byte, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		b, err := json.Marshal(gen.Match(i))
		if err != nil {
			return nil, fmt.Errorf("marshal synthetic match: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}
