package publisher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/okian/matchpred/pkg/logger"
)

// result classifies one push response.
type result int

const (
	resultAccepted result = iota
	resultDuplicate
	resultThrottled
	resultFailed
)

// send posts one delivery and classifies the response.
func send(ctx context.Context, client *http.Client, url string, d Delivery) result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(d.Body))
	if err != nil {
		return resultFailed
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return resultFailed
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return resultAccepted
	case http.StatusOK:
		return resultDuplicate
	case http.StatusTooManyRequests:
		return resultThrottled
	default:
		return resultFailed
	}
}

// submit sends deliveries concurrently and fills the send counters of stats.
func submit(ctx context.Context, cfg *Config, client *http.Client, deliveries []Delivery, stats *Stats) {
	log := logger.Get().Named("publisher")
	url := cfg.BaseURL + cfg.Endpoint

	var accepted, duplicate, throttled, failed atomic.Int64

	ch := make(chan Delivery, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range ch {
				r := send(ctx, client, url, d)
				switch r {
				case resultAccepted:
					accepted.Add(1)
				case resultDuplicate:
					duplicate.Add(1)
				case resultThrottled:
					throttled.Add(1)
				default:
					failed.Add(1)
				}
				if cfg.Verbose {
					log.Info(ctx, "delivery sent", logger.String("id", d.ID), logger.Int("result", int(r)))
				}
			}
		}()
	}

	sent := 0
feed:
	for _, d := range deliveries {
		select {
		case <-ctx.Done():
			break feed
		case ch <- d:
			sent++
		}
	}
	close(ch)
	wg.Wait()

	stats.Sent = sent
	stats.Accepted = int(accepted.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Throttled = int(throttled.Load())
	stats.Failed = int(failed.Load())
}

// checkHealth verifies the adapter answers /healthz with 200.
func checkHealth(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}
