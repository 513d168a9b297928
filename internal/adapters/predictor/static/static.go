// Package static provides a predictor that returns a fixed score after a
// simulated model latency, for local runs without a serving endpoint.
package static

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/matchpred/internal/domain/feature"
)

const (
	defaultScore      = 0.5
	defaultMinLatency = 80 * time.Millisecond
	defaultMaxLatency = 150 * time.Millisecond
	defaultRandomSeed = 42
)

// Option applies a configuration option to the Predictor.
type Option func(*Predictor)

// WithScore sets the returned score.
func WithScore(score float64) Option {
	return func(p *Predictor) {
		p.score = score
	}
}

// WithLatencyRange sets the simulated latency range. A zero range disables
// the delay.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(p *Predictor) {
		if minLatency >= 0 && maxLatency >= minLatency {
			p.minLatency = minLatency
			p.maxLatency = maxLatency
		}
	}
}

// WithScoreFunc derives the score from the vector instead of a constant.
func WithScoreFunc(fn func(feature.Vector) float64) Option {
	return func(p *Predictor) {
		p.scoreFn = fn
	}
}

// Predictor implements prediction.Predictor without a remote call.
type Predictor struct {
	score   float64
	scoreFn func(feature.Vector) float64
	// Simulated latency range
	minLatency time.Duration
	maxLatency time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a static predictor.
func New(opts ...Option) *Predictor {
	p := &Predictor{
		score:      defaultScore,
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		rng:        rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible runs
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Predict waits the simulated latency, then returns the configured score.
func (p *Predictor) Predict(ctx context.Context, v feature.Vector) (float64, error) {
	if latency := p.latency(); latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}
	if p.scoreFn != nil {
		return p.scoreFn(v), nil
	}
	return p.score, nil
}

func (p *Predictor) latency() time.Duration {
	span := p.maxLatency - p.minLatency
	if span <= 0 {
		return p.minLatency
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.minLatency + time.Duration(p.rng.Int63n(int64(span)))
}
