// Package httppredictor calls a model serving endpoint over HTTP using the
// instances/predictions JSON contract.
package httppredictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/matchpred/internal/domain/feature"
	"github.com/okian/matchpred/internal/domain/prediction"
)

const (
	defaultTimeout = 10 * time.Second
	// maxErrorBody caps how much of a failed response is quoted in errors.
	maxErrorBody = 512
)

type request struct {
	Instances []feature.Vector `json:"instances"`
}

type response struct {
	Predictions []any `json:"predictions"`
}

// Client is a prediction.Predictor backed by an HTTP endpoint.
type Client struct {
	url     string
	http    *http.Client
	timeout time.Duration
	headers http.Header
}

// New builds a Client for url.
func New(url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, ErrNoURL
	}
	c := &Client{
		url:     url,
		http:    &http.Client{},
		timeout: defaultTimeout,
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Predict sends v as the single instance and reads the first prediction.
func (c *Client) Predict(ctx context.Context, v feature.Vector) (float64, error) {
	body, err := json.Marshal(request{Instances: []feature.Vector{v}})
	if err != nil {
		return 0, fmt.Errorf("%w: encode request: %w", prediction.ErrPredictFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", prediction.ErrPredictFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vals := range c.headers {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", prediction.ErrPredictFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return 0, fmt.Errorf("%w: status %d: %s", prediction.ErrPredictFailed, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out response
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: decode response: %w", prediction.ErrUnusableResponse, err)
	}
	return prediction.FirstScore(out.Predictions)
}
