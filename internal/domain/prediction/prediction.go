// Package prediction defines the model-serving contract and how a scalar
// score is read out of the shapes endpoints return.
package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/matchpred/internal/domain/feature"
)

// Predictor scores one finalized feature vector.
type Predictor interface {
	// Predict returns the model score for v, honoring ctx for cancellation.
	Predict(ctx context.Context, v feature.Vector) (float64, error)
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(ctx context.Context, v feature.Vector) (float64, error)

// Predict calls f.
func (f PredictorFunc) Predict(ctx context.Context, v feature.Vector) (float64, error) {
	return f(ctx, v)
}

// FirstScore reads the score of the first prediction in a response. An
// empty prediction list is unusable.
func FirstScore(predictions []any) (float64, error) {
	if len(predictions) == 0 {
		return 0, fmt.Errorf("%w: no predictions", ErrUnusableResponse)
	}
	return ExtractScore(predictions[0])
}

// ExtractScore reads a scalar score from one prediction. Accepted shapes,
// in order: {"scores": [s, ...]}, {"score": s}, [s, ...], and a bare
// scalar s. s may be a number or numeric text.
func ExtractScore(p any) (float64, error) {
	switch t := p.(type) {
	case map[string]any:
		if scores, ok := t["scores"].([]any); ok && len(scores) > 0 {
			return scalar(scores[0])
		}
		if s, ok := t["score"]; ok {
			return scalar(s)
		}
		return 0, fmt.Errorf("%w: object without score", ErrUnusableResponse)
	case []any:
		if len(t) == 0 {
			return 0, fmt.Errorf("%w: empty list", ErrUnusableResponse)
		}
		return scalar(t[0])
	default:
		return scalar(p)
	}
}

func scalar(v any) (float64, error) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrUnusableResponse, err)
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrUnusableResponse, t)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: unexpected %T", ErrUnusableResponse, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: non-finite score", ErrUnusableResponse)
	}
	return f, nil
}
