// Package audit builds the immutable rows recorded for every prediction
// attempt and defines the sink they are appended to.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/okian/matchpred/internal/domain/feature"
)

// DecisionThreshold is the score at or above which the prediction is true.
const DecisionThreshold = 0.5

// TimestampLayout renders ingest_ts in UTC with microseconds.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Row is one audit record. Nil pointers are written as null. A row carries
// either a score and prediction or an error, never both.
type Row struct {
	IngestTS          string   `json:"ingest_ts"`
	MatchID           *string  `json:"match_id"`
	Yr                *string  `json:"yr"`
	Round             *string  `json:"round"`
	CountryA          *string  `json:"country_a"`
	CountryB          *string  `json:"country_b"`
	PlayerA           *string  `json:"player_a"`
	PlayerB           *string  `json:"player_b"`
	TournamentCountry *string  `json:"tournament_country"`
	Endpoint          string   `json:"endpoint"`
	ModelScore        *float64 `json:"model_score"`
	ModelPrediction   *bool    `json:"model_prediction"`
	RawRequest        *string  `json:"raw_request"`
	Error             *string  `json:"error"`
}

// Failed reports whether the row records an error.
func (r Row) Failed() bool { return r.Error != nil }

// Sink is an append-only row store.
type Sink interface {
	Append(ctx context.Context, row Row) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, row Row) error

// Append calls f.
func (f SinkFunc) Append(ctx context.Context, row Row) error { return f(ctx, row) }

// Decide applies the decision threshold.
func Decide(score float64) bool { return score >= DecisionThreshold }

// FormatTimestamp renders t as an ingest_ts value.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// NewSuccessRow records a scored request. instance is the feature object
// as received, before normalization.
func NewSuccessRow(at time.Time, endpoint string, payload, instance map[string]any, score float64) Row {
	r := withMetadata(at, endpoint, payload)
	pred := Decide(score)
	r.ModelScore = &score
	r.ModelPrediction = &pred
	r.RawRequest = encode(instance)
	return r
}

// NewPredictErrorRow records a valid request whose model call failed.
func NewPredictErrorRow(at time.Time, endpoint string, payload, instance map[string]any, err error) Row {
	r := withMetadata(at, endpoint, payload)
	r.RawRequest = encode(instance)
	r.Error = text("predict error: " + err.Error())
	return r
}

// NewRejectRow records a request that failed validation. The whole decoded
// payload is kept for replay.
func NewRejectRow(at time.Time, endpoint string, payload map[string]any, err error) Row {
	r := withMetadata(at, endpoint, payload)
	r.RawRequest = encode(payload)
	r.Error = text(err.Error())
	return r
}

// NewFailureRow records an invocation that failed before or outside the
// pipeline. Nothing from the request is kept.
func NewFailureRow(at time.Time, endpoint string, err error) Row {
	return Row{
		IngestTS: FormatTimestamp(at),
		Endpoint: endpoint,
		Error:    text(err.Error()),
	}
}

// withMetadata copies the descriptive columns from the top level of the
// decoded payload.
func withMetadata(at time.Time, endpoint string, payload map[string]any) Row {
	return Row{
		IngestTS:          FormatTimestamp(at),
		MatchID:           column(payload, "match_id"),
		Yr:                column(payload, "yr"),
		Round:             column(payload, "round"),
		CountryA:          column(payload, "country_a"),
		CountryB:          column(payload, "country_b"),
		PlayerA:           column(payload, "player_a"),
		PlayerB:           column(payload, "player_b"),
		TournamentCountry: column(payload, "tournament_country"),
		Endpoint:          endpoint,
	}
}

// column stringifies a payload field; absent and null give nil.
func column(payload map[string]any, key string) *string {
	v, ok := payload[key]
	if !ok || v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		return &s
	}
	return text(feature.FromAny(v).String())
}

func encode(v map[string]any) *string {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return text(string(b))
}

func text(s string) *string { return &s }
