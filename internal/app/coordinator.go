package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/matchpred/internal/domain/audit"
	"github.com/okian/matchpred/internal/domain/envelope"
	"github.com/okian/matchpred/internal/domain/feature"
	"github.com/okian/matchpred/internal/domain/model"
	"github.com/okian/matchpred/internal/domain/normalize"
	"github.com/okian/matchpred/internal/domain/prediction"
	"github.com/okian/matchpred/pkg/logger"
	"github.com/okian/matchpred/pkg/metrics"
)

// State is a stage of one pipeline invocation.
type State string

// Pipeline states. RECORDED, REJECTED and FAILED are terminal.
const (
	StateDecoding   State = "DECODING"
	StateExtracting State = "EXTRACTING"
	StateValidating State = "VALIDATING"
	StatePredicting State = "PREDICTING"
	StateRecorded   State = "RECORDED"
	StateRejected   State = "REJECTED"
	StateFailed     State = "FAILED"
)

// Outcome describes how an invocation ended. Row is the audit row that was
// appended (or attempted); Cause is the pipeline error recorded in it, if any.
type Outcome struct {
	State State
	Row   audit.Row
	Cause error
}

// Coordinator runs the prediction pipeline for one message at a time and
// appends exactly one audit row per invocation. It is safe for concurrent
// use: all shared state is read-only.
type Coordinator struct {
	schema    *feature.Schema
	predictor prediction.Predictor
	sink      audit.Sink
	endpoint  string
	now       func() time.Time
	logger    logger.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithEndpoint sets the model endpoint id written to audit rows.
func WithEndpoint(id string) CoordinatorOption {
	return func(c *Coordinator) {
		if id != "" {
			c.endpoint = id
		}
	}
}

// WithClock overrides the time source for ingest timestamps.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCoordinatorLogger sets the logger.
func WithCoordinatorLogger(l logger.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCoordinator builds a Coordinator.
func NewCoordinator(schema *feature.Schema, predictor prediction.Predictor, sink audit.Sink, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		schema:    schema,
		predictor: predictor,
		sink:      sink,
		endpoint:  "unknown",
		now:       time.Now,
		logger:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("coordinator")
	return c
}

// HandleMessage implements the worker handler contract.
func (c *Coordinator) HandleMessage(ctx context.Context, msg model.Message) error { //nolint:gocritic // hugeParam: messages are passed by value
	_, err := c.Handle(ctx, msg)
	return err
}

// Handle runs one invocation. Pipeline failures end up in the audit row and
// in Outcome.Cause; the returned error is only set when the row could not be
// appended. A panic anywhere in the pipeline becomes a FAILED row.
func (c *Coordinator) Handle(ctx context.Context, msg model.Message) (out Outcome, err error) { //nolint:gocritic // hugeParam: messages are passed by value
	start := time.Now()
	state := StateDecoding
	attempted := false

	defer func() {
		if r := recover(); r != nil {
			cause := fmt.Errorf("%w: %v", ErrPipelinePanic, r)
			c.logger.Error(ctx, "pipeline panic", logger.String("state", string(state)), logger.Any("panic", r))
			out = Outcome{State: StateFailed, Row: audit.NewFailureRow(c.now(), c.endpoint, cause), Cause: cause}
			if attempted {
				// the sink itself panicked; a second write is never attempted
				err = fmt.Errorf("%w: %w", ErrRecordFailed, cause)
			} else {
				err = c.record(ctx, out.Row)
			}
		}
		metrics.RecordOutcome(string(out.State), float64(time.Since(start).Milliseconds()))
		c.logOutcome(ctx, out, err)
	}()

	payload, derr := envelope.Decode(msg.Data)
	if derr != nil {
		out = Outcome{State: StateFailed, Row: audit.NewFailureRow(c.now(), c.endpoint, derr), Cause: derr}
		attempted = true
		return out, c.record(ctx, out.Row)
	}

	state = StateExtracting
	raw := normalize.PickInstance(payload)
	inst := normalize.Prepare(c.schema, raw)

	state = StateValidating
	vec, verr := normalize.Validate(c.schema, inst)
	if verr != nil {
		out = Outcome{State: StateRejected, Row: audit.NewRejectRow(c.now(), c.endpoint, payload, verr), Cause: verr}
		attempted = true
		return out, c.record(ctx, out.Row)
	}

	state = StatePredicting
	score, perr := c.predict(ctx, vec)
	if perr != nil {
		out = Outcome{State: StateRecorded, Row: audit.NewPredictErrorRow(c.now(), c.endpoint, payload, raw, perr), Cause: perr}
	} else {
		out = Outcome{State: StateRecorded, Row: audit.NewSuccessRow(c.now(), c.endpoint, payload, raw, score)}
		metrics.RecordDecision(audit.Decide(score))
	}
	attempted = true
	return out, c.record(ctx, out.Row)
}

func (c *Coordinator) predict(ctx context.Context, vec feature.Vector) (float64, error) {
	start := time.Now()
	score, err := c.predictor.Predict(ctx, vec)
	metrics.RecordPredictionLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordPredictionError()
		metrics.RecordErrorByComponent("predictor", errorType(err))
		return 0, err
	}
	return score, nil
}

// record appends row once. Failures are returned, never retried.
func (c *Coordinator) record(ctx context.Context, row audit.Row) error { //nolint:gocritic // hugeParam: rows are immutable values
	start := time.Now()
	err := c.sink.Append(ctx, row)
	metrics.RecordSinkLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordSinkError()
		metrics.RecordErrorByComponent("sink", "append")
		return fmt.Errorf("%w: %w", ErrRecordFailed, err)
	}
	return nil
}

func (c *Coordinator) logOutcome(ctx context.Context, out Outcome, err error) { //nolint:gocritic // hugeParam: read-only
	fields := []logger.Field{logger.String("state", string(out.State))}
	if out.Row.MatchID != nil {
		fields = append(fields, logger.String("match_id", *out.Row.MatchID))
	}
	if out.Row.ModelScore != nil {
		fields = append(fields, logger.Float64("score", *out.Row.ModelScore))
	}
	if out.Cause != nil {
		fields = append(fields, logger.String("cause", out.Cause.Error()))
	}

	switch {
	case err != nil:
		c.logger.Error(ctx, "audit row not recorded", append(fields, logger.Error(err))...)
	case out.State == StateRecorded && out.Cause == nil:
		c.logger.Info(ctx, "prediction recorded", fields...)
	default:
		c.logger.Warn(ctx, "invocation recorded with error", fields...)
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, prediction.ErrUnusableResponse):
		return "unusable_response"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "call_failed"
	}
}
