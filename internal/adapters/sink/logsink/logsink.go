// Package logsink writes audit rows to the structured log. It is the sink
// for local runs without an analytical store.
package logsink

import (
	"context"
	"sync/atomic"

	"github.com/okian/matchpred/internal/domain/audit"
	"github.com/okian/matchpred/pkg/logger"
)

// Sink logs every row as one entry.
type Sink struct {
	log   logger.Logger
	count atomic.Int64
}

// New creates a log sink. A nil logger discards rows.
func New(log logger.Logger) *Sink {
	if log == nil {
		log = logger.NewNop()
	}
	return &Sink{log: log.Named("audit")}
}

// Append logs row. It never fails.
func (s *Sink) Append(ctx context.Context, row audit.Row) error { //nolint:gocritic // hugeParam: audit.Sink contract
	s.count.Add(1)
	fields := []logger.Field{
		logger.String("ingest_ts", row.IngestTS),
		logger.String("endpoint", row.Endpoint),
		logger.Any("match_id", row.MatchID),
		logger.Any("model_score", row.ModelScore),
		logger.Any("model_prediction", row.ModelPrediction),
		logger.Any("raw_request", row.RawRequest),
	}
	if row.Failed() {
		s.log.Warn(ctx, "audit row", append(fields, logger.String("row_error", *row.Error))...)
		return nil
	}
	s.log.Info(ctx, "audit row", fields...)
	return nil
}

// Count is the number of rows written.
func (s *Sink) Count() int64 { return s.count.Load() }
