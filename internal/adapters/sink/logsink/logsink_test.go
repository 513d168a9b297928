package logsink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/matchpred/internal/adapters/sink/logsink"
	"github.com/okian/matchpred/internal/domain/audit"
	"github.com/okian/matchpred/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSink(t *testing.T) {
	Convey("Given a log sink over an observed core", t, func() {
		core, logs := observer.New(zapcore.DebugLevel)
		sink := logsink.New(logger.New(zap.New(core)))
		at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

		Convey("When a success row is appended", func() {
			row := audit.NewSuccessRow(at, "wtt-live", map[string]any{"match_id": "m-1"}, map[string]any{}, 0.7)
			So(sink.Append(context.Background(), row), ShouldBeNil)

			Convey("Then one info entry is written", func() {
				So(logs.Len(), ShouldEqual, 1)
				e := logs.All()[0]
				So(e.Level, ShouldEqual, zapcore.InfoLevel)
				So(e.LoggerName, ShouldEqual, "audit")
				So(e.ContextMap()["ingest_ts"], ShouldEqual, "2024-05-01T00:00:00.000000Z")
				So(sink.Count(), ShouldEqual, 1)
			})
		})

		Convey("When a failure row is appended", func() {
			row := audit.NewFailureRow(at, "wtt-live", errors.New("decoded payload is not a JSON object"))
			So(sink.Append(context.Background(), row), ShouldBeNil)

			Convey("Then a warning carries the row error", func() {
				So(logs.Len(), ShouldEqual, 1)
				e := logs.All()[0]
				So(e.Level, ShouldEqual, zapcore.WarnLevel)
				So(e.ContextMap()["row_error"], ShouldEqual, "decoded payload is not a JSON object")
			})
		})
	})

	Convey("Given a log sink without a logger", t, func() {
		sink := logsink.New(nil)

		Convey("Then rows are accepted", func() {
			So(sink.Append(context.Background(), audit.Row{}), ShouldBeNil)
			So(sink.Count(), ShouldEqual, 1)
		})
	})
}
