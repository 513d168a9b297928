package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/matchpred/internal/adapters/mq/kafka"
	"github.com/okian/matchpred/internal/adapters/mq/queue"
	"github.com/okian/matchpred/internal/adapters/sink/clickhouse"
	service "github.com/okian/matchpred/internal/app"
	"github.com/okian/matchpred/internal/config"
	"github.com/okian/matchpred/internal/domain/dedupe"
	"github.com/okian/matchpred/internal/domain/feature"
	"github.com/okian/matchpred/internal/domain/model"
	"github.com/okian/matchpred/internal/domain/prediction"
	"github.com/okian/matchpred/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// waitRows polls until the sink holds n rows or the deadline passes.
func waitRows(sink *recordingSink, n int) int {
	deadline := time.Now().Add(2 * time.Second)
	for {
		rows, _ := sink.snapshot()
		if len(rows) >= n || time.Now().After(deadline) {
			return len(rows)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		sink := &recordingSink{}
		svc := service.New(fixedScore(0.62), sink,
			service.WithWorkerCount(2),
			service.WithQueueSize(16),
			service.WithEndpointID("wtt-live"),
			service.WithLogger(logger.Get()),
		)
		ctx := context.Background()

		Convey("When a message is submitted before start", func() {
			err := svc.Submit(ctx, pushMessage("early", matchJSON))

			Convey("Then it is refused", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When the service is started", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			Convey("Then a submitted message is recorded", func() {
				So(svc.Submit(ctx, pushMessage("m-1", matchJSON)), ShouldBeNil)
				So(waitRows(sink, 1), ShouldEqual, 1)
				rows, _ := sink.snapshot()
				So(rows[0].Endpoint, ShouldEqual, "wtt-live")
				So(*rows[0].ModelPrediction, ShouldBeTrue)
			})

			Convey("Then a redelivery is dropped", func() {
				So(svc.Submit(ctx, pushMessage("m-2", matchJSON)), ShouldBeNil)
				err := svc.Submit(ctx, pushMessage("m-2", matchJSON))
				So(errors.Is(err, dedupe.ErrDuplicate), ShouldBeTrue)

				Convey("And the same id from another source is not", func() {
					msg := pushMessage("m-2", matchJSON)
					msg.Source = model.SourceKafka
					So(svc.Submit(ctx, msg), ShouldBeNil)
					So(waitRows(sink, 2), ShouldEqual, 2)
				})
			})

			Convey("Then messages without an id are never deduped", func() {
				msg := pushMessage("", matchJSON)
				So(svc.Submit(ctx, msg), ShouldBeNil)
				So(svc.Submit(ctx, msg), ShouldBeNil)
				So(waitRows(sink, 2), ShouldEqual, 2)
			})

			Convey("Then stats describe the running pipeline", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["endpoint"], ShouldEqual, "wtt-live")
				So(stats["queueLength"], ShouldEqual, 0)
				So(stats["kafka"], ShouldEqual, false)
			})

			Convey("Then the pipeline health check passes", func() {
				checks := svc.HealthChecks()
				So(checks["pipeline"](ctx), ShouldBeNil)
				_, hasSink := checks["sink"]
				So(hasSink, ShouldBeFalse)
			})
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given one worker blocked on the model and a queue of one", t, func() {
		sink := &recordingSink{}
		entered := make(chan struct{}, 4)
		release := make(chan struct{})
		p := prediction.PredictorFunc(func(context.Context, feature.Vector) (float64, error) {
			entered <- struct{}{}
			<-release
			return 0.7, nil
		})
		svc := service.New(p, sink, service.WithWorkerCount(1), service.WithQueueSize(1))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)

		So(svc.Submit(ctx, pushMessage("b-1", matchJSON)), ShouldBeNil)
		<-entered
		So(svc.Submit(ctx, pushMessage("b-2", matchJSON)), ShouldBeNil)

		Convey("When another message arrives", func() {
			err := svc.Submit(ctx, pushMessage("b-3", matchJSON))

			Convey("Then it is refused and can be redelivered later", func() {
				So(errors.Is(err, queue.ErrFull), ShouldBeTrue)

				close(release)
				So(waitRows(sink, 2), ShouldEqual, 2)
				So(svc.Submit(ctx, pushMessage("b-3", matchJSON)), ShouldBeNil)
				So(waitRows(sink, 3), ShouldEqual, 3)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_StopDrains(t *testing.T) {
	Convey("Given a started service with a slow model", t, func() {
		sink := &recordingSink{}
		var mu sync.Mutex
		calls := 0
		p := prediction.PredictorFunc(func(context.Context, feature.Vector) (float64, error) {
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			calls++
			mu.Unlock()
			return 0.3, nil
		})
		svc := service.New(p, sink, service.WithWorkerCount(2), service.WithQueueSize(64))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)

		for _, id := range []string{"d-1", "d-2", "d-3", "d-4", "d-5", "d-6", "d-7", "d-8"} {
			So(svc.Submit(ctx, pushMessage(id, matchJSON)), ShouldBeNil)
		}

		Convey("When it is stopped", func() {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			So(svc.Stop(stopCtx), ShouldBeNil)

			Convey("Then every accepted message was recorded", func() {
				rows, _ := sink.snapshot()
				So(rows, ShouldHaveLength, 8)
			})

			Convey("Then intake is closed", func() {
				err := svc.Submit(ctx, pushMessage("late", matchJSON))
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.HealthChecks()["pipeline"](ctx), ShouldNotBeNil)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Kafka(t *testing.T) {
	Convey("Given a service with a Kafka intake lacking a topic", t, func() {
		svc := service.New(fixedScore(0.5), &recordingSink{},
			service.WithKafka(kafka.Config{BootstrapServers: "localhost:9092"}),
		)

		Convey("Then start fails and intake stays closed", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, kafka.ErrNoTopic), ShouldBeTrue)
			err = svc.Submit(context.Background(), pushMessage("k-1", matchJSON))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})
}

func TestNewFromConfig(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		cfg := config.New()
		cfg.WorkerCount = 2
		cfg.ScoringLatencyMinMS = 0
		cfg.ScoringLatencyMaxMS = 0

		Convey("When the service is built and started", func() {
			svc, err := service.NewFromConfig(context.Background(), cfg, nil)
			So(err, ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)

			Convey("Then it accepts messages and stops cleanly", func() {
				So(svc.Submit(context.Background(), pushMessage("c-1", matchJSON)), ShouldBeNil)
				So(svc.GetStats()["endpoint"], ShouldEqual, "local")
				So(svc.Stop(context.Background()), ShouldBeNil)
			})
		})
	})

	Convey("Given invalid adapter settings", t, func() {
		Convey("Then a bad redis URL fails", func() {
			cfg := config.New()
			cfg.RedisURL = "http://nope"
			_, err := service.NewFromConfig(context.Background(), cfg, nil)
			So(err, ShouldNotBeNil)
		})

		Convey("Then an http predictor without URL fails", func() {
			cfg := config.New()
			cfg.Predictor = config.PredictorHTTP
			_, err := service.NewFromConfig(context.Background(), cfg, nil)
			So(err, ShouldNotBeNil)
		})

		Convey("Then a malformed audit table fails instead of falling back", func() {
			cfg := config.New()
			cfg.Sink = config.SinkClickHouse
			cfg.ClickHouseDSN = "clickhouse://127.0.0.1:1/default"
			cfg.AuditTable = "match predictions"
			_, err := service.NewFromConfig(context.Background(), cfg, nil)
			So(errors.Is(err, clickhouse.ErrTable), ShouldBeTrue)
		})

		Convey("Then an unknown sink fails", func() {
			cfg := config.New()
			cfg.Sink = "bigquery"
			_, err := service.NewFromConfig(context.Background(), cfg, nil)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
