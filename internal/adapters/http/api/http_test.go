package api_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/matchpred/internal/adapters/http/api"
	"github.com/okian/matchpred/internal/adapters/mq/queue"
	"github.com/okian/matchpred/internal/domain/dedupe"
	"github.com/okian/matchpred/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// mockSubmitter records submissions and dedupes by id.
type mockSubmitter struct {
	mu   sync.Mutex
	got  []model.Message
	seen map[string]bool
	err  error
}

func (m *mockSubmitter) Submit(_ context.Context, msg model.Message) error { //nolint:gocritic // test double
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[msg.ID] {
		return dedupe.ErrDuplicate
	}
	m.seen[msg.ID] = true
	m.got = append(m.got, msg)
	return nil
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any {
	return m.stats
}

const matchJSON = `{
	"match_id": "m-1", "yr": 2024, "round": "QF",
	"country_a": "USA", "country_b": "CHN",
	"player_a": "A. Smith", "player_b": "L. Wang", "tournament_country": "SGP",
	"games": null, "games_tuples": null,
	"game_1_a": 11, "game_1_b": 9, "game_2_a": 9, "game_2_b": 11, "game_3_a": 11, "game_3_b": 5,
	"game_4_a": null, "game_4_b": null, "game_5_a": null, "game_5_b": null,
	"game_6_a": null, "game_6_b": null, "game_7_a": null, "game_7_b": null
}`

func pushBody(id string) string {
	data := base64.StdEncoding.EncodeToString([]byte(matchJSON))
	return `{"message":{"data":"` + data + `","messageId":"` + id + `","attributes":{"origin":"test"}},"subscription":"s"}`
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Push(t *testing.T) {
	Convey("Given the API server", t, func() {
		sub := &mockSubmitter{}
		h := api.NewServer(sub, &mockStatsProvider{}).Routes(context.Background())

		Convey("When a push delivery arrives", func() {
			w := serve(h, http.MethodPost, "/push", pushBody("msg-1"))

			Convey("Then it is accepted with the publisher's id", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				body := decode(w)
				So(body["status"], ShouldEqual, "accepted")
				So(body["id"], ShouldEqual, "msg-1")
				So(sub.got, ShouldHaveLength, 1)
				So(sub.got[0].Source, ShouldEqual, model.SourcePush)
				So(sub.got[0].Attributes["origin"], ShouldEqual, "test")
				So(string(sub.got[0].Data.([]byte)), ShouldEqual, pushBody("msg-1"))
			})

			Convey("And the same delivery arrives again", func() {
				w := serve(h, http.MethodPost, "/push", pushBody("msg-1"))

				Convey("Then it is acknowledged as a duplicate", func() {
					So(w.Code, ShouldEqual, http.StatusOK)
					So(decode(w)["duplicate"], ShouldEqual, true)
					So(sub.got, ShouldHaveLength, 1)
				})
			})
		})

		Convey("When the id only comes in the ce-id header", func() {
			req := httptest.NewRequest(http.MethodPost, "/push", strings.NewReader(matchJSON))
			req.Header.Set("ce-id", "ce-7")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then the header id is used", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(sub.got[0].ID, ShouldEqual, "ce-7")
			})
		})

		Convey("When the body is not JSON", func() {
			w := serve(h, http.MethodPost, "/push", "garbage")

			Convey("Then it is still accepted with a generated id", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(sub.got, ShouldHaveLength, 1)
				So(sub.got[0].ID, ShouldHaveLength, 36)
			})
		})

		Convey("When the queue is full", func() {
			sub.err = queue.ErrFull
			w := serve(h, http.MethodPost, "/push", pushBody("msg-2"))

			Convey("Then backpressure is signalled", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decode(w)["code"], ShouldEqual, "backpressure")
			})
		})

		Convey("When the pipeline is closed", func() {
			sub.err = queue.ErrClosed
			w := serve(h, http.MethodPost, "/push", pushBody("msg-3"))

			Convey("Then the service is unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When the wrong method is used", func() {
			w := serve(h, http.MethodGet, "/push", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestServer_Validate(t *testing.T) {
	Convey("Given the API server", t, func() {
		h := api.NewServer(&mockSubmitter{}, nil).Routes(context.Background())

		Convey("When a complete payload is validated", func() {
			w := serve(h, http.MethodPost, "/validate", pushBody("v-1"))

			Convey("Then the normalized vector is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["valid"], ShouldEqual, true)
				inst := body["instance"].(map[string]any)
				So(inst["total_points"], ShouldEqual, "56")
				So(inst["tight_games"], ShouldEqual, "2")
				So(inst["yr"], ShouldEqual, "2024")
			})
		})

		Convey("When features are missing", func() {
			w := serve(h, http.MethodPost, "/validate", `{"yr": "2024"}`)

			Convey("Then the missing names are listed", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				body := decode(w)
				So(body["valid"], ShouldEqual, false)
				So(body["error"], ShouldStartWith, "Missing features: ")
				So(body["missing"], ShouldNotBeEmpty)
			})
		})

		Convey("When the body is not an object", func() {
			w := serve(h, http.MethodPost, "/validate", `[1,2]`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "decode_error")
		})
	})
}

func TestServer_Operational(t *testing.T) {
	Convey("Given the API server with a failing dependency", t, func() {
		stats := &mockStatsProvider{stats: map[string]any{"queue_len": 3}}
		down := errors.New("dial tcp: connection refused")
		h := api.NewServer(&mockSubmitter{}, stats,
			api.WithHealthCheck("redis", func(context.Context) error { return down }),
			api.WithHealthCheck("sink", func(context.Context) error { return nil }),
		).Routes(context.Background())

		Convey("Then health reports the failing check", func() {
			w := serve(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			body := decode(w)
			So(body["status"], ShouldEqual, "degraded")
			So(body["checks"], ShouldResemble, map[string]any{"redis": down.Error(), "sink": "ok"})
		})

		Convey("Then stats are served", func() {
			w := serve(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["queue_len"], ShouldEqual, 3.0)
		})

		Convey("Then metrics are exposed", func() {
			_ = serve(h, http.MethodGet, "/stats", "")
			w := serve(h, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "matchpred_adapter_http_requests_total")
		})

		Convey("Then the OpenAPI document is served", func() {
			w := serve(h, http.MethodGet, "/openapi.yaml", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then unknown routes are not found", func() {
			w := serve(h, http.MethodGet, "/leaderboard", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given the API server without checks", t, func() {
		h := api.NewServer(&mockSubmitter{}, nil).Routes(context.Background())

		Convey("Then health is ok", func() {
			w := serve(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["status"], ShouldEqual, "ok")
		})
	})
}
