// Package api wires the HTTP surface: the push endpoint, a dry-run
// validator, health, stats and metrics.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/matchpred/internal/adapters/http/swagger"
	"github.com/okian/matchpred/internal/domain/feature"
	"github.com/okian/matchpred/internal/domain/model"
	"github.com/okian/matchpred/pkg/logger"
	"github.com/okian/matchpred/pkg/metrics"
)

const defaultMaxBodyBytes = 10 << 20

// Submitter hands a message to the pipeline. Implementations report
// duplicates with dedupe.ErrDuplicate and backpressure with queue.ErrFull.
type Submitter interface {
	Submit(ctx context.Context, msg model.Message) error
}

// Server wires HTTP routes for the adapter.
type Server struct {
	submitter    Submitter
	stats        StatsProvider
	schema       *feature.Schema
	checks       map[string]HealthCheck
	maxBodyBytes int64
	logger       logger.Logger
}

// NewServer creates a new API server.
func NewServer(submitter Submitter, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		submitter:    submitter,
		stats:        stats,
		schema:       feature.DefaultSchema(),
		checks:       make(map[string]HealthCheck),
		maxBodyBytes: defaultMaxBodyBytes,
		logger:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("http")
	return s
}

// Routes builds the router.
func (s *Server) Routes(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)

	r.Post("/push", s.HandlePush)
	r.Post("/validate", s.HandleValidate)
	r.Get("/healthz", s.HandleHealth)
	r.Get("/stats", s.HandleStats)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	swagger.Register(ctx, r)
	return r
}

type ackResponse struct {
	Status    string `json:"status"`
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
