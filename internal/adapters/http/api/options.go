package api

import (
	"github.com/okian/matchpred/internal/domain/feature"
	"github.com/okian/matchpred/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithSchema sets the schema used by the validate endpoint.
func WithSchema(s *feature.Schema) Option {
	return func(srv *Server) {
		if s != nil {
			srv.schema = s
		}
	}
}

// WithHealthCheck adds a named dependency check to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(srv *Server) {
		if name != "" && check != nil {
			srv.checks[name] = check
		}
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(srv *Server) {
		if n > 0 {
			srv.maxBodyBytes = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(srv *Server) {
		if l != nil {
			srv.logger = l
		}
	}
}
