// Package api serves the relay: preflight, forward and method rejection,
// with the CORS header set on every response.
package api

import (
	"net/http"

	"github.com/okian/flightrelay/internal/adapters/upstream"
	"github.com/okian/flightrelay/pkg/logger"
)

// Defaults for Server options.
const (
	defaultAllowedOrigin   = "*"
	defaultPreflightMaxAge = 86400
	defaultMaxBodyBytes    = 1 << 20
)

// endpointRelay labels relay metrics.
const endpointRelay = "relay"

// Server wires the relay handler and its middleware.
type Server struct {
	upstream        upstream.Forwarder
	allowedOrigin   string
	preflightMaxAge int
	maxBodyBytes    int64
	logger          logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAllowedOrigin sets Access-Control-Allow-Origin.
func WithAllowedOrigin(origin string) Option {
	return func(s *Server) {
		if origin != "" {
			s.allowedOrigin = origin
		}
	}
}

// WithPreflightMaxAge sets Access-Control-Max-Age in seconds; 0 omits it.
func WithPreflightMaxAge(seconds int) Option {
	return func(s *Server) {
		if seconds >= 0 {
			s.preflightMaxAge = seconds
		}
	}
}

// WithMaxBodyBytes caps inbound bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a relay server forwarding to fwd.
func NewServer(fwd upstream.Forwarder, opts ...Option) *Server {
	s := &Server{
		upstream:        fwd,
		allowedOrigin:   defaultAllowedOrigin,
		preflightMaxAge: defaultPreflightMaxAge,
		maxBodyBytes:    defaultMaxBodyBytes,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the relay for every path. Outermost first: request id and
// access log, metrics, CORS, relay.
func (s *Server) Handler() http.Handler {
	var h http.Handler = NewRelayHandler(s.upstream, s.maxBodyBytes, s.logger)
	h = CORSMiddleware(h, s.allowedOrigin, s.preflightMaxAge)
	h = MetricsMiddleware(h, endpointRelay)
	return RequestMiddleware(h, s.logger)
}
