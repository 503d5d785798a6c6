// Package service runs the relay listener and the ops listener and manages
// their lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/okian/flightrelay/internal/adapters/http/api"
	"github.com/okian/flightrelay/internal/adapters/http/ops"
	"github.com/okian/flightrelay/internal/adapters/http/swagger"
	"github.com/okian/flightrelay/internal/adapters/upstream"
	"github.com/okian/flightrelay/pkg/logger"
)

// HTTP server timeouts.
const (
	readTimeout         = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	idleTimeout         = 60 * time.Second
	readHeaderTimeout   = 5 * time.Second
)

// Service owns the relay server and the optional ops server.
type Service struct {
	mu sync.RWMutex

	// Core components
	forwarder upstream.Forwarder
	apiOpts   []api.Option

	// Configuration
	relayAddr    string
	opsAddr      string
	writeTimeout time.Duration

	// State
	relay     *http.Server
	ops       *http.Server
	relayLn   net.Listener
	opsLn     net.Listener
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithForwarder sets the upstream the relay forwards to.
func WithForwarder(fwd upstream.Forwarder) Option {
	return func(s *Service) {
		s.forwarder = fwd
	}
}

// WithRelayAddr sets the relay listen address.
func WithRelayAddr(addr string) Option {
	return func(s *Service) {
		if addr != "" {
			s.relayAddr = addr
		}
	}
}

// WithOpsAddr sets the ops listen address. Empty disables the ops listener.
func WithOpsAddr(addr string) Option {
	return func(s *Service) {
		s.opsAddr = addr
	}
}

// WithWriteTimeout bounds how long the relay may take to answer. It should
// exceed the upstream timeout; zero disables it.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout >= 0 {
			s.writeTimeout = timeout
		}
	}
}

// WithAPIOptions passes options through to the relay server.
func WithAPIOptions(opts ...api.Option) Option {
	return func(s *Service) {
		s.apiOpts = append(s.apiOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		relayAddr:    ":8080",
		writeTimeout: defaultWriteTimeout,
		logger:       nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start binds the listeners and serves in the background. It returns once
// both listeners accept connections.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.forwarder == nil {
		return ErrNoForwarder
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	relayLn, err := net.Listen("tcp", s.relayAddr)
	if err != nil {
		return fmt.Errorf("%w: relay %s: %w", ErrListen, s.relayAddr, err)
	}

	apiOpts := append([]api.Option{api.WithLogger(s.logger.Named("relay"))}, s.apiOpts...)
	s.relay = &http.Server{
		Handler:           api.NewServer(s.forwarder, apiOpts...).Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      s.writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.relayLn = relayLn

	if s.opsAddr != "" {
		opsLn, err := net.Listen("tcp", s.opsAddr)
		if err != nil {
			_ = relayLn.Close()
			return fmt.Errorf("%w: ops %s: %w", ErrListen, s.opsAddr, err)
		}
		s.ops = &http.Server{
			Handler:           s.opsMux(ctx),
			ReadTimeout:       readTimeout,
			WriteTimeout:      defaultWriteTimeout,
			IdleTimeout:       idleTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
		}
		s.opsLn = opsLn
		go s.serve(ctx, "ops", s.ops, opsLn)
	}
	go s.serve(ctx, "relay", s.relay, relayLn)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "relay service started",
		logger.String("relayAddr", relayLn.Addr().String()),
		logger.String("opsAddr", s.opsAddrLocked()),
		logger.String("upstream", s.upstreamURL()),
	)

	return nil
}

func (s *Service) opsMux(ctx context.Context) *http.ServeMux {
	mux := http.NewServeMux()
	ops.Register(ctx, mux, ops.NewHealthHandler(s.upstreamURL()))
	swagger.Register(ctx, mux)
	return mux
}

func (s *Service) serve(ctx context.Context, name string, srv *http.Server, ln net.Listener) {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error(ctx, "server failed", logger.String("server", name), logger.Error(err))
	}
}

// Stop gracefully shuts down both servers, waiting for in-flight requests
// until ctx is done.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping relay service...")

	var errs []error
	if err := s.relay.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("relay shutdown: %w", err))
	}
	if s.ops != nil {
		if err := s.ops.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("ops shutdown: %w", err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "relay service stopped")
	return errors.Join(errs...)
}

// RelayAddr returns the bound relay address, or "" before Start.
func (s *Service) RelayAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.relayLn == nil {
		return ""
	}
	return s.relayLn.Addr().String()
}

// OpsAddr returns the bound ops address, or "" when disabled or before Start.
func (s *Service) OpsAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opsAddrLocked()
}

func (s *Service) opsAddrLocked() string {
	if s.opsLn == nil {
		return ""
	}
	return s.opsLn.Addr().String()
}

func (s *Service) upstreamURL() string {
	if u, ok := s.forwarder.(interface{ URL() string }); ok {
		return u.URL()
	}
	return ""
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":   s.started,
		"relayAddr": s.relayAddr,
		"opsAddr":   s.opsAddr,
	}
	if s.forwarder != nil {
		stats["upstream"] = s.upstreamURL()
	}
	if s.started {
		stats["uptime"] = time.Since(s.startedAt).Round(time.Second).String()
	}

	return stats
}
