package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultAddr is the loopback address the API listens on.
const DefaultAddr = "127.0.0.1:7421"

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Server runs the API over HTTP.
type Server struct {
	api            *Handler
	addr           string
	allowedOrigins []string
	registry       *prometheus.Registry
	metrics        *Metrics
	health         *HealthChecker
	logger         *slog.Logger

	server *http.Server
	stop   context.CancelFunc
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithAddr sets the listen address. Default is DefaultAddr.
func WithAddr(addr string) ServerOption {
	return func(s *Server) { s.addr = addr }
}

// WithAllowedOrigins sets the Origin values accepted from browser clients.
// When empty, every request carrying an Origin header is rejected.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) { s.allowedOrigins = origins }
}

// WithRegistry sets the Prometheus registry served on /metrics and used for
// the request metrics.
func WithRegistry(reg *prometheus.Registry) ServerOption {
	return func(s *Server) { s.registry = reg }
}

// WithHealthChecker sets the checker behind /healthz.
func WithHealthChecker(hc *HealthChecker) ServerOption {
	return func(s *Server) { s.health = hc }
}

// WithServerLogger sets the server logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a server for the given API handler.
func NewServer(api *Handler, opts ...ServerOption) *Server {
	s := &Server{
		api:    api,
		addr:   DefaultAddr,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if s.health == nil {
		s.health = NewHealthChecker(nil, nil, "")
	}
	s.metrics = NewMetrics(s.registry)
	return s
}

// Handler builds the full route tree with middleware.
// Order (outermost first): metrics, request id, origin check, API routes.
func (s *Server) Handler() http.Handler {
	var apiHandler http.Handler = s.api.Routes()
	apiHandler = DNSRebindingProtection(s.allowedOrigins)(apiHandler)
	apiHandler = RequestIDMiddleware(s.logger)(apiHandler)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("GET /healthz", s.health.Handler())
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		Registry: s.registry,
	}))

	return MetricsMiddleware(s.metrics)(mux)
}

// Start listens and serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled. Open event streams are ended
// before the graceful shutdown so it does not wait on them.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	baseCtx, stop := context.WithCancel(context.Background())
	s.stop = stop
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "addr", ln.Addr().String())
		err := s.server.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down API server")
		return s.shutdown()
	case err := <-errCh:
		stop()
		return err
	}
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.stop()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("error during server shutdown", "error", err)
		return err
	}
	s.logger.Info("API server shutdown complete")
	return nil
}
