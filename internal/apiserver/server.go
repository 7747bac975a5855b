package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/moolen/kubediagnose/internal/api"
	"github.com/moolen/kubediagnose/internal/api/handlers"
	"github.com/moolen/kubediagnose/internal/logging"
	"github.com/moolen/kubediagnose/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const readinessTimeout = 3 * time.Second

// ReadinessChecker reports whether the Kubernetes API is reachable
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

// TracerProvider hands out tracers for handler spans
type TracerProvider interface {
	Tracer(name string) trace.Tracer
	IsEnabled() bool
}

// Config holds the HTTP server settings
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// CORSOrigin is sent as Access-Control-Allow-Origin
	CORSOrigin string
}

// Server serves the diagnosis REST API, health probes, metrics and the MCP endpoint
type Server struct {
	cfg       Config
	server    *http.Server
	router    *http.ServeMux
	logger    *logging.Logger
	diagnoser handlers.Diagnoser
	readiness ReadinessChecker
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	tracing   TracerProvider
	mcpServer *server.MCPServer

	mu       sync.Mutex
	listener net.Listener
}

// Option customizes a Server
type Option func(*Server)

// WithMetrics records request metrics on m and exposes gatherer on /metrics
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithTracingProvider takes handler tracers from provider when it is enabled
func WithTracingProvider(provider TracerProvider) Option {
	return func(s *Server) { s.tracing = provider }
}

// WithMCPServer mounts the MCP server at /v1/mcp
func WithMCPServer(mcpServer *server.MCPServer) Option {
	return func(s *Server) { s.mcpServer = mcpServer }
}

// New creates an API server. Routes are registered immediately; the listener
// is opened by Start.
func New(cfg Config, diagnoser handlers.Diagnoser, readiness ReadinessChecker, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		router:    http.NewServeMux(),
		logger:    logging.GetLogger("server"),
		diagnoser: diagnoser,
		readiness: readiness,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}

	s.registerHandlers()
	s.configureHTTPServer()
	return s
}

// configureHTTPServer creates the HTTP server with the middleware chain and timeouts
func (s *Server) configureHTTPServer() {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
}

// Handler returns the router wrapped in the request-ID and CORS middleware
func (s *Server) Handler() http.Handler {
	return s.requestIDMiddleware(s.corsMiddleware(s.router))
}

// Start implements the lifecycle.Component interface. The port is bound
// before returning so address conflicts fail startup.
func (s *Server) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	lis, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	s.mu.Lock()
	s.listener = lis
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error: %v", err)
		}
	}()

	s.logger.Info("API server listening on %s", lis.Addr())
	return nil
}

// Stop implements the lifecycle.Component interface
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")

	done := make(chan error, 1)
	go func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- s.server.Shutdown(shutdownCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.logger.Error("HTTP server shutdown error: %v", err)
			return err
		}
		s.logger.Info("API server stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("API server shutdown timeout")
		return ctx.Err()
	}
}

// Name implements the lifecycle.Component interface
func (s *Server) Name() string {
	return "API Server"
}

// Addr returns the bound address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// handleHealth handles liveness requests
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = api.WriteResult(w, map[string]interface{}{"status": "healthy"})
}

// handleReady reports ready once the Kubernetes API answers
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{"ready": true}
	status := http.StatusOK

	if s.readiness != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := s.readiness.Ping(ctx); err != nil {
			s.logger.WithContext(ctx).Warn("Readiness check failed: %v", err)
			response = map[string]interface{}{"ready": false, "error": err.Error()}
			status = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = api.WriteJSON(w, response)
}

// getTracer returns a tracer for the given name
func (s *Server) getTracer(name string) trace.Tracer {
	if s.tracing != nil && s.tracing.IsEnabled() {
		return s.tracing.Tracer(name)
	}
	return otel.GetTracerProvider().Tracer(name)
}
