package apiserver

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"github.com/moolen/kubediagnose/internal/api/handlers"
	"github.com/moolen/kubediagnose/internal/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const mcpEndpointPath = "/v1/mcp"

// registerHandlers registers all HTTP handlers
func (s *Server) registerHandlers() {
	handlers.RegisterHandlers(
		s.router,
		s.diagnoser,
		logging.GetLogger("api"),
		s.getTracer("kubediagnose.api"),
		s.withMethod,
	)

	s.registerHealthEndpoints()
	s.registerMetricsEndpoint()
	s.registerMCPHandler()
}

// registerHealthEndpoints registers health and readiness check endpoints
func (s *Server) registerHealthEndpoints() {
	s.router.HandleFunc("/health", s.withMethod(http.MethodGet, "/health", s.handleHealth))
	s.router.HandleFunc("/ready", s.withMethod(http.MethodGet, "/ready", s.handleReady))
}

// registerMetricsEndpoint exposes the prometheus registry
func (s *Server) registerMetricsEndpoint() {
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

// registerMCPHandler adds the MCP endpoint to the router
func (s *Server) registerMCPHandler() {
	if s.mcpServer == nil {
		s.logger.Debug("MCP server not configured, skipping %s endpoint", mcpEndpointPath)
		return
	}

	streamableServer := server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithEndpointPath(mcpEndpointPath),
		server.WithStateLess(true),
	)
	s.router.Handle(mcpEndpointPath, streamableServer)
	s.logger.Info("MCP endpoint registered at %s", mcpEndpointPath)
}
