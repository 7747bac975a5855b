package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/moolen/kubediagnose/internal/diagnosis"
	"github.com/moolen/kubediagnose/internal/logging"
	"github.com/moolen/kubediagnose/internal/mcp"
	"github.com/spf13/cobra"
)

var (
	transportType   string
	httpAddr        string
	mcpEndpointPath string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server exposing the diagnosis tools
(debug_pod, debug_pods, debug_service, debug_services, list_namespaces).

Transports:
  - stdio: standard input/output, for subprocess-based MCP clients
  - http: streamable HTTP server (default)`,
	Run: runMCPServer,
}

func init() {
	mcpCmd.Flags().StringVar(&transportType, "transport", "http", "Transport type: http or stdio")
	mcpCmd.Flags().StringVar(&httpAddr, "http-addr", ":8082", "HTTP server address (host:port)")
	mcpCmd.Flags().StringVar(&mcpEndpointPath, "mcp-endpoint", "/v1/mcp", "HTTP endpoint path for MCP requests")

	addTracingFlags(mcpCmd)
}

func runMCPServer(cmd *cobra.Command, _ []string) {
	if transportType != "http" && transportType != "stdio" {
		HandleError(fmt.Errorf("invalid transport type: %s (must be 'http' or 'stdio')", transportType), "Configuration error")
	}

	a, err := newApp(cmd)
	HandleError(err, "Initialization error")
	logger := logging.GetLogger("mcp")

	applyTracingFlags(cmd, a.cfg)
	HandleError(a.cfg.Validate(), "Configuration error")
	tracingProvider, err := newTracingProvider(a.cfg)
	HandleError(err, "Tracing initialization error")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingProvider.Stop(ctx); err != nil {
			logger.Error("Error stopping tracing provider: %v", err)
		}
	}()

	service := a.diagnosisService(diagnosis.WithTracer(tracingProvider.Tracer("kubediagnose.diagnosis")))
	mcpServer := mcp.NewDiagnosisServer(service, Version).MCPServer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch transportType {
	case "http":
		if err := serveMCPHTTP(ctx, mcpServer, logger); err != nil {
			logger.Error("Server error: %v", err)
			HandleError(err, "MCP server error")
		}
	case "stdio":
		logger.Info("Starting stdio transport")
		if err := server.ServeStdio(mcpServer); err != nil {
			logger.Error("Stdio transport error: %v", err)
		}
	}

	logger.Info("Server stopped")
}

func serveMCPHTTP(ctx context.Context, mcpServer *server.MCPServer, logger *logging.Logger) error {
	endpointPath := mcpEndpointPath
	if endpointPath == "" {
		endpointPath = "/v1/mcp"
	} else if endpointPath[0] != '/' {
		endpointPath = "/" + endpointPath
	}

	logger.Info("Starting HTTP server on %s (endpoint: %s)", httpAddr, endpointPath)

	streamable := server.NewStreamableHTTPServer(
		mcpServer,
		server.WithEndpointPath(endpointPath),
		server.WithStateLess(true),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle(endpointPath, streamable)

	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
