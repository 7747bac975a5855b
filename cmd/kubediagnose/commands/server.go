package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moolen/kubediagnose/internal/apiserver"
	"github.com/moolen/kubediagnose/internal/config"
	"github.com/moolen/kubediagnose/internal/diagnosis"
	"github.com/moolen/kubediagnose/internal/lifecycle"
	"github.com/moolen/kubediagnose/internal/logging"
	"github.com/moolen/kubediagnose/internal/mcp"
	"github.com/moolen/kubediagnose/internal/tracing"
	"github.com/spf13/cobra"
)

var (
	apiPort            int
	corsOrigin         string
	tracingEnabled     bool
	tracingEndpoint    string
	tracingTLSCA       string
	tracingTLSInsecure bool
	shutdownTimeout    time.Duration
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the KubeDiagnose server",
	Long: `Start the KubeDiagnose server which serves the diagnosis REST API,
the MCP endpoint at /v1/mcp, health probes and Prometheus metrics.`,
	Run: runServer,
}

func init() {
	serverCmd.Flags().IntVar(&apiPort, "api-port", 8080, "Port the API server listens on")
	serverCmd.Flags().StringVar(&corsOrigin, "cors-origin", "*", "Value of Access-Control-Allow-Origin")
	serverCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 15*time.Second, "Graceful shutdown timeout")

	addTracingFlags(serverCmd)
}

func addTracingFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&tracingEnabled, "tracing-enabled", false, "Enable OpenTelemetry tracing")
	cmd.Flags().StringVar(&tracingEndpoint, "tracing-endpoint", "", "OTLP gRPC endpoint (e.g., victorialogs:4317)")
	cmd.Flags().StringVar(&tracingTLSCA, "tracing-tls-ca", "", "Path to CA certificate for TLS verification (optional)")
	cmd.Flags().BoolVar(&tracingTLSInsecure, "tracing-tls-insecure", false, "Skip TLS certificate verification (insecure, use only for testing)")
}

// applyTracingFlags copies explicitly set tracing flags into cfg
func applyTracingFlags(cmd *cobra.Command, cfg *config.Config) {
	if flagChanged(cmd, "tracing-enabled") {
		cfg.Tracing.Enabled = tracingEnabled
	}
	if flagChanged(cmd, "tracing-endpoint") {
		cfg.Tracing.Endpoint = tracingEndpoint
	}
	if flagChanged(cmd, "tracing-tls-ca") {
		cfg.Tracing.TLSCAPath = tracingTLSCA
	}
	if flagChanged(cmd, "tracing-tls-insecure") {
		cfg.Tracing.TLSInsecure = tracingTLSInsecure
	}
}

func newTracingProvider(cfg *config.Config) (*tracing.Provider, error) {
	return tracing.NewProvider(tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		Endpoint:       cfg.Tracing.Endpoint,
		TLSCAPath:      cfg.Tracing.TLSCAPath,
		TLSInsecure:    cfg.Tracing.TLSInsecure,
		ServiceVersion: Version,
	})
}

func runServer(cmd *cobra.Command, _ []string) {
	a, err := newApp(cmd)
	HandleError(err, "Initialization error")
	logger := logging.GetLogger("server")

	cfg := a.cfg
	if flagChanged(cmd, "api-port") {
		cfg.Server.Port = apiPort
	}
	if flagChanged(cmd, "cors-origin") {
		cfg.Server.CORSOrigin = corsOrigin
	}
	applyTracingFlags(cmd, cfg)
	HandleError(cfg.Validate(), "Configuration error")

	logger.Info("KubeDiagnose v%s starting up", Version)

	manager := lifecycle.NewManager()
	manager.SetShutdownTimeout(shutdownTimeout)

	tracingProvider, err := newTracingProvider(cfg)
	if err != nil {
		logger.Error("Failed to initialize tracing: %v", err)
		HandleError(err, "Tracing initialization error")
	}
	if err := manager.Register(tracingProvider); err != nil {
		HandleError(err, "Tracing provider registration error")
	}

	service := a.diagnosisService(diagnosis.WithTracer(tracingProvider.Tracer("kubediagnose.diagnosis")))
	mcpServer := mcp.NewDiagnosisServer(service, Version)

	apiComponent := apiserver.New(
		apiserver.Config{
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
			CORSOrigin:   cfg.Server.CORSOrigin,
		},
		service,
		a.client,
		apiserver.WithMetrics(a.metrics, a.registry),
		apiserver.WithTracingProvider(tracingProvider),
		apiserver.WithMCPServer(mcpServer.MCPServer()),
	)
	logger.Info("API server component created (port %d)", cfg.Server.Port)

	if err := manager.Register(apiComponent, tracingProvider); err != nil {
		logger.Error("Failed to register API server component: %v", err)
		HandleError(err, "API server registration error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := manager.Start(ctx); err != nil {
		logger.Error("Failed to start components: %v", err)
		HandleError(err, "Startup error")
	}

	logger.Info("Application started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutdown signal received, gracefully shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := manager.Stop(shutdownCtx); err != nil {
		logger.Error("Error during shutdown: %v", err)
	}

	logger.Info("Shutdown complete")
}
