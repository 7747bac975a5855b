package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/moolen/kubediagnose/internal/logging"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var (
	logLevelFlags   []string // Supports multiple --log-level flags
	configPath      string
	kubeconfigPath  string
	kubeContext     string
	bulkConcurrency int
)

var rootCmd = &cobra.Command{
	Use:   "kubediagnose",
	Short: "KubeDiagnose - Kubernetes pod and service diagnostics",
	Long: `KubeDiagnose inspects pods and services, applies a fixed set of diagnostic
rules and reports the overall health, probable causes, evidence and suggested
actions. It runs as a REST/MCP server or as a one-shot CLI.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExitError carries a process exit code without an error message
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Execute runs the root command and prints any error to stderr
func Execute() error {
	err := rootCmd.Execute()
	var exitErr *ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// ExitCode maps an error returned by Execute to a process exit code
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

func init() {
	// Supports per-package log levels: --log-level debug --log-level kube=debug
	rootCmd.PersistentFlags().StringSliceVar(&logLevelFlags, "log-level",
		[]string{"info"},
		"Log level for packages. Use 'default=level' for default, or 'package.name=level' for per-package.\n"+
			"Examples: --log-level debug (all), --log-level diagnosis=debug --log-level kube=warn")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&kubeconfigPath, "kubeconfig", "",
		"Path to the kubeconfig file (defaults to in-cluster config, then ~/.kube/config)")
	rootCmd.PersistentFlags().StringVar(&kubeContext, "context", "",
		"Kubeconfig context to use")
	rootCmd.PersistentFlags().IntVar(&bulkConcurrency, "bulk-concurrency", 8,
		"Number of resources analyzed in parallel by namespace-wide diagnoses")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(namespacesCmd)
	rootCmd.AddCommand(mcpCmd)
}

// HandleError prints error and exits
func HandleError(err error, msg string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		os.Exit(1)
	}
}

// setupLog initializes the logging system. Levels from the config file (or
// KUBEDIAGNOSE_LOG_LEVEL) are applied first and explicit --log-level flags
// override them.
// Priority: CLI flags > config > LOG_LEVEL_* environment variables
func setupLog(cmd *cobra.Command, configLevels []string) error {
	levels := append([]string{}, configLevels...)
	if flagChanged(cmd, "log-level") || len(levels) == 0 {
		levels = append(levels, logLevelFlags...)
	}

	defaultLevel, packageLevels, err := parseLogLevelFlags(levels)
	if err != nil {
		return err
	}
	return logging.Initialize(defaultLevel, packageLevels)
}

// parseLogLevelFlags parses level strings and LOG_LEVEL_* environment variables
// Priority: levels > Environment variables
//
// Level format: ["debug"], ["default=info", "kube=debug"], or ["info"]
// Env vars: LOG_LEVEL_API_HANDLERS=debug (package name uppercased, dots to underscores)
//
// Returns: (defaultLevel, packageLevels map, error)
func parseLogLevelFlags(flags []string) (string, map[string]string, error) {
	result := make(map[string]string)

	for _, envPair := range os.Environ() {
		if !strings.HasPrefix(envPair, "LOG_LEVEL_") {
			continue
		}
		key, level, ok := strings.Cut(envPair, "=")
		if !ok {
			continue
		}
		result[convertEnvKeyToPackageName(key)] = level
	}

	for _, flag := range flags {
		pkg, level, ok := strings.Cut(flag, "=")
		if !ok {
			// A bare level like "debug" sets the default
			result["default"] = flag
			continue
		}
		result[pkg] = level
	}

	defaultLevel := "info"
	if level, exists := result["default"]; exists {
		defaultLevel = level
		delete(result, "default")
	}

	if _, err := logging.ParseLevel(defaultLevel); err != nil {
		return "", nil, err
	}
	for pkg, level := range result {
		if _, err := logging.ParseLevel(level); err != nil {
			return "", nil, fmt.Errorf("invalid log level for package %q: %v", pkg, err)
		}
	}

	return defaultLevel, result, nil
}

// convertEnvKeyToPackageName converts LOG_LEVEL_API_HANDLERS -> api.handlers
func convertEnvKeyToPackageName(envKey string) string {
	name := strings.TrimPrefix(envKey, "LOG_LEVEL_")
	return strings.ToLower(strings.ReplaceAll(name, "_", "."))
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}
