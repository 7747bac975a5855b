package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/moolen/kubediagnose/internal/logging"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Cache      CacheConfig      `yaml:"cache"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig configures the HTTP API server
type ServerConfig struct {
	// Port is the port the API server listens on
	Port         int           `yaml:"port" env:"KUBEDIAGNOSE_PORT"`
	ReadTimeout  time.Duration `yaml:"readTimeout" env:"KUBEDIAGNOSE_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"writeTimeout" env:"KUBEDIAGNOSE_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `yaml:"idleTimeout" env:"KUBEDIAGNOSE_IDLE_TIMEOUT"`
	// CORSOrigin is the allowed browser origin, "*" for any
	CORSOrigin string `yaml:"corsOrigin" env:"KUBEDIAGNOSE_CORS_ORIGIN"`
}

// KubernetesConfig selects the cluster and tunes the client
type KubernetesConfig struct {
	// Kubeconfig is an explicit kubeconfig path. Empty means in-cluster
	// config, then ~/.kube/config.
	Kubeconfig     string        `yaml:"kubeconfig" env:"KUBEDIAGNOSE_KUBECONFIG"`
	Context        string        `yaml:"context" env:"KUBEDIAGNOSE_CONTEXT"`
	QPS            float32       `yaml:"qps" env:"KUBEDIAGNOSE_KUBE_QPS"`
	Burst          int           `yaml:"burst" env:"KUBEDIAGNOSE_KUBE_BURST"`
	RequestTimeout time.Duration `yaml:"requestTimeout" env:"KUBEDIAGNOSE_KUBE_REQUEST_TIMEOUT"`
}

// AnalysisConfig tunes the diagnosis engine
type AnalysisConfig struct {
	// BulkConcurrency bounds how many resources a namespace-wide diagnosis
	// analyzes in parallel
	BulkConcurrency int `yaml:"bulkConcurrency" env:"KUBEDIAGNOSE_BULK_CONCURRENCY"`
}

// CacheConfig configures the namespace list cache
type CacheConfig struct {
	// NamespaceTTL is how long a namespace listing is reused. 0 disables caching.
	NamespaceTTL time.Duration `yaml:"namespaceTTL" env:"KUBEDIAGNOSE_NAMESPACE_CACHE_TTL"`
}

// TracingConfig configures OpenTelemetry export
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" env:"KUBEDIAGNOSE_TRACING_ENABLED"`
	Endpoint    string `yaml:"endpoint" env:"KUBEDIAGNOSE_TRACING_ENDPOINT"`
	TLSCAPath   string `yaml:"tlsCAPath" env:"KUBEDIAGNOSE_TRACING_TLS_CA"`
	TLSInsecure bool   `yaml:"tlsInsecure" env:"KUBEDIAGNOSE_TRACING_TLS_INSECURE"`
}

// LogConfig holds log levels in --log-level syntax: "debug" sets the
// default, "kube=debug" a package level
type LogConfig struct {
	Levels []string `yaml:"levels" env:"KUBEDIAGNOSE_LOG_LEVEL" envSeparator:","`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
			CORSOrigin:   "*",
		},
		Kubernetes: KubernetesConfig{
			QPS:            50,
			Burst:          100,
			RequestTimeout: 30 * time.Second,
		},
		Analysis: AnalysisConfig{
			BulkConcurrency: 8,
		},
		Cache: CacheConfig{
			NamespaceTTL: 30 * time.Second,
		},
	}
}

// Load builds the configuration from the defaults, the optional YAML file at
// path and KUBEDIAGNOSE_* environment variables, in that order of precedence.
// The result is validated.
func Load(path string) (*Config, error) {
	logger := logging.GetLogger("config")
	cfg := Default()

	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %q: %w", path, err)
		}
		if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
			return nil, fmt.Errorf("failed to parse config from %q: %w", path, err)
		}
		logger.Debug("Loaded configuration file %s", path)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return NewConfigError("server.port must be between 1 and 65535")
	}

	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		return NewConfigError("server timeouts must not be negative")
	}

	if c.Kubernetes.QPS < 0 {
		return NewConfigError("kubernetes.qps must not be negative")
	}

	if c.Kubernetes.Burst < 0 {
		return NewConfigError("kubernetes.burst must not be negative")
	}

	if c.Kubernetes.RequestTimeout < 0 {
		return NewConfigError("kubernetes.requestTimeout must not be negative")
	}

	if c.Analysis.BulkConcurrency < 1 {
		return NewConfigError("analysis.bulkConcurrency must be at least 1")
	}

	if c.Cache.NamespaceTTL < 0 {
		return NewConfigError("cache.namespaceTTL must not be negative")
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return NewConfigError("tracing.endpoint must be set when tracing is enabled")
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return e.message
}
