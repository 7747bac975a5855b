package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kubediagnose.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Analysis.BulkConcurrency)
	assert.Equal(t, 30*time.Second, cfg.Cache.NamespaceTTL)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  readTimeout: 5s
  corsOrigin: https://ui.example.com
kubernetes:
  kubeconfig: /etc/kube/config
  context: prod
  qps: 20
  burst: 40
analysis:
  bulkConcurrency: 4
cache:
  namespaceTTL: 0s
tracing:
  enabled: true
  endpoint: otel-collector:4317
log:
  levels:
    - debug
    - kube=warn
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout, "keys absent from the file keep their defaults")
	assert.Equal(t, "https://ui.example.com", cfg.Server.CORSOrigin)
	assert.Equal(t, "/etc/kube/config", cfg.Kubernetes.Kubeconfig)
	assert.Equal(t, "prod", cfg.Kubernetes.Context)
	assert.Equal(t, float32(20), cfg.Kubernetes.QPS)
	assert.Equal(t, 40, cfg.Kubernetes.Burst)
	assert.Equal(t, 4, cfg.Analysis.BulkConcurrency)
	assert.Equal(t, time.Duration(0), cfg.Cache.NamespaceTTL)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "otel-collector:4317", cfg.Tracing.Endpoint)
	assert.Equal(t, []string{"debug", "kube=warn"}, cfg.Log.Levels)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\nanalysis:\n  bulkConcurrency: 4\n")
	t.Setenv("KUBEDIAGNOSE_PORT", "7070")
	t.Setenv("KUBEDIAGNOSE_NAMESPACE_CACHE_TTL", "2m")
	t.Setenv("KUBEDIAGNOSE_LOG_LEVEL", "info,diagnosis=debug")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Analysis.BulkConcurrency)
	assert.Equal(t, 2*time.Minute, cfg.Cache.NamespaceTTL)
	assert.Equal(t, []string{"info", "diagnosis=debug"}, cfg.Log.Levels)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.yaml") },
			wantErr: "failed to load config",
		},
		{
			name:    "malformed yaml",
			path:    func(t *testing.T) string { return writeConfig(t, "server: [port") },
			wantErr: "failed to load config",
		},
		{
			name:    "bad env value",
			path:    func(*testing.T) string { return "" },
			env:     map[string]string{"KUBEDIAGNOSE_PORT": "eighty"},
			wantErr: "failed to read environment overrides",
		},
		{
			name:    "invalid result",
			path:    func(t *testing.T) string { return writeConfig(t, "analysis:\n  bulkConcurrency: 0\n") },
			wantErr: "analysis.bulkConcurrency must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(tt.path(t))

			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "port zero", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "port too high", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server.port"},
		{name: "negative timeout", mutate: func(c *Config) { c.Server.IdleTimeout = -time.Second }, wantErr: "server timeouts"},
		{name: "negative qps", mutate: func(c *Config) { c.Kubernetes.QPS = -1 }, wantErr: "kubernetes.qps"},
		{name: "negative burst", mutate: func(c *Config) { c.Kubernetes.Burst = -1 }, wantErr: "kubernetes.burst"},
		{name: "negative request timeout", mutate: func(c *Config) { c.Kubernetes.RequestTimeout = -1 }, wantErr: "kubernetes.requestTimeout"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Analysis.BulkConcurrency = 0 }, wantErr: "analysis.bulkConcurrency"},
		{name: "negative ttl", mutate: func(c *Config) { c.Cache.NamespaceTTL = -1 }, wantErr: "cache.namespaceTTL"},
		{name: "tracing without endpoint", mutate: func(c *Config) { c.Tracing.Enabled = true }, wantErr: "tracing.endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var configErr *ConfigError
			require.ErrorAs(t, err, &configErr)
			assert.Contains(t, configErr.Error(), tt.wantErr)
		})
	}
}
