package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Server.RateLimitPerMin)

	// Test engine defaults
	assert.Equal(t, 0.65, cfg.Engine.AnomalyThreshold)
	assert.Equal(t, 0.7, cfg.Engine.CorrelationThreshold)
	assert.Equal(t, 0, cfg.Engine.Workers)
	assert.Equal(t, 15, cfg.Engine.SummaryTimeoutSeconds)

	// Test collector defaults
	assert.Equal(t, "http://localhost:9090", cfg.Collector.PrometheusURL)
	assert.Equal(t, 10, cfg.Collector.TimeoutSeconds)

	// Test LLM defaults
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.NotEmpty(t, cfg.LLM.Model)
	assert.Equal(t, 30, cfg.LLM.TimeoutSeconds)

	// Test database defaults
	assert.NotEmpty(t, cfg.Database.Path)
	assert.Equal(t, 30, cfg.Database.RetentionDays)

	// Test logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		modifyFn  func(*Config)
		wantError bool
		errorMsg  string
	}{
		{
			name:      "valid default config",
			modifyFn:  func(cfg *Config) {},
			wantError: false,
		},
		{
			name: "invalid port - too low",
			modifyFn: func(cfg *Config) {
				cfg.Server.Port = 0
			},
			wantError: true,
			errorMsg:  "port must be between 1 and 65535",
		},
		{
			name: "invalid port - too high",
			modifyFn: func(cfg *Config) {
				cfg.Server.Port = 70000
			},
			wantError: true,
			errorMsg:  "port must be between 1 and 65535",
		},
		{
			name: "negative rate limit",
			modifyFn: func(cfg *Config) {
				cfg.Server.RateLimitPerMin = -1
			},
			wantError: true,
			errorMsg:  "rate_limit_per_min cannot be negative",
		},
		{
			name: "anomaly threshold zero",
			modifyFn: func(cfg *Config) {
				cfg.Engine.AnomalyThreshold = 0
			},
			wantError: true,
			errorMsg:  "anomaly_threshold must be in (0, 1]",
		},
		{
			name: "anomaly threshold above one",
			modifyFn: func(cfg *Config) {
				cfg.Engine.AnomalyThreshold = 1.5
			},
			wantError: true,
			errorMsg:  "anomaly_threshold must be in (0, 1]",
		},
		{
			name: "correlation threshold zero",
			modifyFn: func(cfg *Config) {
				cfg.Engine.CorrelationThreshold = 0
			},
			wantError: true,
			errorMsg:  "correlation_threshold must be in (0, 1]",
		},
		{
			name: "negative workers",
			modifyFn: func(cfg *Config) {
				cfg.Engine.Workers = -2
			},
			wantError: true,
			errorMsg:  "workers cannot be negative",
		},
		{
			name: "zero summary timeout",
			modifyFn: func(cfg *Config) {
				cfg.Engine.SummaryTimeoutSeconds = 0
			},
			wantError: true,
			errorMsg:  "summary_timeout_seconds must be at least 1",
		},
		{
			name: "prometheus url without scheme",
			modifyFn: func(cfg *Config) {
				cfg.Collector.PrometheusURL = "localhost:9090"
			},
			wantError: true,
			errorMsg:  "invalid URL",
		},
		{
			name: "empty prometheus url is allowed",
			modifyFn: func(cfg *Config) {
				cfg.Collector.PrometheusURL = ""
			},
			wantError: false,
		},
		{
			name: "zero collector timeout",
			modifyFn: func(cfg *Config) {
				cfg.Collector.TimeoutSeconds = 0
			},
			wantError: true,
			errorMsg:  "timeout_seconds must be at least 1",
		},
		{
			name: "invalid LLM provider",
			modifyFn: func(cfg *Config) {
				cfg.LLM.Provider = "invalid"
			},
			wantError: true,
			errorMsg:  "invalid provider",
		},
		{
			name: "openai key without model",
			modifyFn: func(cfg *Config) {
				cfg.LLM.APIKey = "test-key"
				cfg.LLM.Model = ""
			},
			wantError: true,
			errorMsg:  "model is required when an OpenAI API key is set",
		},
		{
			name: "ollama without model",
			modifyFn: func(cfg *Config) {
				cfg.LLM.Provider = "ollama"
				cfg.LLM.Model = ""
			},
			wantError: true,
			errorMsg:  "model is required when provider is ollama",
		},
		{
			name: "zero llm timeout",
			modifyFn: func(cfg *Config) {
				cfg.LLM.TimeoutSeconds = 0
			},
			wantError: true,
			errorMsg:  "timeout_seconds must be at least 1",
		},
		{
			name: "missing database path",
			modifyFn: func(cfg *Config) {
				cfg.Database.Path = ""
			},
			wantError: true,
			errorMsg:  "path is required",
		},
		{
			name: "zero retention days",
			modifyFn: func(cfg *Config) {
				cfg.Database.RetentionDays = 0
			},
			wantError: true,
			errorMsg:  "retention_days must be at least 1",
		},
		{
			name: "invalid log level",
			modifyFn: func(cfg *Config) {
				cfg.Logging.Level = "invalid"
			},
			wantError: true,
			errorMsg:  "invalid log level",
		},
		{
			name: "invalid log format",
			modifyFn: func(cfg *Config) {
				cfg.Logging.Format = "text"
			},
			wantError: true,
			errorMsg:  "invalid log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modifyFn(cfg)

			errs := cfg.Validate()

			if tt.wantError {
				require.NotEmpty(t, errs, "expected validation errors but got none")
				found := false
				for _, err := range errs {
					if strings.Contains(err.Error(), tt.errorMsg) {
						found = true
						break
					}
				}
				assert.True(t, found, "expected error message containing '%s', got: %v", tt.errorMsg, errs)
			} else {
				assert.Empty(t, errs, "expected no validation errors but got: %v", errs)
			}
		})
	}
}

func TestLLMConfigured(t *testing.T) {
	old := os.Getenv("OPENAI_API_KEY")
	os.Setenv("OPENAI_API_KEY", "")
	defer os.Setenv("OPENAI_API_KEY", old)

	cfg := DefaultConfig()
	cfg.LLM.Provider = "none"
	assert.False(t, cfg.LLMConfigured())

	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = ""
	assert.False(t, cfg.LLMConfigured(), "openai without a key should be unconfigured")

	cfg.LLM.APIKey = "test-key"
	assert.True(t, cfg.LLMConfigured())

	cfg.LLM.Provider = "ollama"
	cfg.LLM.Model = "llama3"
	assert.True(t, cfg.LLMConfigured())
}

func TestConfigManagerLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  rate_limit_per_min: 120

engine:
  anomaly_threshold: 0.75
  correlation_threshold: 0.8
  workers: 4

collector:
  prometheus_url: "http://prometheus:9090"
  timeout_seconds: 20

llm:
  provider: "ollama"
  model: "llama3"
  base_url: "http://ollama:11434"

database:
  path: "/tmp/rca-test.db"
  retention_days: 7

logging:
  level: "debug"
  format: "console"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	err = mgr.Load(ctx)
	require.NoError(t, err)

	cfg := mgr.Get(ctx)
	require.NotNil(t, cfg)

	// Verify loaded values
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 120, cfg.Server.RateLimitPerMin)
	assert.Equal(t, 0.75, cfg.Engine.AnomalyThreshold)
	assert.Equal(t, 0.8, cfg.Engine.CorrelationThreshold)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, "http://prometheus:9090", cfg.Collector.PrometheusURL)
	assert.Equal(t, 20, cfg.Collector.TimeoutSeconds)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, "http://ollama:11434", cfg.LLM.BaseURL)
	assert.Equal(t, "/tmp/rca-test.db", cfg.Database.Path)
	assert.Equal(t, 7, cfg.Database.RetentionDays)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	// Unset keys keep their defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 15, cfg.Engine.SummaryTimeoutSeconds)
}

func TestConfigManagerEnvironmentOverrides(t *testing.T) {
	os.Setenv("AIOPS_PORT", "7070")
	os.Setenv("AIOPS_PROMETHEUS_URL", "http://env-prom:9090")
	os.Setenv("OPENAI_API_KEY", "env-openai-key")
	defer func() {
		os.Unsetenv("AIOPS_PORT")
		os.Unsetenv("AIOPS_PROMETHEUS_URL")
		os.Unsetenv("OPENAI_API_KEY")
	}()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 8080

collector:
  prometheus_url: "http://file-prom:9090"

llm:
  provider: "openai"
  model: "gpt-4o-mini"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	err = mgr.Load(ctx)
	require.NoError(t, err)

	cfg := mgr.Get(ctx)

	// Environment variables should override config file
	assert.Equal(t, 7070, cfg.Server.Port, "PORT should be overridden by environment variable")
	assert.Equal(t, "http://env-prom:9090", cfg.Collector.PrometheusURL, "prometheus URL should be overridden by environment variable")
	assert.Equal(t, "env-openai-key", cfg.LLM.APIKey, "API key should come from environment variable")
}

func TestConfigManagerMissingFile(t *testing.T) {
	configPath := "/tmp/nonexistent-aiops-config.yaml"

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	err = mgr.Load(ctx)
	// Should not error - should use defaults
	require.NoError(t, err)

	cfg := mgr.Get(ctx)
	assert.NotNil(t, cfg)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0.65, cfg.Engine.AnomalyThreshold)
}

func TestConfigManagerReload(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("server:\n  port: 9001\n"), 0644)
	require.NoError(t, err)

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, mgr.Load(ctx))
	assert.Equal(t, 9001, mgr.Get(ctx).Server.Port)

	err = os.WriteFile(configPath, []byte("server:\n  port: 9002\n"), 0644)
	require.NoError(t, err)

	require.NoError(t, mgr.Reload(ctx))
	assert.Equal(t, 9002, mgr.Get(ctx).Server.Port)
}

func TestConfigManagerValidation(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 99999

engine:
  anomaly_threshold: 2.0

llm:
  provider: "invalid-provider"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	err = mgr.Load(ctx)
	require.NoError(t, err)

	// Validation should fail
	err = mgr.Validate(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}
