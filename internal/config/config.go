package config

import "context"

// Package config provides configuration management for the RCA service.
//
// Responsibilities:
//   - Load configuration from YAML files and environment variables
//   - Validate configuration on startup
//   - Provide runtime access to all configuration
//   - Support configuration reloading for tunable settings
//   - Manage sensitive data (API keys)
//   - Establish reasonable defaults
//
// Configuration Sources (priority order, high to low):
//   1. Environment variables (AIOPS_* prefix)
//   2. YAML config file (default: /etc/aiops/config.yaml)
//   3. Built-in defaults (lowest priority)
//
// Main Configuration Sections:
//
//   1. Server
//      - host: Listen host (default 0.0.0.0)
//      - port: Listen port (default 8080)
//      - allowed_origins: WebSocket origin allow list
//      - rate_limit_per_min: Per-client request budget for analyze calls
//
//   2. Engine
//      - anomaly_threshold: Composite score cutoff (0, 1]
//      - correlation_threshold: Pearson coefficient cutoff (0, 1]
//      - workers: Detector worker pool size (0 = one per CPU)
//      - summary_timeout_seconds: Budget for narrative generation
//
//   3. Collector
//      - prometheus_url: Prometheus base URL for range queries
//      - timeout_seconds: HTTP timeout per query
//
//   4. LLM Provider
//      - provider: "openai" | "ollama" | "none"
//      - api_key: Provider API key (or OPENAI_API_KEY env var)
//      - model: Model name
//      - base_url: Override endpoint (OpenAI-compatible gateways, Ollama host)
//      - timeout_seconds: HTTP timeout per completion
//
//   5. Database
//      - path: Path to the SQLite history file
//      - retention_days: Keep analysis history for N days
//
//   6. Logging
//      - level: "debug" | "info" | "warn" | "error"
//      - format: "json" | "console"
//      - file_path: Optional rotating log file
//
// Config struct contains all configuration fields
type Config struct {
	// Server configuration
	Server struct {
		Host string
		Port int
		// AllowedOrigins is a list of origins permitted to open WebSocket
		// connections. Use ["*"] to allow any origin (development only).
		// If empty, defaults to ["http://localhost:3000", "http://localhost:5173"].
		AllowedOrigins  []string
		RateLimitPerMin int
	}

	// Engine configuration
	Engine struct {
		AnomalyThreshold      float64
		CorrelationThreshold  float64
		Workers               int
		SummaryTimeoutSeconds int
	}

	// Collector configuration
	Collector struct {
		PrometheusURL  string
		TimeoutSeconds int
	}

	// LLM provider configuration
	LLM struct {
		Provider       string
		APIKey         string
		Model          string
		BaseURL        string
		TimeoutSeconds int
	}

	// Database configuration
	Database struct {
		Path          string
		RetentionDays int
	}

	// Logging configuration
	Logging struct {
		Level    string
		Format   string
		FilePath string
	}
}

// ConfigManager defines the interface for configuration access.
type ConfigManager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error

	// Get returns the current configuration.
	Get(ctx context.Context) *Config

	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error

	// Watch watches for configuration changes and reloads (if supported).
	Watch(ctx context.Context) <-chan Config

	// Reload reloads configuration from sources (selective settings).
	Reload(ctx context.Context) error
}

// NewConfigManager creates a new configuration manager.
func NewConfigManager(configPath string) (ConfigManager, error) {
	mgr := &viperConfigManager{
		configPath: configPath,
		config:     DefaultConfig(),
		watchChan:  make(chan Config, 1),
	}
	return mgr, nil
}

// NewConfigManagerWithDefaults creates a config manager with default config path.
func NewConfigManagerWithDefaults() (ConfigManager, error) {
	return NewConfigManager("/etc/aiops/config.yaml")
}
