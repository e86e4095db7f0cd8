package config

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Server defaults
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Server.AllowedOrigins = nil
	cfg.Server.RateLimitPerMin = 60

	// Engine defaults
	cfg.Engine.AnomalyThreshold = 0.65
	cfg.Engine.CorrelationThreshold = 0.7
	cfg.Engine.Workers = 0 // one per CPU
	cfg.Engine.SummaryTimeoutSeconds = 15

	// Collector defaults
	cfg.Collector.PrometheusURL = "http://localhost:9090"
	cfg.Collector.TimeoutSeconds = 10

	// LLM defaults
	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = ""
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.LLM.BaseURL = ""
	cfg.LLM.TimeoutSeconds = 30

	// Database defaults
	cfg.Database.Path = "/var/lib/aiops/rca.db"
	cfg.Database.RetentionDays = 30

	// Logging defaults
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.FilePath = ""

	return cfg
}
