package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error

	// Validate server configuration
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", c.Server.Port),
		})
	}

	if c.Server.RateLimitPerMin < 0 {
		errs = append(errs, &ValidationError{
			Field:   "server.rate_limit_per_min",
			Message: fmt.Sprintf("rate_limit_per_min cannot be negative, got %d", c.Server.RateLimitPerMin),
		})
	}

	// Validate engine configuration
	if c.Engine.AnomalyThreshold <= 0 || c.Engine.AnomalyThreshold > 1 {
		errs = append(errs, &ValidationError{
			Field:   "engine.anomaly_threshold",
			Message: fmt.Sprintf("anomaly_threshold must be in (0, 1], got %g", c.Engine.AnomalyThreshold),
		})
	}

	if c.Engine.CorrelationThreshold <= 0 || c.Engine.CorrelationThreshold > 1 {
		errs = append(errs, &ValidationError{
			Field:   "engine.correlation_threshold",
			Message: fmt.Sprintf("correlation_threshold must be in (0, 1], got %g", c.Engine.CorrelationThreshold),
		})
	}

	if c.Engine.Workers < 0 {
		errs = append(errs, &ValidationError{
			Field:   "engine.workers",
			Message: fmt.Sprintf("workers cannot be negative, got %d", c.Engine.Workers),
		})
	}

	if c.Engine.SummaryTimeoutSeconds < 1 {
		errs = append(errs, &ValidationError{
			Field:   "engine.summary_timeout_seconds",
			Message: fmt.Sprintf("summary_timeout_seconds must be at least 1, got %d", c.Engine.SummaryTimeoutSeconds),
		})
	}

	// Validate collector configuration
	if c.Collector.PrometheusURL != "" {
		u, err := url.Parse(c.Collector.PrometheusURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, &ValidationError{
				Field:   "collector.prometheus_url",
				Message: fmt.Sprintf("invalid URL '%s' (expected scheme://host)", c.Collector.PrometheusURL),
			})
		}
	}

	if c.Collector.TimeoutSeconds < 1 {
		errs = append(errs, &ValidationError{
			Field:   "collector.timeout_seconds",
			Message: fmt.Sprintf("timeout_seconds must be at least 1, got %d", c.Collector.TimeoutSeconds),
		})
	}

	// Validate LLM configuration
	validProviders := map[string]bool{
		"openai": true,
		"ollama": true,
		"none":   true,
	}
	if !validProviders[c.LLM.Provider] {
		errs = append(errs, &ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: openai, ollama, none", c.LLM.Provider),
		})
	}

	// A missing API key is not a validation error: the service starts in
	// degraded mode and serves templated summaries. A configured provider
	// does need a model name.
	switch c.LLM.Provider {
	case "openai":
		if c.LLMConfigured() && c.LLM.Model == "" {
			errs = append(errs, &ValidationError{
				Field:   "llm.model",
				Message: "model is required when an OpenAI API key is set",
			})
		}
	case "ollama":
		if c.LLM.Model == "" {
			errs = append(errs, &ValidationError{
				Field:   "llm.model",
				Message: "model is required when provider is ollama",
			})
		}
	}

	if c.LLM.TimeoutSeconds < 1 {
		errs = append(errs, &ValidationError{
			Field:   "llm.timeout_seconds",
			Message: fmt.Sprintf("timeout_seconds must be at least 1, got %d", c.LLM.TimeoutSeconds),
		})
	}

	// Validate database configuration
	if c.Database.Path == "" {
		errs = append(errs, &ValidationError{
			Field:   "database.path",
			Message: "path is required",
		})
	}

	if c.Database.RetentionDays < 1 {
		errs = append(errs, &ValidationError{
			Field:   "database.retention_days",
			Message: fmt.Sprintf("retention_days must be at least 1, got %d", c.Database.RetentionDays),
		})
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}

	validLogFormats := map[string]bool{
		"json":    true,
		"console": true,
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format '%s', must be one of: json, console", c.Logging.Format),
		})
	}

	return errs
}

// LLMConfigured reports whether the selected provider has the settings it
// needs to serve narrative summaries. An unconfigured provider is not a
// validation error: the service runs in degraded mode with templated
// summaries until credentials arrive.
func (c *Config) LLMConfigured() bool {
	switch c.LLM.Provider {
	case "openai":
		return c.LLM.APIKey != "" || os.Getenv("OPENAI_API_KEY") != ""
	case "ollama":
		return c.LLM.Model != ""
	default:
		return false
	}
}
