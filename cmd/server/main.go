package main

// Package main is the entry point for the RCA service.
//
// Responsibilities:
//   - Load and validate configuration from YAML and environment variables
//   - Build the process logger (zap, optional rotating file output)
//   - Open the SQLite analysis history store
//   - Wire the Prometheus metric collector behind the query cache
//   - Wire the optional LLM summarizer provider
//   - Assemble the RCA coordinator and start the HTTP/WebSocket server
//   - Apply config file reloads to the live engine thresholds
//   - Implement graceful shutdown on SIGINT/SIGTERM

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/cache"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/collector"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/config"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/db"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/llm"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/logging"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/server"
)

func main() {
	configPath := flag.String("config", "/etc/aiops/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Configuration
	mgr, err := config.NewConfigManager(configPath)
	if err != nil {
		return fmt.Errorf("create config manager: %w", err)
	}
	if err := mgr.Load(ctx); err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := mgr.Validate(ctx); err != nil {
		return err
	}
	cfg := mgr.Get(ctx)

	// Logging
	logger, err := logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    100,
		MaxBackups: 10,
		MaxAge:     30,
		Compress:   true,
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	// Engine configuration cell: seeded from file config, adjustable at
	// runtime through the thresholds API and config reloads.
	engineConfig := rca.NewConfig()
	applyThresholds(engineConfig, cfg, logger)

	// Optional LLM summarizer
	var summarizer rca.Summarizer
	provider, err := llm.NewProvider(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
	switch {
	case err != nil:
		// A broken provider config degrades to templated summaries rather
		// than blocking the whole service.
		logger.Warn("llm provider unavailable, summaries fall back to templates", zap.Error(err))
	case provider == nil:
		logger.Info("llm summaries disabled")
	default:
		summarizer = llm.NewSummarizer(provider, logger.Named("llm"))
		logger.Info("llm summarizer configured",
			zap.String("provider", provider.Name()),
			zap.String("model", cfg.LLM.Model))
	}

	// Coordinator
	opts := rca.DefaultOptions()
	opts.Detector.Workers = cfg.Engine.Workers
	if cfg.Engine.SummaryTimeoutSeconds > 0 {
		opts.SummaryTimeout = time.Duration(cfg.Engine.SummaryTimeoutSeconds) * time.Second
	}
	coordinator := rca.NewCoordinator(engineConfig, summarizer, opts, logger.Named("rca"))

	// Metric collector with query cache
	var metricCollector collector.Collector
	queryCache := cache.New()
	defer queryCache.Close()
	if cfg.Collector.PrometheusURL != "" {
		prom := collector.NewPrometheusCollector(
			cfg.Collector.PrometheusURL,
			time.Duration(cfg.Collector.TimeoutSeconds)*time.Second,
			logger.Named("collector"))
		metricCollector = collector.NewCachingCollector(prom, queryCache, collector.DefaultCacheTTL, logger.Named("collector"))
	} else {
		logger.Info("no prometheus url configured, only inline metrics are accepted")
	}

	// Analysis history store
	var store db.Store
	if cfg.Database.Path != "" {
		store, err = db.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open history store %s: %w", cfg.Database.Path, err)
		}
		defer store.Close()
	} else {
		logger.Info("no database path configured, analysis history disabled")
	}

	// HTTP server
	srv, err := server.NewServer(server.Options{
		Config:      cfg,
		Coordinator: coordinator,
		Collector:   metricCollector,
		Store:       store,
		Logger:      logger.Named("http"),
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	// Config file reloads adjust the live engine thresholds.
	go func() {
		for updated := range mgr.Watch(ctx) {
			applyThresholds(engineConfig, &updated, logger)
		}
	}()

	logger.Info("rca service started",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)),
		zap.String("config", configPath))

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("shutdown signal received", zap.String("signal", sig.String()))

	if err := srv.Stop(); err != nil {
		logger.Warn("server stop error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

// applyThresholds pushes file-level engine thresholds into the live config
// cell. Invalid values are logged and skipped, keeping the active values.
func applyThresholds(engineConfig *rca.Config, cfg *config.Config, logger *zap.Logger) {
	if err := engineConfig.SetAnomalyThreshold(cfg.Engine.AnomalyThreshold); err != nil {
		logger.Warn("ignoring configured anomaly threshold", zap.Error(err))
	}
	if err := engineConfig.SetCorrelationThreshold(cfg.Engine.CorrelationThreshold); err != nil {
		logger.Warn("ignoring configured correlation threshold", zap.Error(err))
	}
}
