package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/collector"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/config"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/db"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/middleware"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca"
)

// Package server exposes the RCA engine over HTTP and WebSocket.
//
// Routes:
//   POST /api/v1/analyze              run one analysis (inline metrics or targets)
//   GET  /api/v1/analyses             list stored analyses
//   GET  /api/v1/analyses/{id}        fetch one stored analysis with full result
//   DELETE /api/v1/analyses/{id}      delete one stored analysis
//   GET  /api/v1/config/thresholds    read the active engine thresholds
//   PUT  /api/v1/config/thresholds    update the engine thresholds
//   GET  /ws/analyze                  run one analysis with streamed phase events
//   GET  /healthz                     liveness
//   GET  /readyz                      readiness (includes store ping)
//   GET  /metrics                     Prometheus self-telemetry
//
// ErrNoData and invalid threshold updates map to 4xx responses; every other
// engine outcome, including an empty result, is a 200.

// Server is the HTTP front of the RCA service.
type Server struct {
	config      *config.Config
	coordinator *rca.Coordinator
	collector   collector.Collector
	store       db.Store
	limiter     *middleware.RateLimiter
	logger      *zap.Logger

	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	running bool
}

// Options carries the collaborators the server is wired with. Collector and
// Store are optional; without a collector only inline metrics are accepted,
// and without a store history endpoints report 503.
type Options struct {
	Config      *config.Config
	Coordinator *rca.Coordinator
	Collector   collector.Collector
	Store       db.Store
	Logger      *zap.Logger
}

// NewServer creates the server with all components wired together.
func NewServer(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if opts.Coordinator == nil {
		return nil, fmt.Errorf("coordinator cannot be nil")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	srv := &Server{
		config:      opts.Config,
		coordinator: opts.Coordinator,
		collector:   opts.Collector,
		store:       opts.Store,
		logger:      opts.Logger,
		ctx:         ctx,
		cancel:      cancel,
	}
	if n := opts.Config.Server.RateLimitPerMin; n > 0 {
		srv.limiter = middleware.NewRateLimiter(n)
	}
	return srv, nil
}

// Handler builds the full route table with middleware applied. Exposed so
// tests can drive the server through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.wrap(s.handleHealth))
	mux.HandleFunc("/readyz", s.wrap(s.handleReady))
	mux.Handle("/metrics", promhttp.Handler())

	analyze := s.handleAnalyze
	if s.limiter != nil {
		analyze = s.limiter.Middleware(analyze)
	}
	mux.HandleFunc("/api/v1/analyze", s.wrap(analyze))
	mux.HandleFunc("/api/v1/analyses", s.wrap(s.handleAnalysesList))
	mux.HandleFunc("/api/v1/analyses/", s.wrap(s.handleAnalysisByID))
	mux.HandleFunc("/api/v1/config/thresholds", s.wrap(s.handleThresholds))
	mux.HandleFunc("/ws/analyze", s.handleAnalyzeStream)

	return mux
}

// wrap applies the standard middleware chain to one handler.
func (s *Server) wrap(h http.HandlerFunc) http.HandlerFunc {
	return middleware.Recovery(s.logger)(middleware.Logging(s.logger)(h))
}

// Start begins serving. It returns once the listener goroutine is launched.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()

	if s.store != nil && s.config.Database.RetentionDays > 0 {
		s.wg.Add(1)
		go s.retentionLoop()
	}

	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is not running")
	}
	s.running = false
	s.mu.Unlock()

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown error", zap.Error(err))
		}
	}

	s.cancel()
	s.wg.Wait()

	if s.limiter != nil {
		s.limiter.Stop()
	}
	s.logger.Info("server stopped")
	return nil
}

// IsRunning reports whether Start has been called without a matching Stop.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// retentionLoop prunes stored analyses past the configured retention once a
// day. The first pass runs shortly after startup to catch long downtimes.
func (s *Server) retentionLoop() {
	defer s.wg.Done()

	retention := time.Duration(s.config.Database.RetentionDays) * 24 * time.Hour
	timer := time.NewTimer(time.Minute)
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
			cutoff := time.Now().Add(-retention)
			pruned, err := s.store.PruneAnalyses(s.ctx, cutoff)
			if err != nil {
				s.logger.Warn("analysis retention prune failed", zap.Error(err))
			} else if pruned > 0 {
				s.logger.Info("pruned stored analyses",
					zap.Int64("pruned", pruned),
					zap.Time("cutoff", cutoff))
			}
			timer.Reset(24 * time.Hour)
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if !s.IsRunning() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": "store unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// jsonError writes the standard error payload.
func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
