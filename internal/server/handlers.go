package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/collector"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/db"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/metrics"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/timeseries"
	"github.com/GoSimplicity/AI-CloudOps-sub000/pkg/types"
)

// defaultAnalysisWindow is used when a target-based request omits the window.
const defaultAnalysisWindow = time.Hour

// handleAnalyze runs one analysis over inline metrics or collected targets.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req types.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	series, err := s.buildSeries(r.Context(), &req)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.coordinator.Analyze(r.Context(), series)
	if err != nil {
		if errors.Is(err, rca.ErrNoData) {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		jsonError(w, http.StatusInternalServerError, fmt.Sprintf("analysis failed: %v", err))
		return
	}

	s.persist(r.Context(), result)
	writeJSON(w, http.StatusOK, result)
}

// buildSeries resolves the request's metric source. Inline metrics win when
// both forms are present; target collection needs a configured collector.
func (s *Server) buildSeries(ctx context.Context, req *types.AnalyzeRequest) (map[string]*timeseries.MetricSeries, error) {
	if len(req.Metrics) > 0 {
		series := make(map[string]*timeseries.MetricSeries, len(req.Metrics))
		for name, points := range req.Metrics {
			pairs := make([][2]float64, len(points))
			for i, p := range points {
				pairs[i] = [2]float64(p)
			}
			series[name] = timeseries.FromPairs(name, pairs)
		}
		return series, nil
	}

	if len(req.Targets) == 0 {
		return nil, fmt.Errorf("request must carry inline metrics or collector targets")
	}
	if s.collector == nil {
		return nil, fmt.Errorf("no metric collector configured, only inline metrics are supported")
	}

	end := time.Now().UTC()
	if req.End > 0 {
		end = time.Unix(int64(req.End), 0).UTC()
	}
	start := end.Add(-defaultAnalysisWindow)
	if req.Start > 0 {
		start = time.Unix(int64(req.Start), 0).UTC()
	}
	if !end.After(start) {
		return nil, fmt.Errorf("window end %s must be after start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	step := time.Duration(req.StepSeconds) * time.Second

	targets := make([]collector.Target, len(req.Targets))
	for i, t := range req.Targets {
		targets[i] = collector.Target{Name: t.Name, Query: t.Query}
	}

	series, err := s.collector.Collect(ctx, targets, start, end, step)
	if err != nil {
		return nil, fmt.Errorf("metric collection failed: %w", err)
	}
	return series, nil
}

// persist stores a finished analysis. Failures are logged and absorbed; the
// caller already has the result.
func (s *Server) persist(ctx context.Context, result *rca.AnalysisResult) {
	if s.store == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("failed to encode analysis for storage",
			zap.String("id", result.ID), zap.Error(err))
		return
	}

	rec := &db.AnalysisRecord{
		ID:               result.ID,
		WindowStart:      result.WindowStart,
		WindowEnd:        result.WindowEnd,
		TotalMetrics:     result.Statistics.TotalMetrics,
		AnomalousMetrics: result.Statistics.AnomalousMetrics,
		Summary:          result.Summary,
		Result:           string(payload),
		CreatedAt:        result.GeneratedAt,
	}
	if len(result.RootCauseCandidates) > 0 {
		rec.TopCause = result.RootCauseCandidates[0].Metric
		rec.TopConfidence = result.RootCauseCandidates[0].Confidence
	}

	if err := s.store.SaveAnalysis(ctx, rec); err != nil {
		s.logger.Warn("failed to store analysis",
			zap.String("id", result.ID), zap.Error(err))
		return
	}
	metrics.AnalysesStored.Inc()
}
