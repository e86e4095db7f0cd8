package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/GoSimplicity/AI-CloudOps-sub000/pkg/types"
)

// handleThresholds reads or updates the live engine thresholds.
func (s *Server) handleThresholds(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleThresholdsGet(w, r)
	case http.MethodPut:
		s.handleThresholdsUpdate(w, r)
	default:
		jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleThresholdsGet(w http.ResponseWriter, _ *http.Request) {
	anomalyT, correlationT := s.coordinator.Config().Snapshot()
	writeJSON(w, http.StatusOK, types.ThresholdsResponse{
		AnomalyThreshold:     anomalyT,
		CorrelationThreshold: correlationT,
	})
}

// handleThresholdsUpdate applies a partial threshold update. Both supplied
// values are validated before either is applied, so a rejected request never
// half-updates the configuration.
func (s *Server) handleThresholdsUpdate(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateThresholdsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.AnomalyThreshold == nil && req.CorrelationThreshold == nil {
		jsonError(w, http.StatusBadRequest, "no thresholds supplied")
		return
	}
	for _, t := range []*float64{req.AnomalyThreshold, req.CorrelationThreshold} {
		if t != nil && (*t <= 0 || *t > 1) {
			jsonError(w, http.StatusBadRequest, fmt.Sprintf("threshold %g out of range (0,1]", *t))
			return
		}
	}

	cfg := s.coordinator.Config()
	if req.AnomalyThreshold != nil {
		if err := cfg.SetAnomalyThreshold(*req.AnomalyThreshold); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.CorrelationThreshold != nil {
		if err := cfg.SetCorrelationThreshold(*req.CorrelationThreshold); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	anomalyT, correlationT := cfg.Snapshot()
	s.logger.Info("engine thresholds updated",
		zap.Float64("anomaly_threshold", anomalyT),
		zap.Float64("correlation_threshold", correlationT))

	writeJSON(w, http.StatusOK, types.ThresholdsResponse{
		AnomalyThreshold:     anomalyT,
		CorrelationThreshold: correlationT,
	})
}
