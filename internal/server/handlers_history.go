package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/db"
)

// History endpoints serve stored analyses. Listing returns the summary
// columns only; fetching by ID includes the full result payload.

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// analysisListEntry is one history row as served over the API.
type analysisListEntry struct {
	ID               string    `json:"id"`
	WindowStart      time.Time `json:"window_start"`
	WindowEnd        time.Time `json:"window_end"`
	TotalMetrics     int       `json:"total_metrics"`
	AnomalousMetrics int       `json:"anomalous_metrics"`
	TopCause         string    `json:"top_cause"`
	TopConfidence    float64   `json:"top_confidence"`
	Summary          string    `json:"summary"`
	CreatedAt        time.Time `json:"created_at"`
}

func listEntry(rec *db.AnalysisRecord) analysisListEntry {
	return analysisListEntry{
		ID:               rec.ID,
		WindowStart:      rec.WindowStart,
		WindowEnd:        rec.WindowEnd,
		TotalMetrics:     rec.TotalMetrics,
		AnomalousMetrics: rec.AnomalousMetrics,
		TopCause:         rec.TopCause,
		TopConfidence:    rec.TopConfidence,
		Summary:          rec.Summary,
		CreatedAt:        rec.CreatedAt,
	}
}

// handleAnalysesList serves GET /api/v1/analyses.
func (s *Server) handleAnalysesList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		jsonError(w, http.StatusServiceUnavailable, "analysis history is not enabled")
		return
	}

	limit := queryInt(r, "limit", defaultHistoryLimit)
	if limit < 1 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	records, err := s.store.ListAnalyses(r.Context(), limit, offset)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}

	entries := make([]analysisListEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, listEntry(rec))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"analyses": entries,
		"count":    len(entries),
		"limit":    limit,
		"offset":   offset,
	})
}

// handleAnalysisByID serves GET and DELETE on /api/v1/analyses/{id}.
func (s *Server) handleAnalysisByID(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		jsonError(w, http.StatusServiceUnavailable, "analysis history is not enabled")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/analyses/")
	if id == "" || strings.Contains(id, "/") {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, err := s.store.GetAnalysis(r.Context(), id)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				jsonError(w, http.StatusNotFound, "analysis not found")
				return
			}
			jsonError(w, http.StatusInternalServerError, "failed to load analysis")
			return
		}
		// The stored payload is the original AnalysisResult JSON; hand it
		// back verbatim instead of re-encoding through intermediate structs.
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"analysis": listEntry(rec),
			"result":   json.RawMessage(rec.Result),
		})

	case http.MethodDelete:
		if err := s.store.DeleteAnalysis(r.Context(), id); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				jsonError(w, http.StatusNotFound, "analysis not found")
				return
			}
			jsonError(w, http.StatusInternalServerError, "failed to delete analysis")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})

	default:
		jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
