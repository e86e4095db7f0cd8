package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/collector"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/timeseries"
	"github.com/GoSimplicity/AI-CloudOps-sub000/pkg/types"
)

func postAnalyze(t *testing.T, h http.Handler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyze_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyze", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestAnalyze_InvalidBody(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader("{not json"))
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestAnalyze_EmptyRequest(t *testing.T) {
	srv := newTestServer(t)
	rec := postAnalyze(t, srv.Handler(), types.AnalyzeRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a request without metrics or targets, got %d", rec.Code)
	}
}

func TestAnalyze_QuietMetrics(t *testing.T) {
	srv := newTestServer(t)
	rec := postAnalyze(t, srv.Handler(), types.AnalyzeRequest{Metrics: steadyMetrics(60)})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result rca.AnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Statistics.TotalMetrics != 2 {
		t.Errorf("Expected 2 analyzed metrics, got %d", result.Statistics.TotalMetrics)
	}
	if result.Statistics.AnomalousMetrics != 0 {
		t.Errorf("Expected no anomalies on quiet input, got %d", result.Statistics.AnomalousMetrics)
	}
	if !strings.Contains(result.Summary, "No anomalous behavior") {
		t.Errorf("Expected the quiet-window summary, got %q", result.Summary)
	}
}

func TestAnalyze_Incident(t *testing.T) {
	srv := newTestServer(t)
	rec := postAnalyze(t, srv.Handler(), types.AnalyzeRequest{Metrics: incidentMetrics()})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result rca.AnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if _, ok := result.Anomalies["cpu_usage"]; !ok {
		t.Error("Expected cpu_usage among anomalies")
	}
	if _, ok := result.Anomalies["disk_total"]; ok {
		t.Error("Expected the flat series to stay out of the anomalies")
	}
	if len(result.RootCauseCandidates) == 0 {
		t.Fatal("Expected root cause candidates")
	}
	if result.RootCauseCandidates[0].Metric != "cpu_usage" {
		t.Errorf("Expected cpu_usage ranked first, got %s", result.RootCauseCandidates[0].Metric)
	}

	// The run must also land in the history store.
	rec2 := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil))
	if rec2.Code != http.StatusOK {
		t.Fatalf("Expected 200 from history listing, got %d", rec2.Code)
	}
	var listing struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec2.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if listing.Count != 1 {
		t.Errorf("Expected one stored analysis, got %d", listing.Count)
	}
}

func TestAnalyze_InlineMetricsWinOverTargets(t *testing.T) {
	srv := newTestServer(t)
	// No collector configured: the inline form must still succeed even when
	// targets are also present.
	req := types.AnalyzeRequest{
		Metrics: steadyMetrics(30),
		Targets: []types.Target{{Name: "cpu", Query: "up"}},
	}
	rec := postAnalyze(t, srv.Handler(), req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected inline metrics to win, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyze_TargetsWithoutCollector(t *testing.T) {
	srv := newTestServer(t)
	req := types.AnalyzeRequest{Targets: []types.Target{{Name: "cpu", Query: "up"}}}
	rec := postAnalyze(t, srv.Handler(), req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a collector, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "collector") {
		t.Errorf("Expected the error to mention the missing collector, got %s", rec.Body.String())
	}
}

type fixedCollector struct {
	series  map[string]*timeseries.MetricSeries
	err     error
	gotStep time.Duration
}

func (f *fixedCollector) Collect(_ context.Context, _ []collector.Target, _, _ time.Time, step time.Duration) (map[string]*timeseries.MetricSeries, error) {
	f.gotStep = step
	return f.series, f.err
}

func TestAnalyze_Targets(t *testing.T) {
	srv := newTestServer(t)

	pairs := make([][2]float64, 60)
	for i := range pairs {
		pairs[i] = [2]float64{1700000000 + float64(i)*60, float64(i % 7)}
	}
	fixed := &fixedCollector{series: map[string]*timeseries.MetricSeries{
		"cpu": timeseries.FromPairs("cpu", pairs),
		"mem": timeseries.FromPairs("mem", pairs),
	}}
	srv.collector = fixed

	req := types.AnalyzeRequest{
		Targets:     []types.Target{{Name: "cpu", Query: "node_cpu"}, {Name: "mem", Query: "node_mem"}},
		Start:       1700000000,
		End:         1700003600,
		StepSeconds: 30,
	}
	rec := postAnalyze(t, srv.Handler(), req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if fixed.gotStep != 30*time.Second {
		t.Errorf("Expected the requested step to reach the collector, got %v", fixed.gotStep)
	}
}

func TestAnalyze_CollectorFailure(t *testing.T) {
	srv := newTestServer(t)
	srv.collector = &fixedCollector{err: fmt.Errorf("prometheus unreachable")}

	req := types.AnalyzeRequest{Targets: []types.Target{{Name: "cpu", Query: "up"}}}
	rec := postAnalyze(t, srv.Handler(), req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 on collection failure, got %d", rec.Code)
	}
}

func TestAnalyze_InvertedWindow(t *testing.T) {
	srv := newTestServer(t)
	srv.collector = &fixedCollector{}

	req := types.AnalyzeRequest{
		Targets: []types.Target{{Name: "cpu", Query: "up"}},
		Start:   2000,
		End:     1000,
	}
	rec := postAnalyze(t, srv.Handler(), req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an inverted window, got %d", rec.Code)
	}
}

func TestAnalyze_NoUsableSamples(t *testing.T) {
	srv := newTestServer(t)
	// All-NaN input survives decoding but leaves nothing to analyze.
	rec := postAnalyze(t, srv.Handler(), map[string]interface{}{
		"metrics": map[string]interface{}{},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an empty metric map, got %d", rec.Code)
	}
}
