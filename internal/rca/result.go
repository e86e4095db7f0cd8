package rca

import (
	"time"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/anomaly"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/correlation"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/rootcause"
)

// MetricAnomaly summarizes one metric's flagged behavior for the service
// layer.
type MetricAnomaly struct {
	Count            int              `json:"count"`
	FirstOccurrence  time.Time        `json:"first_occurrence"`
	LastOccurrence   time.Time        `json:"last_occurrence"`
	MaxScore         float64          `json:"max_score"`
	AvgScore         float64          `json:"avg_score"`
	Severity         anomaly.Severity `json:"severity"`
	DetectionMethods map[string]int   `json:"detection_methods"`
}

// Correlation is one related-metric entry in the output graph.
type Correlation struct {
	RelatedMetric string  `json:"related_metric"`
	Coefficient   float64 `json:"coefficient"`
}

// Statistics aggregates counters for one analysis run.
type Statistics struct {
	TotalMetrics            int     `json:"total_metrics"`
	AnomalousMetrics        int     `json:"anomalous_metrics"`
	CorrelationPairs        int     `json:"correlation_pairs"`
	AnalysisDurationSeconds float64 `json:"analysis_duration_seconds"`
}

// Thresholds records the configuration values that were active for the run.
type Thresholds struct {
	Anomaly     float64 `json:"anomaly"`
	Correlation float64 `json:"correlation"`
}

// AnalysisResult is the full outcome of one analyze call. It is owned by
// the caller and never retained by the engine.
type AnalysisResult struct {
	ID                  string                    `json:"id"`
	WindowStart         time.Time                 `json:"window_start"`
	WindowEnd           time.Time                 `json:"window_end"`
	Anomalies           map[string]*MetricAnomaly `json:"anomalies"`
	Correlations        map[string][]Correlation  `json:"correlations"`
	RootCauseCandidates []rootcause.Candidate     `json:"root_cause_candidates"`
	CausalHints         []correlation.CausalHint  `json:"causal_hints,omitempty"`
	Summary             string                    `json:"summary"`
	Statistics          Statistics                `json:"statistics"`
	Thresholds          Thresholds                `json:"thresholds"`
	GeneratedAt         time.Time                 `json:"generated_at"`
}
