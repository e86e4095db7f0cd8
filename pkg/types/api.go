package types

// Package types defines the public REST API contracts of the RCA service,
// importable by external Go clients.

// Request types

// Point is one metric sample on the wire, encoded as [unix_seconds, value].
type Point [2]float64

// Target names one PromQL query to collect for an analysis.
type Target struct {
	Name  string `json:"name"`
	Query string `json:"query"`
}

// AnalyzeRequest starts one root-cause analysis. Metrics carries inline
// series; alternatively Targets plus a window pulls series from the
// configured Prometheus backend. Exactly one of the two forms must be set.
type AnalyzeRequest struct {
	Metrics map[string][]Point `json:"metrics,omitempty"`

	Targets     []Target `json:"targets,omitempty"`
	Start       float64  `json:"start,omitempty"` // unix seconds
	End         float64  `json:"end,omitempty"`   // unix seconds
	StepSeconds int      `json:"step_seconds,omitempty"`
}

// UpdateThresholdsRequest changes the live engine thresholds. A nil field
// leaves that threshold untouched; set fields must be in (0,1].
type UpdateThresholdsRequest struct {
	AnomalyThreshold     *float64 `json:"anomaly_threshold,omitempty"`
	CorrelationThreshold *float64 `json:"correlation_threshold,omitempty"`
}

// Response types

// ThresholdsResponse reports the active engine thresholds.
type ThresholdsResponse struct {
	AnomalyThreshold     float64 `json:"anomaly_threshold"`
	CorrelationThreshold float64 `json:"correlation_threshold"`
}

// MetricAnomaly is one metric's anomaly digest in an analysis response.
type MetricAnomaly struct {
	Count            int            `json:"count"`
	FirstOccurrence  string         `json:"first_occurrence"`
	LastOccurrence   string         `json:"last_occurrence"`
	MaxScore         float64        `json:"max_score"`
	AvgScore         float64        `json:"avg_score"`
	Severity         string         `json:"severity"`
	DetectionMethods map[string]int `json:"detection_methods"`
}

// Correlation is one related-metric entry.
type Correlation struct {
	RelatedMetric string  `json:"related_metric"`
	Coefficient   float64 `json:"coefficient"`
}

// RelatedMetric supports a root-cause candidate with a correlated metric.
type RelatedMetric struct {
	Metric      string  `json:"metric"`
	Coefficient float64 `json:"coefficient"`
}

// RootCauseCandidate is one ranked hypothesis.
type RootCauseCandidate struct {
	Metric          string          `json:"metric"`
	Confidence      float64         `json:"confidence"`
	AnomalyCount    int             `json:"anomaly_count"`
	FirstOccurrence string          `json:"first_occurrence"`
	RelatedMetrics  []RelatedMetric `json:"related_metrics"`
	Description     string          `json:"description"`
}

// Statistics aggregates counters for one analysis run.
type Statistics struct {
	TotalMetrics            int     `json:"total_metrics"`
	AnomalousMetrics        int     `json:"anomalous_metrics"`
	CorrelationPairs        int     `json:"correlation_pairs"`
	AnalysisDurationSeconds float64 `json:"analysis_duration_seconds"`
}

// AnalysisResponse is the full outcome of one analyze call.
type AnalysisResponse struct {
	ID                  string                   `json:"id"`
	WindowStart         string                   `json:"window_start"`
	WindowEnd           string                   `json:"window_end"`
	Anomalies           map[string]MetricAnomaly `json:"anomalies"`
	Correlations        map[string][]Correlation `json:"correlations"`
	RootCauseCandidates []RootCauseCandidate     `json:"root_cause_candidates"`
	Summary             string                   `json:"summary"`
	Statistics          Statistics               `json:"statistics"`
	GeneratedAt         string                   `json:"generated_at"`
}

// AnalysisListItem is one row of the analysis history listing.
type AnalysisListItem struct {
	ID               string  `json:"id"`
	WindowStart      string  `json:"window_start"`
	WindowEnd        string  `json:"window_end"`
	TotalMetrics     int     `json:"total_metrics"`
	AnomalousMetrics int     `json:"anomalous_metrics"`
	TopCause         string  `json:"top_cause"`
	TopConfidence    float64 `json:"top_confidence"`
	Summary          string  `json:"summary"`
	CreatedAt        string  `json:"created_at"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
