package rca

import (
	"context"
	"fmt"
	"strings"
)

// Summarizer turns a finished analysis into a human-readable narrative.
// Implementations live at the service boundary; the engine tolerates any
// failure shape from them, including panics, and degrades to a templated
// summary.
type Summarizer interface {
	Summarize(ctx context.Context, result *AnalysisResult) (string, error)
}

// fallbackSummary builds a deterministic summary from the structured
// result when no summarizer is configured or the configured one fails.
func fallbackSummary(result *AnalysisResult) string {
	stats := result.Statistics
	if stats.AnomalousMetrics == 0 {
		return fmt.Sprintf("No anomalous behavior detected across %d metrics in the analysis window.", stats.TotalMetrics)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Detected anomalies in %d of %d metrics with %d correlated metric pairs.",
		stats.AnomalousMetrics, stats.TotalMetrics, stats.CorrelationPairs)

	if len(result.RootCauseCandidates) > 0 {
		top := result.RootCauseCandidates[0]
		fmt.Fprintf(&b, " Most likely root cause: %s (confidence %.2f). %s.",
			top.Metric, top.Confidence, top.Description)

		if len(result.RootCauseCandidates) > 1 {
			others := make([]string, 0, len(result.RootCauseCandidates)-1)
			for _, c := range result.RootCauseCandidates[1:] {
				others = append(others, c.Metric)
			}
			fmt.Fprintf(&b, " Other candidates: %s.", strings.Join(others, ", "))
		}
	}
	return b.String()
}
