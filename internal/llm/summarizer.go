package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca"
)

// SystemPrompt frames every summary request sent to a provider.
const SystemPrompt = "You are an SRE assistant summarizing root-cause analysis output. Lead with the most likely root cause, mention strong correlations and anomaly severity, and keep the summary under five sentences. Only reference metrics present in the input."

// Summarizer renders analysis results into prompts and turns provider
// completions into incident summaries. It implements the engine's
// Summarizer interface.
type Summarizer struct {
	provider Provider
	logger   *zap.Logger
}

// NewSummarizer creates a summarizer backed by the given provider.
func NewSummarizer(provider Provider, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{
		provider: provider,
		logger:   logger,
	}
}

// Summarize produces a narrative summary for one analysis result.
func (s *Summarizer) Summarize(ctx context.Context, result *rca.AnalysisResult) (string, error) {
	if s.provider == nil {
		return "", fmt.Errorf("no LLM provider configured")
	}

	messages := []Message{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: buildPrompt(result)},
	}

	text, err := s.provider.Complete(ctx, messages)
	if err != nil {
		s.logger.Warn("summary completion failed",
			zap.String("provider", s.provider.Name()),
			zap.Error(err))
		return "", err
	}

	return strings.TrimSpace(text), nil
}

// buildPrompt renders the analysis result into a deterministic digest. Maps
// are walked in sorted order so identical results yield identical prompts.
func buildPrompt(result *rca.AnalysisResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analysis window: %s to %s\n",
		result.WindowStart.Format("2006-01-02 15:04:05 MST"),
		result.WindowEnd.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Metrics analyzed: %d, anomalous: %d, correlated pairs: %d\n",
		result.Statistics.TotalMetrics,
		result.Statistics.AnomalousMetrics,
		result.Statistics.CorrelationPairs)

	if len(result.Anomalies) > 0 {
		b.WriteString("\nAnomalous metrics:\n")
		names := make([]string, 0, len(result.Anomalies))
		for name := range result.Anomalies {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			entry := result.Anomalies[name]
			methods := make([]string, 0, len(entry.DetectionMethods))
			for method := range entry.DetectionMethods {
				methods = append(methods, method)
			}
			sort.Strings(methods)
			fmt.Fprintf(&b, "- %s: %d anomalous samples, severity %s, max score %.2f, methods: %s\n",
				name, entry.Count, entry.Severity, entry.MaxScore, strings.Join(methods, ", "))
		}
	}

	if len(result.RootCauseCandidates) > 0 {
		b.WriteString("\nRanked root cause candidates:\n")
		for i, candidate := range result.RootCauseCandidates {
			fmt.Fprintf(&b, "%d. %s (confidence %.2f): %s\n",
				i+1, candidate.Metric, candidate.Confidence, candidate.Description)
			for _, related := range candidate.RelatedMetrics {
				fmt.Fprintf(&b, "   correlates with %s (coefficient %.2f)\n",
					related.Metric, related.Coefficient)
			}
		}
	}

	if len(result.CausalHints) > 0 {
		b.WriteString("\nLead-lag signals:\n")
		for _, hint := range result.CausalHints {
			fmt.Fprintf(&b, "- %s precedes %s (max lagged correlation %.2f)\n",
				hint.Cause, hint.Effect, hint.MaxAbsCorr)
		}
	}

	b.WriteString("\nWrite the incident summary.")
	return b.String()
}
