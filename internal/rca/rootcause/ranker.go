// Package rootcause turns anomaly reports and the correlation graph into a
// ranked list of root-cause candidates with explainable confidence scores.
package rootcause

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/anomaly"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/correlation"
)

// At most this many candidates are reported per analysis run.
const maxCandidates = 5

// Confidence factor caps. Confidence is the sum of the four factors below,
// clamped to 1.0.
const (
	countFactorCap       = 0.3
	countFactorScale     = 20.0
	correlationFactorCap = 0.2
	perRelatedFactor     = 0.05
	consistencyCap       = 0.15
	perMethodFactor      = 0.05
)

// RelatedMetric is one supporting correlation entry of a candidate.
type RelatedMetric struct {
	Metric      string  `json:"metric"`
	Coefficient float64 `json:"coefficient"`
}

// Candidate is a metric hypothesized to explain the observed anomalies.
type Candidate struct {
	Metric          string          `json:"metric"`
	Confidence      float64         `json:"confidence"`
	AnomalyCount    int             `json:"anomaly_count"`
	FirstOccurrence time.Time       `json:"first_occurrence"`
	RelatedMetrics  []RelatedMetric `json:"related_metrics"`
	Description     string          `json:"description"`
}

// Ranker scores and orders root-cause candidates.
type Ranker struct {
	logger *zap.Logger
}

// NewRanker creates a ranker. A nil logger disables logging.
func NewRanker(logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{logger: logger}
}

// Rank builds one candidate per anomalous metric and orders them by
// confidence descending, anomaly count descending, then metric name
// ascending. The causal hints only enrich descriptions, they carry no
// ranking weight.
func (r *Ranker) Rank(anomalies map[string]*anomaly.Report, correlations map[string][]correlation.Edge, hints []correlation.CausalHint) []Candidate {
	candidates := make([]Candidate, 0, len(anomalies))

	for metric, report := range anomalies {
		if report == nil || len(report.FlaggedPoints) == 0 {
			continue
		}

		related := make([]RelatedMetric, 0, len(correlations[metric]))
		for _, edge := range correlations[metric] {
			related = append(related, RelatedMetric{
				Metric:      edge.MetricB,
				Coefficient: edge.Coefficient,
			})
		}

		count := len(report.FlaggedPoints)
		confidence := confidenceScore(report, count, len(related))

		candidates = append(candidates, Candidate{
			Metric:          metric,
			Confidence:      confidence,
			AnomalyCount:    count,
			FirstOccurrence: report.FlaggedPoints[0],
			RelatedMetrics:  related,
			Description:     describe(metric, report, count, hints),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.AnomalyCount != b.AnomalyCount {
			return a.AnomalyCount > b.AnomalyCount
		}
		return a.Metric < b.Metric
	})

	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates
}

// confidenceScore combines the anomaly evidence into a [0,1] confidence:
// the worst composite score as the base, bumped by how often the metric
// misbehaved, how connected it is and how many methods agreed.
func confidenceScore(report *anomaly.Report, count, relatedCount int) float64 {
	base := report.MaxScore
	if base > 1 {
		base = 1
	}

	countFactor := float64(count) / countFactorScale
	if countFactor > countFactorCap {
		countFactor = countFactorCap
	}

	correlationFactor := float64(relatedCount) * perRelatedFactor
	if correlationFactor > correlationFactorCap {
		correlationFactor = correlationFactorCap
	}

	consistencyFactor := float64(len(report.PerMethodCounts)) * perMethodFactor
	if consistencyFactor > consistencyCap {
		consistencyFactor = consistencyCap
	}

	confidence := base + countFactor + correlationFactor + consistencyFactor
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

// describe renders a human-readable explanation from the metric name's
// category, the anomaly evidence and any lagged-correlation hint where this
// metric is the leading side.
func describe(metric string, report *anomaly.Report, count int, hints []correlation.CausalHint) string {
	lower := strings.ToLower(metric)

	var subject string
	switch {
	case strings.Contains(lower, "cpu"):
		subject = "CPU saturation or a runaway workload"
	case strings.Contains(lower, "mem"):
		subject = "memory pressure or a possible leak"
	case strings.Contains(lower, "restart"):
		subject = "crash-looping workloads"
	case strings.Contains(lower, "net"), strings.Contains(lower, "http"):
		subject = "network or HTTP traffic disruption"
	case strings.Contains(lower, "disk"), strings.Contains(lower, "storage"), strings.Contains(lower, "volume"):
		subject = "disk or storage pressure"
	case strings.Contains(lower, "node"):
		subject = "node-level resource degradation"
	case strings.Contains(lower, "pod"):
		subject = "pod-level instability"
	default:
		subject = "abnormal metric behavior"
	}

	desc := fmt.Sprintf("%s indicates %s: %d anomalous samples, peak score %.2f, average %.2f",
		metric, subject, count, report.MaxScore, report.AvgScore)

	for _, hint := range hints {
		if hint.Cause == metric && len(hint.Lags) > 0 {
			desc += fmt.Sprintf("; leads %s by %dm in lagged correlation",
				hint.Effect, hint.Lags[0])
			break
		}
	}
	return desc
}
