package rca

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/metrics"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/anomaly"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/correlation"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/rootcause"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/timeseries"
)

// Package rca implements the root-cause-analysis engine. The coordinator
// runs the full pipeline over a batch of metric series: ensemble anomaly
// detection, correlation analysis, lagged causality probing, and candidate
// ranking, then attaches a narrative summary.
//
// Responsibilities:
//   - Orchestrate the detection, correlation, and ranking stages
//   - Snapshot tunable thresholds once per run for consistency
//   - Assemble the AnalysisResult consumed by the service layer
//   - Degrade gracefully when the summarizer fails or is absent
//
// The pipeline itself is synchronous; concurrency lives inside the
// anomaly detector's worker pool.

// Pipeline phase names reported through Options.OnPhase.
const (
	PhaseDetection   = "anomaly_detection"
	PhaseCorrelation = "correlation"
	PhaseRanking     = "ranking"
	PhaseSummary     = "summary"
)

// Options bundles the per-stage tunables of the pipeline.
type Options struct {
	Detector       anomaly.Options
	Correlator     correlation.Options
	SummaryTimeout time.Duration

	// OnPhase, when set, is invoked synchronously before each pipeline
	// stage with one of the Phase* constants.
	OnPhase func(phase string)
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		Detector:       anomaly.DefaultOptions(),
		Correlator:     correlation.DefaultOptions(),
		SummaryTimeout: 15 * time.Second,
	}
}

// Coordinator wires the analysis stages together.
type Coordinator struct {
	config     *Config
	opts       Options
	detector   anomaly.Detector
	analyzer   *correlation.Analyzer
	ranker     *rootcause.Ranker
	summarizer Summarizer
	logger     *zap.Logger
}

// NewCoordinator builds a pipeline with the given configuration. A nil
// config falls back to defaults and a nil summarizer disables narrative
// generation in favor of the templated fallback.
func NewCoordinator(config *Config, summarizer Summarizer, opts Options, logger *zap.Logger) *Coordinator {
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SummaryTimeout <= 0 {
		opts.SummaryTimeout = 15 * time.Second
	}
	return &Coordinator{
		config:     config,
		opts:       opts,
		detector:   anomaly.NewDetector(opts.Detector, logger.Named("anomaly")),
		analyzer:   correlation.NewAnalyzer(opts.Correlator, logger.Named("correlation")),
		ranker:     rootcause.NewRanker(logger.Named("rootcause")),
		summarizer: summarizer,
		logger:     logger,
	}
}

// Config exposes the live threshold configuration for the service layer.
func (c *Coordinator) Config() *Config {
	return c.config
}

// WithProgress returns a coordinator that shares this coordinator's
// configuration and stages but reports pipeline phases through fn.
func (c *Coordinator) WithProgress(fn func(phase string)) *Coordinator {
	clone := *c
	clone.opts.OnPhase = fn
	return &clone
}

func (c *Coordinator) phase(name string) {
	if c.opts.OnPhase != nil {
		c.opts.OnPhase(name)
	}
}

// Analyze runs the full pipeline over the given series and returns the
// assembled result. It returns ErrNoData when there is nothing to analyze.
func (c *Coordinator) Analyze(ctx context.Context, series map[string]*timeseries.MetricSeries) (*AnalysisResult, error) {
	if len(series) == 0 {
		metrics.AnalysesTotal.WithLabelValues("no_data").Inc()
		return nil, ErrNoData
	}

	start := time.Now()
	anomalyThreshold, correlationThreshold := c.config.Snapshot()

	c.logger.Info("analysis started",
		zap.Int("metrics", len(series)),
		zap.Float64("anomaly_threshold", anomalyThreshold),
		zap.Float64("correlation_threshold", correlationThreshold))

	c.phase(PhaseDetection)
	reports := c.detector.Detect(ctx, series, anomalyThreshold)

	c.phase(PhaseCorrelation)
	graph := c.analyzer.Correlate(series, correlationThreshold)

	anomalous := make([]string, 0, len(reports))
	for name := range reports {
		anomalous = append(anomalous, name)
	}
	sort.Strings(anomalous)
	hints := c.analyzer.Causality(series, anomalous)

	c.phase(PhaseRanking)
	candidates := c.ranker.Rank(reports, graph, hints)

	result := c.assemble(series, reports, graph, candidates, hints, anomalyThreshold, correlationThreshold)
	result.Statistics.AnalysisDurationSeconds = time.Since(start).Seconds()

	c.phase(PhaseSummary)
	result.Summary = c.summarize(ctx, result)

	metrics.AnalysesTotal.WithLabelValues("ok").Inc()
	metrics.AnalysisDuration.Observe(result.Statistics.AnalysisDurationSeconds)
	for _, report := range reports {
		metrics.AnomalousMetrics.WithLabelValues(string(report.Severity)).Inc()
	}

	c.logger.Info("analysis completed",
		zap.String("id", result.ID),
		zap.Int("anomalous_metrics", result.Statistics.AnomalousMetrics),
		zap.Int("candidates", len(result.RootCauseCandidates)),
		zap.Float64("duration_seconds", result.Statistics.AnalysisDurationSeconds))

	return result, nil
}

func (c *Coordinator) assemble(
	series map[string]*timeseries.MetricSeries,
	reports map[string]*anomaly.Report,
	graph map[string][]correlation.Edge,
	candidates []rootcause.Candidate,
	hints []correlation.CausalHint,
	anomalyThreshold, correlationThreshold float64,
) *AnalysisResult {
	anomalies := make(map[string]*MetricAnomaly, len(reports))
	for name, report := range reports {
		entry := &MetricAnomaly{
			Count:            len(report.FlaggedPoints),
			MaxScore:         report.MaxScore,
			AvgScore:         report.AvgScore,
			Severity:         report.Severity,
			DetectionMethods: report.PerMethodCounts,
		}
		if len(report.FlaggedPoints) > 0 {
			entry.FirstOccurrence = report.FlaggedPoints[0]
			entry.LastOccurrence = report.FlaggedPoints[len(report.FlaggedPoints)-1]
		}
		anomalies[name] = entry
	}

	correlations := make(map[string][]Correlation, len(graph))
	pairs := make(map[string]struct{})
	for name, edges := range graph {
		list := make([]Correlation, 0, len(edges))
		for _, edge := range edges {
			list = append(list, Correlation{
				RelatedMetric: edge.MetricB,
				Coefficient:   edge.Coefficient,
			})
			a, b := edge.MetricA, edge.MetricB
			if a > b {
				a, b = b, a
			}
			pairs[a+"\x00"+b] = struct{}{}
		}
		correlations[name] = list
	}

	var windowStart, windowEnd time.Time
	for _, s := range series {
		start, end, ok := s.Window()
		if !ok {
			continue
		}
		if windowStart.IsZero() || start.Before(windowStart) {
			windowStart = start
		}
		if end.After(windowEnd) {
			windowEnd = end
		}
	}

	return &AnalysisResult{
		ID:                  uuid.NewString(),
		WindowStart:         windowStart,
		WindowEnd:           windowEnd,
		Anomalies:           anomalies,
		Correlations:        correlations,
		RootCauseCandidates: candidates,
		CausalHints:         hints,
		Statistics: Statistics{
			TotalMetrics:     len(series),
			AnomalousMetrics: len(reports),
			CorrelationPairs: len(pairs),
		},
		Thresholds: Thresholds{
			Anomaly:     anomalyThreshold,
			Correlation: correlationThreshold,
		},
		GeneratedAt: time.Now().UTC(),
	}
}

// summarize invokes the configured summarizer with a bounded timeout and
// falls back to the templated summary on any failure.
func (c *Coordinator) summarize(ctx context.Context, result *AnalysisResult) string {
	if c.summarizer == nil {
		return fallbackSummary(result)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.SummaryTimeout)
	defer cancel()

	text, err := c.callSummarizer(ctx, result)
	switch {
	case err != nil:
		metrics.SummarizerRequests.WithLabelValues("error").Inc()
		c.logger.Warn("summarizer failed, using fallback", zap.Error(err))
		return fallbackSummary(result)
	case strings.TrimSpace(text) == "":
		metrics.SummarizerRequests.WithLabelValues("fallback").Inc()
		c.logger.Warn("summarizer returned empty text, using fallback")
		return fallbackSummary(result)
	default:
		metrics.SummarizerRequests.WithLabelValues("ok").Inc()
		return text
	}
}

func (c *Coordinator) callSummarizer(ctx context.Context, result *AnalysisResult) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("summarizer panicked: %v", r)
		}
	}()
	return c.summarizer.Summarize(ctx, result)
}
