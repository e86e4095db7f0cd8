package anomaly

import (
	"context"
	"time"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/timeseries"
)

// Package anomaly provides ensemble anomaly detection over metric series.
//
// Responsibilities:
//   - Score every sample of every series with six independent detectors
//   - Combine per-method verdicts into one composite score per sample
//   - Report flagged samples with severity and per-method agreement counts
//   - Contain numerical failures of one method to that method
//   - Skip series that cannot be scored (too short, zero variance)
//
// Detection Methods (composite weight in parentheses):
//
//   1. Robust Z-Score (0.20)
//      - Median/MAD location and scale, flag |z| > 3.0
//      - Outlier-resistant: the spikes being hunted do not inflate the scale
//
//   2. Interquartile Range (0.20)
//      - Tukey fences at Q1 - 1.5*IQR and Q3 + 1.5*IQR
//      - Handles non-normal and heavy-tailed distributions
//
//   3. Isolation Forest (0.25)
//      - Randomized binary partition trees, seeded for reproducibility
//      - Flags the most isolated points up to the contamination fraction
//      - Skipped below 10 samples
//
//   4. DBSCAN (0.15)
//      - Density clustering of the standardized series
//      - Points belonging to no cluster are flagged as noise
//      - Skipped below 2x the minimum neighborhood size
//
//   5. Moving-Average Deviation (0.15)
//      - Trailing window of 10, flag |value - mean| / std > 2.0
//      - Catches level shifts the global detectors average away
//
//   6. Stationarity (0.05)
//      - Simplified Dickey-Fuller unit-root score for the whole series
//      - Broadcast to all samples as a continuous contribution, not a flag
//
// A sample counts as anomalous when its composite score exceeds the
// configured anomaly threshold. Metrics without any flagged sample are
// omitted from the result entirely.
//
// Integration Points:
//   - RCA Coordinator: runs detection as the first analysis stage
//   - Correlation Analyzer: consumes the same series after the detection barrier
//   - Root Cause Ranker: consumes Report counts and scores
//   - Metrics: contained method failures are counted per method

// Severity buckets a metric's worst composite score.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Ensemble method names as reported in Report.PerMethodCounts.
const (
	MethodZScore          = "zscore"
	MethodIQR             = "iqr"
	MethodIsolationForest = "isolation_forest"
	MethodDBSCAN          = "dbscan"
	MethodMovingAverage   = "moving_average"
	MethodStationarity    = "stationarity"
)

// Report describes the anomalous samples of one metric. A report exists only
// for metrics with at least one flagged sample; it is owned by the analysis
// run that produced it and read-only afterward.
type Report struct {
	Metric          string         `json:"metric"`
	FlaggedPoints   []time.Time    `json:"flagged_points"`
	PerMethodCounts map[string]int `json:"per_method_counts"`
	MaxScore        float64        `json:"max_score"`
	AvgScore        float64        `json:"avg_score"`
	Severity        Severity       `json:"severity"`
}

// Detector defines the interface for ensemble anomaly detection.
type Detector interface {
	// Detect runs the ensemble over every series and returns a report per
	// metric with at least one composite score above threshold. Series that
	// cannot be scored are excluded, never errored; the context cancels the
	// per-metric worker loop for very large metric sets.
	Detect(ctx context.Context, series map[string]*timeseries.MetricSeries, threshold float64) map[string]*Report
}

// Options tunes the ensemble.
type Options struct {
	// MinSamples is the minimum number of clean samples a series needs to be
	// scored at all.
	MinSamples int

	// Workers bounds the detection worker pool. Zero means one per CPU.
	Workers int

	// Contamination is the fraction of samples the isolation forest is
	// allowed to flag, in (0,1).
	Contamination float64

	// Seed fixes the isolation forest's split randomness so identical input
	// yields identical reports.
	Seed int64
}

// DefaultOptions returns the production detector settings.
func DefaultOptions() Options {
	return Options{
		MinSamples:    5,
		Workers:       0,
		Contamination: 0.10,
		Seed:          1,
	}
}

// NewDetector creates the ensemble detector.
// The concrete implementation is in detector_impl.go.
