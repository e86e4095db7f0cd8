package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RCA service metrics for production monitoring
var (
	// Analysis metrics
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiops_rca_analyses_total",
			Help: "Total number of root-cause analysis runs",
		},
		[]string{"status"},
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aiops_rca_analysis_duration_seconds",
			Help:    "Root-cause analysis duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
	)

	AnomalousMetrics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiops_rca_anomalous_metrics_total",
			Help: "Total number of metrics reported anomalous",
		},
		[]string{"severity"},
	)

	// Detector metrics
	DetectorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiops_rca_detector_failures_total",
			Help: "Total number of contained detector method failures",
		},
		[]string{"method"},
	)

	// Summarizer metrics
	SummarizerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiops_rca_summarizer_requests_total",
			Help: "Total number of summarizer invocations",
		},
		[]string{"outcome"}, // outcome: ok/error/fallback
	)

	// Persistence metrics
	AnalysesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aiops_rca_analyses_stored_total",
			Help: "Total number of analysis results persisted",
		},
	)

	// Collector metrics
	CollectorRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiops_rca_collector_requests_total",
			Help: "Total number of metric collector queries",
		},
		[]string{"status"},
	)
)
