package anomaly

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/metrics"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/timeseries"
)

// Composite weights per method. They sum to 1.0 so a unanimous ensemble
// yields a composite score of exactly 1.0.
const (
	weightZScore          = 0.20
	weightIQR             = 0.20
	weightIsolationForest = 0.25
	weightDBSCAN          = 0.15
	weightMovingAverage   = 0.15
	weightStationarity    = 0.05
)

// detectorImpl is the concrete ensemble Detector.
type detectorImpl struct {
	opts   Options
	logger *zap.Logger
}

// NewDetector creates an ensemble detector. A nil logger disables logging.
func NewDetector(opts Options, logger *zap.Logger) Detector {
	if opts.MinSamples <= 0 {
		opts.MinSamples = 5
	}
	if opts.Contamination <= 0 || opts.Contamination >= 1 {
		opts.Contamination = 0.10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &detectorImpl{opts: opts, logger: logger}
}

// Detect scores every series on a bounded worker pool. Per-metric detection
// is independent, so one metric per job; the final Wait is the barrier the
// correlation stage depends on.
func (d *detectorImpl) Detect(ctx context.Context, series map[string]*timeseries.MetricSeries, threshold float64) map[string]*Report {
	reports := make(map[string]*Report)
	if len(series) == 0 {
		return reports
	}

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	workers := d.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(names) {
		workers = len(names)
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan string)
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				report := d.analyzeSeries(series[name], threshold)
				if report == nil {
					continue
				}
				mu.Lock()
				reports[name] = report
				mu.Unlock()
			}
		}()
	}

feed:
	for _, name := range names {
		select {
		case <-ctx.Done():
			d.logger.Warn("detection cancelled, returning partial reports",
				zap.Error(ctx.Err()))
			break feed
		case jobs <- name:
		}
	}
	close(jobs)
	wg.Wait()

	return reports
}

// analyzeSeries runs the full ensemble over one series. It returns nil when
// the series is skipped or no sample crosses the threshold.
func (d *detectorImpl) analyzeSeries(series *timeseries.MetricSeries, threshold float64) *Report {
	values := series.Values()
	n := len(values)
	if n < d.opts.MinSamples {
		d.logger.Debug("series skipped, too few samples",
			zap.String("metric", series.Name),
			zap.Int("samples", n))
		return nil
	}
	if stdDev(values) == 0 {
		d.logger.Debug("series skipped, zero variance",
			zap.String("metric", series.Name))
		return nil
	}

	flagMethods := []struct {
		name   string
		weight float64
		run    func([]float64) []bool
	}{
		{MethodZScore, weightZScore, zscoreFlags},
		{MethodIQR, weightIQR, iqrFlags},
		{MethodIsolationForest, weightIsolationForest, d.isolationForestFlags},
		{MethodDBSCAN, weightDBSCAN, dbscanFlags},
		{MethodMovingAverage, weightMovingAverage, movingAverageFlags},
	}

	composite := make([]float64, n)
	counts := make(map[string]int)

	for _, m := range flagMethods {
		flags := d.runFlagMethod(series.Name, m.name, m.run, values)
		if len(flags) != n {
			continue
		}
		flagged := 0
		for i, f := range flags {
			if f {
				composite[i] += m.weight
				flagged++
			}
		}
		if flagged > 0 {
			counts[m.name] = flagged
		}
	}

	// Stationarity is a per-series scalar broadcast to all samples.
	stationarity := d.runStationarity(series.Name, values)
	for i := range composite {
		composite[i] += weightStationarity * stationarity
	}

	var (
		flaggedTimes []time.Time
		maxScore     float64
		sumScore     float64
	)
	for i, score := range composite {
		if score > threshold {
			flaggedTimes = append(flaggedTimes, series.Samples[i].Timestamp)
			sumScore += score
			if score > maxScore {
				maxScore = score
			}
		}
	}
	if len(flaggedTimes) == 0 {
		return nil
	}

	return &Report{
		Metric:          series.Name,
		FlaggedPoints:   flaggedTimes,
		PerMethodCounts: counts,
		MaxScore:        maxScore,
		AvgScore:        sumScore / float64(len(flaggedTimes)),
		Severity:        severityFor(maxScore),
	}
}

// runFlagMethod isolates one detector method. A panic inside the method is
// logged and counted; the method then contributes no flags for this series
// and detection of the metric continues with the remaining methods.
func (d *detectorImpl) runFlagMethod(metric, method string, run func([]float64) []bool, values []float64) (flags []bool) {
	defer func() {
		if r := recover(); r != nil {
			metrics.DetectorFailures.WithLabelValues(method).Inc()
			d.logger.Warn("detector method panicked",
				zap.String("metric", metric),
				zap.String("method", method),
				zap.Any("panic", r))
			flags = nil
		}
	}()
	return run(values)
}

// runStationarity isolates the stationarity score the same way.
func (d *detectorImpl) runStationarity(metric string, values []float64) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			metrics.DetectorFailures.WithLabelValues(MethodStationarity).Inc()
			d.logger.Warn("detector method panicked",
				zap.String("metric", metric),
				zap.String("method", MethodStationarity),
				zap.Any("panic", r))
			score = 0
		}
	}()
	return stationarityScore(values)
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func severityFor(maxScore float64) Severity {
	switch {
	case maxScore > 0.8:
		return SeverityHigh
	case maxScore > 0.6:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
