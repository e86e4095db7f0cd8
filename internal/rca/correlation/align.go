package correlation

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/timeseries"
)

// Grid resolution for cross-metric alignment. The original collector emits
// samples at sub-minute cadence, a fixed 1-minute bucket keeps the matrix
// small without losing incident-scale structure.
const gridStep = time.Minute

// alignedFrame is the matrix form of a metric set: one row per kept grid
// timestamp, one column per surviving metric. Missing cells are NaN.
type alignedFrame struct {
	names []string
	times []time.Time
	cols  [][]float64
}

// column returns the values for a metric name, nil if the column was dropped.
func (f *alignedFrame) column(name string) []float64 {
	for i, n := range f.names {
		if n == name {
			return f.cols[i]
		}
	}
	return nil
}

// align resamples every series onto the shared 1-minute grid in explicit,
// ordered passes: bucket each series (bucket mean on collision), linearly
// interpolate interior gaps, drop under-populated rows, then drop
// zero-variance columns. Column order is sorted by name so downstream
// iteration is deterministic.
func align(series map[string]*timeseries.MetricSeries, logger *zap.Logger) *alignedFrame {
	names := make([]string, 0, len(series))
	for name, s := range series {
		if s != nil && s.Len() > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return &alignedFrame{}
	}

	// Shared grid spanning the earliest to the latest bucket.
	var gridStart, gridEnd time.Time
	for i, name := range names {
		start, end, _ := series[name].Window()
		start, end = start.Truncate(gridStep), end.Truncate(gridStep)
		if i == 0 || start.Before(gridStart) {
			gridStart = start
		}
		if i == 0 || end.After(gridEnd) {
			gridEnd = end
		}
	}
	rows := int(gridEnd.Sub(gridStart)/gridStep) + 1

	times := make([]time.Time, rows)
	for i := range times {
		times[i] = gridStart.Add(time.Duration(i) * gridStep)
	}

	cols := make([][]float64, len(names))
	for i, name := range names {
		cols[i] = bucketColumn(series[name], gridStart, rows)
		interpolate(cols[i])
	}

	frame := &alignedFrame{names: names, times: times, cols: cols}
	frame.dropSparseRows()
	frame.dropConstantColumns(logger)
	return frame
}

// bucketColumn places samples into grid cells, averaging collisions.
func bucketColumn(s *timeseries.MetricSeries, gridStart time.Time, rows int) []float64 {
	sums := make([]float64, rows)
	counts := make([]int, rows)
	for _, sample := range s.Samples {
		idx := int(sample.Timestamp.Truncate(gridStep).Sub(gridStart) / gridStep)
		if idx < 0 || idx >= rows {
			continue
		}
		sums[idx] += sample.Value
		counts[idx]++
	}

	col := make([]float64, rows)
	for i := range col {
		if counts[i] == 0 {
			col[i] = math.NaN()
		} else {
			col[i] = sums[i] / float64(counts[i])
		}
	}
	return col
}

// interpolate fills interior NaN runs linearly between their known
// neighbors. Leading and trailing gaps stay missing.
func interpolate(col []float64) {
	n := len(col)
	i := 0
	for i < n {
		if !math.IsNaN(col[i]) {
			i++
			continue
		}
		start := i
		for i < n && math.IsNaN(col[i]) {
			i++
		}
		if start == 0 || i == n {
			continue
		}
		lo, hi := col[start-1], col[i]
		steps := float64(i - start + 1)
		for j := start; j < i; j++ {
			col[j] = lo + (hi-lo)*float64(j-start+1)/steps
		}
	}
}

// dropSparseRows removes grid rows with too few populated cells to be worth
// correlating. The threshold is clamped to the column count so two-metric
// sets remain analyzable.
func (f *alignedFrame) dropSparseRows() {
	required := len(f.cols) / 2
	if required < 3 {
		required = 3
	}
	if required > len(f.cols) {
		required = len(f.cols)
	}

	kept := 0
	for row := range f.times {
		populated := 0
		for _, col := range f.cols {
			if !math.IsNaN(col[row]) {
				populated++
			}
		}
		if populated < required {
			continue
		}
		f.times[kept] = f.times[row]
		for i := range f.cols {
			f.cols[i][kept] = f.cols[i][row]
		}
		kept++
	}
	f.times = f.times[:kept]
	for i := range f.cols {
		f.cols[i] = f.cols[i][:kept]
	}
}

// dropConstantColumns removes columns without variance. A constant metric
// cannot correlate with anything.
func (f *alignedFrame) dropConstantColumns(logger *zap.Logger) {
	kept := 0
	for i, name := range f.names {
		if columnVariance(f.cols[i]) == 0 {
			if logger != nil {
				logger.Debug("column dropped, zero variance",
					zap.String("metric", name))
			}
			continue
		}
		f.names[kept] = f.names[i]
		f.cols[kept] = f.cols[i]
		kept++
	}
	f.names = f.names[:kept]
	f.cols = f.cols[:kept]
}

// columnVariance is the population variance over the populated cells.
func columnVariance(col []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range col {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)

	variance := 0.0
	for _, v := range col {
		if !math.IsNaN(v) {
			variance += (v - mean) * (v - mean)
		}
	}
	return variance / float64(n)
}
