// Package correlation discovers statistical relationships between metric
// series. Series are aligned onto a common 1-minute grid, filtered for data
// quality and correlated pairwise with Pearson's coefficient; a lagged
// variant produces weak lead/lag hints between anomalous metrics.
package correlation

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/timeseries"
)

// MethodPearson is the only correlation method currently implemented.
const MethodPearson = "pearson"

// Edge is one directed correlation entry: MetricB is related to MetricA
// with the given coefficient. The graph stores an Edge under MetricA's key
// and the mirrored Edge under MetricB's key.
type Edge struct {
	MetricA     string  `json:"metric_a"`
	MetricB     string  `json:"metric_b"`
	Coefficient float64 `json:"coefficient"`
	Method      string  `json:"method"`
}

// Options tunes the analyzer.
type Options struct {
	// MinSamples is the minimum number of raw samples a series needs to
	// enter the correlation matrix.
	MinSamples int

	// MaxEdges caps the related-metrics list kept per metric.
	MaxEdges int

	// MinOverlap is the minimum number of shared populated rows a pair
	// needs for its coefficient to be trusted.
	MinOverlap int
}

// DefaultOptions returns the production analyzer settings.
func DefaultOptions() Options {
	return Options{
		MinSamples: 5,
		MaxEdges:   5,
		MinOverlap: 3,
	}
}

// Analyzer computes the pairwise correlation graph of a metric set.
type Analyzer struct {
	opts   Options
	logger *zap.Logger
}

// NewAnalyzer creates an analyzer. A nil logger disables logging.
func NewAnalyzer(opts Options, logger *zap.Logger) *Analyzer {
	if opts.MinSamples <= 0 {
		opts.MinSamples = 5
	}
	if opts.MaxEdges <= 0 {
		opts.MaxEdges = 5
	}
	if opts.MinOverlap < 2 {
		opts.MinOverlap = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{opts: opts, logger: logger}
}

// Correlate aligns the series and returns, per metric, the other metrics
// whose absolute Pearson coefficient reaches threshold, strongest first,
// capped at MaxEdges. Needs at least two series with enough samples,
// otherwise the result is empty. A single degenerate series only excludes
// itself, never the whole pass.
func (a *Analyzer) Correlate(series map[string]*timeseries.MetricSeries, threshold float64) map[string][]Edge {
	graph := make(map[string][]Edge)

	eligible := make(map[string]*timeseries.MetricSeries)
	for name, s := range series {
		if s == nil || s.Len() < a.opts.MinSamples {
			a.logger.Debug("series excluded from correlation, too few samples",
				zap.String("metric", name))
			continue
		}
		eligible[name] = s
	}
	if len(eligible) < 2 {
		return graph
	}

	frame := align(eligible, a.logger)
	if len(frame.names) < 2 {
		return graph
	}

	for i := 0; i < len(frame.names); i++ {
		for j := i + 1; j < len(frame.names); j++ {
			coef, ok := pearson(frame.cols[i], frame.cols[j], a.opts.MinOverlap)
			if !ok || math.Abs(coef) < threshold {
				continue
			}
			nameA, nameB := frame.names[i], frame.names[j]
			graph[nameA] = append(graph[nameA], Edge{
				MetricA: nameA, MetricB: nameB,
				Coefficient: coef, Method: MethodPearson,
			})
			graph[nameB] = append(graph[nameB], Edge{
				MetricA: nameB, MetricB: nameA,
				Coefficient: coef, Method: MethodPearson,
			})
		}
	}

	for name, edges := range graph {
		sort.Slice(edges, func(x, y int) bool {
			ax, ay := math.Abs(edges[x].Coefficient), math.Abs(edges[y].Coefficient)
			if ax != ay {
				return ax > ay
			}
			return edges[x].MetricB < edges[y].MetricB
		})
		if len(edges) > a.opts.MaxEdges {
			edges = edges[:a.opts.MaxEdges]
		}
		graph[name] = edges
	}

	return graph
}

// pearson computes the coefficient over rows where both columns are
// populated. The second return is false when the overlap is too small or a
// side has no variance over the shared rows.
func pearson(x, y []float64, minOverlap int) (float64, bool) {
	var (
		n          int
		sumX, sumY float64
	)
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		n++
		sumX += x[i]
		sumY += y[i]
	}
	if n < minOverlap {
		return 0, false
	}
	meanX, meanY := sumX/float64(n), sumY/float64(n)

	var sxx, syy, sxy float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		dx, dy := x[i]-meanX, y[i]-meanY
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, false
	}
	return sxy / math.Sqrt(sxx*syy), true
}
