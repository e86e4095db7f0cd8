package anomaly

import (
	"math"
	"sort"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/ml"
)

// Method parameters.
const (
	// Robust z-score: median/MAD with the normal-consistency constant, so
	// the scale estimate stays stable when the series already contains the
	// spikes being hunted.
	zscoreThreshold = 3.0
	madScale        = 0.6745

	iqrFenceFactor = 1.5

	forestTrees      = 100
	forestSubSample  = 256
	forestMinPoints  = 10
	forestNeutral    = 0.5

	// Eps is in standard deviations, the series is standardized first.
	dbscanEps = 0.5

	maWindow    = 10
	maThreshold = 2.0
)

// zscoreFlags flags samples whose robust z-score exceeds the threshold.
// A zero MAD yields no flags.
func zscoreFlags(values []float64) []bool {
	flags := make([]bool, len(values))
	med := median(values)
	m := mad(values, med)
	if m == 0 {
		return flags
	}
	for i, v := range values {
		if madScale*math.Abs(v-med)/m > zscoreThreshold {
			flags[i] = true
		}
	}
	return flags
}

// iqrFlags flags samples outside the Tukey fences. A zero IQR yields no
// flags.
func iqrFlags(values []float64) []bool {
	flags := make([]bool, len(values))
	sorted := sortedCopy(values)
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	if iqr == 0 {
		return flags
	}
	lower := q1 - iqrFenceFactor*iqr
	upper := q3 + iqrFenceFactor*iqr
	for i, v := range values {
		if v < lower || v > upper {
			flags[i] = true
		}
	}
	return flags
}

// isolationForestFlags fits a seeded forest and flags the most isolated
// points, bounded by the configured contamination fraction. Points the
// forest itself considers usual (score at or below 0.5) are never flagged
// even when they fall inside the contamination quantile.
func (d *detectorImpl) isolationForestFlags(values []float64) []bool {
	flags := make([]bool, len(values))
	if len(values) < forestMinPoints {
		return flags
	}

	forest := ml.NewIsolationForest(forestTrees, forestSubSample, d.opts.Seed)
	forest.Fit(values)
	scores := forest.Scores(values)

	cutoff := quantile(sortedCopy(scores), 1-d.opts.Contamination)
	for i, s := range scores {
		if s >= cutoff && s > forestNeutral {
			flags[i] = true
		}
	}
	return flags
}

// dbscanFlags standardizes the series, clusters it and flags noise points.
// Series shorter than two full neighborhoods are skipped: every point would
// degenerate to noise.
func dbscanFlags(values []float64) []bool {
	flags := make([]bool, len(values))
	n := len(values)

	minSamples := n / 4
	if minSamples < 3 {
		minSamples = 3
	}
	if n < 2*minSamples {
		return flags
	}

	mu := mean(values)
	sigma := stdDev(values)
	if sigma == 0 {
		return flags
	}
	standardized := make([]float64, n)
	for i, v := range values {
		standardized[i] = (v - mu) / sigma
	}

	labels := ml.DBSCAN(standardized, dbscanEps, minSamples)
	for i, label := range labels {
		if label == ml.Noise {
			flags[i] = true
		}
	}
	return flags
}

// movingAverageFlags flags samples far from their trailing rolling mean. The
// window includes the current sample and shrinks at the start of the series.
// A zero rolling std falls back to the global std.
func movingAverageFlags(values []float64) []bool {
	flags := make([]bool, len(values))
	globalStd := stdDev(values)

	for i, v := range values {
		lo := i - maWindow + 1
		if lo < 0 {
			lo = 0
		}
		window := values[lo : i+1]

		sigma := stdDev(window)
		if sigma == 0 {
			sigma = globalStd
		}
		if sigma == 0 {
			continue
		}
		if math.Abs(v-mean(window))/sigma > maThreshold {
			flags[i] = true
		}
	}
	return flags
}

// Dickey-Fuller critical values for the constant-only regression at the 1%,
// 5% and 10% levels.
var dfCritical = [...]struct {
	tStat float64
	p     float64
}{
	{-3.43, 0.01},
	{-2.86, 0.05},
	{-2.57, 0.10},
}

// stationarityScore runs a simplified Dickey-Fuller test and maps the
// unit-root p-value to a [0,1] contribution: a clearly mean-reverting series
// scores near 0, a drifting one near 1. Series shorter than 10 samples
// contribute 0.
func stationarityScore(values []float64) float64 {
	n := len(values)
	if n < 10 {
		return 0
	}

	// Regress the first difference on the lagged level with a constant:
	// diff[t] = alpha + gamma*values[t-1] + e. A unit root means gamma = 0.
	m := n - 1
	lagged := make([]float64, m)
	diffs := make([]float64, m)
	for t := 1; t < n; t++ {
		lagged[t-1] = values[t-1]
		diffs[t-1] = values[t] - values[t-1]
	}

	laggedMean := mean(lagged)
	diffMean := mean(diffs)

	var sxx, sxd float64
	for i := 0; i < m; i++ {
		dx := lagged[i] - laggedMean
		sxx += dx * dx
		sxd += dx * (diffs[i] - diffMean)
	}
	if sxx == 0 {
		return 0
	}
	gamma := sxd / sxx
	alpha := diffMean - gamma*laggedMean

	var rss float64
	for i := 0; i < m; i++ {
		resid := diffs[i] - alpha - gamma*lagged[i]
		rss += resid * resid
	}
	dof := float64(m - 2)
	if dof <= 0 {
		return 0
	}
	se := math.Sqrt(rss / dof / sxx)
	if se == 0 {
		return 0
	}

	p := dfPValue(gamma / se)
	score := 2 * p
	if score > 1 {
		score = 1
	}
	return score
}

// dfPValue interpolates a p-value between the tabulated critical values. The
// mapping is monotone in the t-statistic and saturates at 1 for t >= 0.
func dfPValue(tStat float64) float64 {
	if tStat <= dfCritical[0].tStat {
		return dfCritical[0].p
	}
	for i := 1; i < len(dfCritical); i++ {
		lo, hi := dfCritical[i-1], dfCritical[i]
		if tStat <= hi.tStat {
			frac := (tStat - lo.tStat) / (hi.tStat - lo.tStat)
			return lo.p + frac*(hi.p-lo.p)
		}
	}
	last := dfCritical[len(dfCritical)-1]
	if tStat >= 0 {
		return 1
	}
	frac := (tStat - last.tStat) / -last.tStat
	return last.p + frac*(1-last.p)
}

// ─── Statistics helpers ───────────────────────────────────────────────────────

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the population standard deviation.
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mu := mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - mu) * (v - mu)
	}
	return math.Sqrt(variance / float64(len(values)))
}

func median(values []float64) float64 {
	sorted := sortedCopy(values)
	return quantile(sorted, 0.5)
}

// mad is the median absolute deviation around med.
func mad(values []float64, med float64) float64 {
	devs := make([]float64, len(values))
	for i, v := range values {
		devs[i] = math.Abs(v - med)
	}
	sort.Float64s(devs)
	return quantile(devs, 0.5)
}

func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}

// quantile interpolates linearly between the order statistics of an already
// sorted slice, q in [0,1].
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := q * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi || hi >= n {
		return sorted[lo]
	}
	w := rank - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
