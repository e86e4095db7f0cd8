package correlation

import (
	"math"
	"sort"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/timeseries"
)

// Lag scan bounds.
const (
	maxLag          = 5
	causalThreshold = 0.3
	minAgreeingLags = 2
)

// CausalHint records that Cause's past values track Effect's present ones:
// at least two scanned lags correlated above the causal threshold. Hints
// are a weak secondary signal for candidate descriptions, they never
// perturb the ranking itself.
type CausalHint struct {
	Cause      string  `json:"cause"`
	Effect     string  `json:"effect"`
	Lags       []int   `json:"lags"`
	MaxAbsCorr float64 `json:"max_abs_corr"`
}

// Causality scans every ordered (cause, effect) pair among the candidate
// metrics for lagged correlation, shifting the cause back by 1 to 5 grid
// steps. Hints are sorted by cause, then effect.
func (a *Analyzer) Causality(series map[string]*timeseries.MetricSeries, candidates []string) []CausalHint {
	subset := make(map[string]*timeseries.MetricSeries)
	for _, name := range candidates {
		if s, ok := series[name]; ok && s != nil && s.Len() >= a.opts.MinSamples {
			subset[name] = s
		}
	}
	if len(subset) < 2 {
		return nil
	}

	frame := align(subset, a.logger)
	if len(frame.names) < 2 {
		return nil
	}

	var hints []CausalHint
	for _, effect := range frame.names {
		effectCol := frame.column(effect)
		for _, cause := range frame.names {
			if cause == effect {
				continue
			}
			causeCol := frame.column(cause)

			var lags []int
			maxAbs := 0.0
			for lag := 1; lag <= maxLag && lag < len(effectCol); lag++ {
				coef, ok := pearson(causeCol[:len(causeCol)-lag], effectCol[lag:], a.opts.MinOverlap)
				if !ok {
					continue
				}
				if abs := math.Abs(coef); abs > causalThreshold {
					lags = append(lags, lag)
					if abs > maxAbs {
						maxAbs = abs
					}
				}
			}
			if len(lags) >= minAgreeingLags {
				hints = append(hints, CausalHint{
					Cause:      cause,
					Effect:     effect,
					Lags:       lags,
					MaxAbsCorr: maxAbs,
				})
			}
		}
	}

	sort.Slice(hints, func(i, j int) bool {
		if hints[i].Cause != hints[j].Cause {
			return hints[i].Cause < hints[j].Cause
		}
		return hints[i].Effect < hints[j].Effect
	})
	return hints
}
