// Package timeseries holds the metric series representation shared by all
// RCA engine components.
//
// A MetricSeries is the unit of input for one analysis run: a named, ordered
// sequence of timestamped float samples. Builders normalize raw collector
// output (unix-second/value pairs) into clean series: non-finite values are
// dropped, samples are sorted by timestamp, and duplicate timestamps resolve
// last-wins. Once built for a run, a series is treated as immutable.
package timeseries

import (
	"math"
	"sort"
	"time"
)

// Sample is a single timestamped measurement.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// MetricSeries is one named time series. Samples are strictly increasing in
// timestamp after construction.
type MetricSeries struct {
	Name    string   `json:"name"`
	Samples []Sample `json:"samples"`
}

// New builds a MetricSeries from raw samples. Samples with NaN or infinite
// values are dropped, the remainder is sorted by timestamp, and when several
// samples share a timestamp the one supplied last wins.
func New(name string, samples []Sample) *MetricSeries {
	clean := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
			continue
		}
		clean = append(clean, s)
	}

	// Stable sort keeps insertion order among equal timestamps, so the
	// last-supplied sample survives the dedup walk below.
	sort.SliceStable(clean, func(i, j int) bool {
		return clean[i].Timestamp.Before(clean[j].Timestamp)
	})

	deduped := clean[:0]
	for _, s := range clean {
		if n := len(deduped); n > 0 && deduped[n-1].Timestamp.Equal(s.Timestamp) {
			deduped[n-1] = s
			continue
		}
		deduped = append(deduped, s)
	}

	return &MetricSeries{Name: name, Samples: deduped}
}

// FromPairs builds a MetricSeries from (unix seconds, value) pairs as
// delivered by the metric collector. Fractional seconds are preserved.
func FromPairs(name string, pairs [][2]float64) *MetricSeries {
	samples := make([]Sample, 0, len(pairs))
	for _, p := range pairs {
		sec, frac := math.Modf(p[0])
		samples = append(samples, Sample{
			Timestamp: time.Unix(int64(sec), int64(frac*1e9)).UTC(),
			Value:     p[1],
		})
	}
	return New(name, samples)
}

// Len returns the number of samples.
func (m *MetricSeries) Len() int {
	return len(m.Samples)
}

// Values returns the sample values in timestamp order.
func (m *MetricSeries) Values() []float64 {
	values := make([]float64, len(m.Samples))
	for i, s := range m.Samples {
		values[i] = s.Value
	}
	return values
}

// Timestamps returns the sample timestamps in order.
func (m *MetricSeries) Timestamps() []time.Time {
	ts := make([]time.Time, len(m.Samples))
	for i, s := range m.Samples {
		ts[i] = s.Timestamp
	}
	return ts
}

// Window returns the first and last sample timestamps. The second return is
// false for an empty series.
func (m *MetricSeries) Window() (start, end time.Time, ok bool) {
	if len(m.Samples) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return m.Samples[0].Timestamp, m.Samples[len(m.Samples)-1].Timestamp, true
}
