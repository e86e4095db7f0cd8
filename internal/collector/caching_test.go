package collector

import (
	"context"
	"testing"
	"time"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/cache"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/timeseries"
)

type countingCollector struct {
	calls int
}

func (c *countingCollector) Collect(_ context.Context, targets []Target, _, _ time.Time, _ time.Duration) (map[string]*timeseries.MetricSeries, error) {
	c.calls++
	out := make(map[string]*timeseries.MetricSeries, len(targets))
	for _, t := range targets {
		out[t.Name] = timeseries.FromPairs(t.Name, [][2]float64{{1000, 1}, {1060, 2}})
	}
	return out, nil
}

func TestCachingCollector_RepeatedWindowHitsCache(t *testing.T) {
	inner := &countingCollector{}
	store := cache.New()
	defer store.Close()
	c := NewCachingCollector(inner, store, time.Minute, nil)

	targets := []Target{{Name: "cpu", Query: "node_cpu_seconds_total"}}
	start := time.Unix(1000, 0)
	end := time.Unix(2000, 0)

	first, err := c.Collect(context.Background(), targets, start, end, time.Minute)
	if err != nil {
		t.Fatalf("First collect failed: %v", err)
	}
	second, err := c.Collect(context.Background(), targets, start, end, time.Minute)
	if err != nil {
		t.Fatalf("Second collect failed: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("Expected one backend call, got %d", inner.calls)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Errorf("Expected one series per batch, got %d and %d", len(first), len(second))
	}
}

func TestCachingCollector_DifferentWindowMisses(t *testing.T) {
	inner := &countingCollector{}
	store := cache.New()
	defer store.Close()
	c := NewCachingCollector(inner, store, time.Minute, nil)

	targets := []Target{{Name: "cpu", Query: "up"}}

	if _, err := c.Collect(context.Background(), targets, time.Unix(0, 0), time.Unix(600, 0), time.Minute); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if _, err := c.Collect(context.Background(), targets, time.Unix(600, 0), time.Unix(1200, 0), time.Minute); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if inner.calls != 2 {
		t.Errorf("Expected two backend calls for distinct windows, got %d", inner.calls)
	}
}
