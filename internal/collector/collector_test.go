package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/timeseries"
)

var testWindow = struct {
	start time.Time
	end   time.Time
}{
	start: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	end:   time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC),
}

func TestCollect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/query_range" {
			t.Errorf("Expected path /api/v1/query_range, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("query") != "rate(node_cpu_seconds_total[5m])" {
			t.Errorf("Unexpected query param: %s", q.Get("query"))
		}
		if q.Get("start") != "1741608000" {
			t.Errorf("Unexpected start param: %s", q.Get("start"))
		}
		if q.Get("end") != "1741611600" {
			t.Errorf("Unexpected end param: %s", q.Get("end"))
		}
		if q.Get("step") != "60" {
			t.Errorf("Unexpected step param: %s", q.Get("step"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "success",
			"data": {
				"resultType": "matrix",
				"result": [{
					"metric": {"__name__": "node_cpu_seconds_total", "instance": "node-1"},
					"values": [[1741608000, "41.5"], [1741608060, "42.0"], [1741608120, "43.25"]]
				}]
			}
		}`))
	}))
	defer server.Close()

	c := NewPrometheusCollector(server.URL, 5*time.Second, nil)
	targets := []Target{{Name: "cpu_usage", Query: "rate(node_cpu_seconds_total[5m])"}}

	series, err := c.Collect(context.Background(), targets, testWindow.start, testWindow.end, 0)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	got, ok := series["cpu_usage"]
	if !ok {
		t.Fatalf("Expected series cpu_usage, got keys %v", keys(series))
	}
	if got.Len() != 3 {
		t.Errorf("Expected 3 samples, got %d", got.Len())
	}
	values := got.Values()
	if values[0] != 41.5 || values[2] != 43.25 {
		t.Errorf("Unexpected sample values: %v", values)
	}
	if ts := got.Timestamps(); !ts[0].Equal(testWindow.start) {
		t.Errorf("Expected first sample at window start, got %s", ts[0])
	}
}

func TestCollect_MultipleSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": "success",
			"data": {
				"resultType": "matrix",
				"result": [
					{"metric": {"__name__": "http_requests_total", "pod": "api-0"}, "values": [[1741608000, "10"]]},
					{"metric": {"__name__": "http_requests_total", "pod": "api-1"}, "values": [[1741608000, "12"]]}
				]
			}
		}`))
	}))
	defer server.Close()

	c := NewPrometheusCollector(server.URL, 5*time.Second, nil)
	targets := []Target{{Name: "requests", Query: "http_requests_total"}}

	series, err := c.Collect(context.Background(), targets, testWindow.start, testWindow.end, time.Minute)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	for _, want := range []string{`requests{pod="api-0"}`, `requests{pod="api-1"}`} {
		if _, ok := series[want]; !ok {
			t.Errorf("Expected series %q, got keys %v", want, keys(series))
		}
	}
}

func TestCollect_PrometheusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "error", "error": "query parse error"}`))
	}))
	defer server.Close()

	c := NewPrometheusCollector(server.URL, 5*time.Second, nil)

	_, err := c.Collect(context.Background(), []Target{{Name: "x", Query: "bad{"}}, testWindow.start, testWindow.end, 0)
	if err == nil {
		t.Fatal("Expected an error for a failed query")
	}
	if !strings.Contains(err.Error(), "query parse error") {
		t.Errorf("Expected prometheus error text, got %v", err)
	}
}

func TestCollect_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	c := NewPrometheusCollector(server.URL, 5*time.Second, nil)

	_, err := c.Collect(context.Background(), []Target{{Name: "x", Query: "up"}}, testWindow.start, testWindow.end, 0)
	if err == nil {
		t.Fatal("Expected an error for a non-200 response")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("Expected status code in error, got %v", err)
	}
}

func TestCollect_Validation(t *testing.T) {
	c := NewPrometheusCollector("http://localhost:9090", 5*time.Second, nil)

	_, err := c.Collect(context.Background(), []Target{{Name: "x", Query: "up"}}, testWindow.end, testWindow.start, 0)
	if err == nil {
		t.Error("Expected an error when the window end precedes the start")
	}

	_, err = c.Collect(context.Background(), []Target{{Name: "x", Query: "  "}}, testWindow.start, testWindow.end, 0)
	if err == nil {
		t.Error("Expected an error for an empty query")
	}
}

func TestSeriesName(t *testing.T) {
	tests := []struct {
		name     string
		target   Target
		labels   map[string]string
		multi    bool
		expected string
	}{
		{
			name:     "Single series keeps target name",
			target:   Target{Name: "cpu_usage", Query: "rate(x[5m])"},
			labels:   map[string]string{"__name__": "x", "instance": "node-1"},
			multi:    false,
			expected: "cpu_usage",
		},
		{
			name:     "Multiple series append sorted labels",
			target:   Target{Name: "req", Query: "x"},
			labels:   map[string]string{"pod": "a", "job": "api", "__name__": "x"},
			multi:    true,
			expected: `req{job="api", pod="a"}`,
		},
		{
			name:     "Empty target name falls back to metric name",
			target:   Target{Query: "node_load1"},
			labels:   map[string]string{"__name__": "node_load1"},
			multi:    false,
			expected: "node_load1",
		},
		{
			name:     "No labels beyond name",
			target:   Target{Name: "load", Query: "node_load1"},
			labels:   map[string]string{"__name__": "node_load1"},
			multi:    true,
			expected: "load",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := seriesName(tt.target, tt.labels, tt.multi)
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestDecodePairs(t *testing.T) {
	pairs := decodePairs([][]interface{}{
		{float64(1741608000), "41.5"},
		{float64(1741608060)},
		{"not-a-timestamp", "42"},
		{float64(1741608120), "not-a-number"},
		{float64(1741608180), "43"},
	})

	if len(pairs) != 2 {
		t.Fatalf("Expected 2 decoded pairs, got %d", len(pairs))
	}
	if pairs[0][1] != 41.5 || pairs[1][1] != 43 {
		t.Errorf("Unexpected decoded values: %v", pairs)
	}
}

func keys(m map[string]*timeseries.MetricSeries) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
