package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/metrics"
	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca/timeseries"
)

// Package collector turns PromQL queries into engine-ready metric series.
//
// Responsibilities:
//   - Query the Prometheus range API for each requested target
//   - Normalize matrix results into named MetricSeries values
//   - Surface per-query outcomes through the service metrics
//
// A collector is stateless and safe for concurrent use; one instance is
// shared by all analysis requests.

// DefaultTimeout bounds a single Prometheus HTTP request.
const DefaultTimeout = 10 * time.Second

// DefaultStep is the query resolution used when a request does not set one.
const DefaultStep = time.Minute

// Target names one PromQL query to collect.
type Target struct {
	Name  string `json:"name"`
	Query string `json:"query"`
}

// Collector fetches metric series for a time window.
type Collector interface {
	Collect(ctx context.Context, targets []Target, start, end time.Time, step time.Duration) (map[string]*timeseries.MetricSeries, error)
}

// PrometheusCollector implements Collector against the Prometheus HTTP API.
type PrometheusCollector struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewPrometheusCollector creates a collector for the given Prometheus base
// URL, for example "http://localhost:9090".
func NewPrometheusCollector(baseURL string, timeout time.Duration, logger *zap.Logger) *PrometheusCollector {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrometheusCollector{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type promResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Metric map[string]string `json:"metric"`
			Values [][]interface{}   `json:"values"`
		} `json:"result"`
	} `json:"data"`
	Error string `json:"error"`
}

// Collect runs every target query against the range API and returns the
// resulting series keyed by name. A target that matches several series
// contributes one entry per label set.
func (p *PrometheusCollector) Collect(ctx context.Context, targets []Target, start, end time.Time, step time.Duration) (map[string]*timeseries.MetricSeries, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("window end %s is before start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if step <= 0 {
		step = DefaultStep
	}

	series := make(map[string]*timeseries.MetricSeries, len(targets))
	for _, target := range targets {
		if strings.TrimSpace(target.Query) == "" {
			return nil, fmt.Errorf("target %q has an empty query", target.Name)
		}

		resp, err := p.rangeQuery(ctx, target.Query, start, end, step)
		if err != nil {
			metrics.CollectorRequests.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("collecting %q: %w", target.Name, err)
		}
		metrics.CollectorRequests.WithLabelValues("ok").Inc()

		if len(resp.Data.Result) == 0 {
			p.logger.Warn("target matched no series",
				zap.String("target", target.Name),
				zap.String("query", target.Query))
			continue
		}
		multi := len(resp.Data.Result) > 1
		for _, r := range resp.Data.Result {
			name := seriesName(target, r.Metric, multi)
			pairs := decodePairs(r.Values)
			if len(pairs) == 0 {
				p.logger.Warn("series returned no usable samples",
					zap.String("target", target.Name),
					zap.String("series", name))
				continue
			}
			series[name] = timeseries.FromPairs(name, pairs)
		}
	}
	return series, nil
}

func (p *PrometheusCollector) rangeQuery(ctx context.Context, query string, start, end time.Time, step time.Duration) (*promResponse, error) {
	params := url.Values{
		"query": {query},
		"start": {strconv.FormatInt(start.Unix(), 10)},
		"end":   {strconv.FormatInt(end.Unix(), 10)},
		"step":  {strconv.FormatFloat(step.Seconds(), 'f', -1, 64)},
	}

	body, err := p.get(ctx, "/api/v1/query_range", params)
	if err != nil {
		return nil, err
	}

	var resp promResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse prometheus response: %w", err)
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("prometheus error: %s", resp.Error)
	}
	if resp.Data.ResultType != "matrix" {
		return nil, fmt.Errorf("unexpected result type %q (expected matrix)", resp.Data.ResultType)
	}
	return &resp, nil
}

func (p *PrometheusCollector) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := p.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prometheus request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prometheus returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// seriesName renders the map key for one matrix result. A target that
// matches a single series keeps its plain name; when a query matches several
// series the sorted label set is appended to keep the names distinct.
func seriesName(target Target, labels map[string]string, multi bool) string {
	name := target.Name
	if name == "" {
		name = labels["__name__"]
	}
	if name == "" {
		name = target.Query
	}
	if !multi {
		return name
	}

	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		if k == "__name__" {
			continue
		}
		pairs = append(pairs, fmt.Sprintf("%s=%q", k, v))
	}
	if len(pairs) == 0 {
		return name
	}
	sort.Strings(pairs)
	return name + "{" + strings.Join(pairs, ", ") + "}"
}

// decodePairs converts the API's [timestamp, "value"] tuples into numeric
// pairs. Tuples whose value does not parse are dropped.
func decodePairs(values [][]interface{}) [][2]float64 {
	pairs := make([][2]float64, 0, len(values))
	for _, v := range values {
		if len(v) != 2 {
			continue
		}
		ts, ok := v[0].(float64)
		if !ok {
			continue
		}
		s, ok := v[1].(string)
		if !ok {
			continue
		}
		val, err := strconv.ParseFloat(s, 64)
		if err != nil {
			continue
		}
		pairs = append(pairs, [2]float64{ts, val})
	}
	return pairs
}
