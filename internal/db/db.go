package db

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the requested analysis does not exist.
var ErrNotFound = errors.New("analysis not found")

// Store is the persistence interface for analysis history.
type Store interface {
	// SaveAnalysis persists one completed analysis run.
	SaveAnalysis(ctx context.Context, rec *AnalysisRecord) error

	// GetAnalysis retrieves an analysis by ID, including the full result
	// payload. Returns ErrNotFound when no such analysis exists.
	GetAnalysis(ctx context.Context, id string) (*AnalysisRecord, error)

	// ListAnalyses returns stored analyses, newest first, without the full
	// result payload.
	ListAnalyses(ctx context.Context, limit, offset int) ([]*AnalysisRecord, error)

	// DeleteAnalysis removes a stored analysis.
	DeleteAnalysis(ctx context.Context, id string) error

	// PruneAnalyses deletes analyses created before the cutoff and returns
	// how many rows were removed.
	PruneAnalyses(ctx context.Context, before time.Time) (int64, error)

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error

	// Close releases database resources.
	Close() error
}

// AnalysisRecord is the DB representation of one analysis run. The full
// result is stored as a JSON blob; the scalar columns support listing and
// retention without decoding it.
type AnalysisRecord struct {
	ID               string    `json:"id"`
	WindowStart      time.Time `json:"window_start"`
	WindowEnd        time.Time `json:"window_end"`
	TotalMetrics     int       `json:"total_metrics"`
	AnomalousMetrics int       `json:"anomalous_metrics"`
	TopCause         string    `json:"top_cause"`
	TopConfidence    float64   `json:"top_confidence"`
	Summary          string    `json:"summary"`
	Result           string    `json:"result"` // JSON blob
	CreatedAt        time.Time `json:"created_at"`
}
