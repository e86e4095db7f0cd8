package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/metrics"
)

// schema defines the tables for the analysis history.
// Version is tracked in the schema_versions table.
var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS analyses (
    id                TEXT PRIMARY KEY,
    window_start      DATETIME NOT NULL,
    window_end        DATETIME NOT NULL,
    total_metrics     INTEGER NOT NULL DEFAULT 0,
    anomalous_metrics INTEGER NOT NULL DEFAULT 0,
    top_cause         TEXT NOT NULL DEFAULT '',
    top_confidence    REAL NOT NULL DEFAULT 0.0,
    summary           TEXT NOT NULL DEFAULT '',
    result            TEXT NOT NULL DEFAULT '{}',
    created_at        DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_analyses_window_start ON analyses(window_start DESC);
`,
	},
}

// sqliteStore is the SQLite-backed implementation of Store.
type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path and
// runs all pending schema migrations. Pass ":memory:" for an in-memory store.
func NewSQLiteStore(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// Enable WAL mode for better concurrency and performance.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	// Enable foreign-key constraints.
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &sqliteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate applies any unapplied migrations in order.
func (s *sqliteStore) migrate() error {
	// Ensure schema_versions table exists before reading from it.
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
        version    INTEGER PRIMARY KEY,
        applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue // already applied
		}

		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}

		if _, err := s.db.Exec(`INSERT INTO schema_versions(version) VALUES(?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func (s *sqliteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// ─── Analyses ────────────────────────────────────────────────────────────────

func (s *sqliteStore) SaveAnalysis(ctx context.Context, rec *AnalysisRecord) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO analyses(id, window_start, window_end, total_metrics, anomalous_metrics, top_cause, top_confidence, summary, result, created_at)
        VALUES(?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET
            total_metrics     = excluded.total_metrics,
            anomalous_metrics = excluded.anomalous_metrics,
            top_cause         = excluded.top_cause,
            top_confidence    = excluded.top_confidence,
            summary           = excluded.summary,
            result            = excluded.result
    `,
		rec.ID, rec.WindowStart.UTC(), rec.WindowEnd.UTC(),
		rec.TotalMetrics, rec.AnomalousMetrics,
		rec.TopCause, rec.TopConfidence, rec.Summary, rec.Result,
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}
	metrics.AnalysesStored.Inc()
	return nil
}

func (s *sqliteStore) GetAnalysis(ctx context.Context, id string) (*AnalysisRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,window_start,window_end,total_metrics,anomalous_metrics,top_cause,top_confidence,summary,result,created_at FROM analyses WHERE id=?`, id)
	rec, err := scanAnalysis(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *sqliteStore) ListAnalyses(ctx context.Context, limit, offset int) ([]*AnalysisRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,window_start,window_end,total_metrics,anomalous_metrics,top_cause,top_confidence,summary,created_at FROM analyses ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*AnalysisRecord
	for rows.Next() {
		rec, err := scanAnalysis(rows, false)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *sqliteStore) DeleteAnalysis(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteStore) PruneAnalyses(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE created_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune analyses: %w", err)
	}
	return result.RowsAffected()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner, withResult bool) (*AnalysisRecord, error) {
	rec := &AnalysisRecord{}
	var windowStart, windowEnd, createdAt string
	dest := []any{&rec.ID, &windowStart, &windowEnd, &rec.TotalMetrics,
		&rec.AnomalousMetrics, &rec.TopCause, &rec.TopConfidence, &rec.Summary}
	if withResult {
		dest = append(dest, &rec.Result)
	}
	dest = append(dest, &createdAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	rec.WindowStart, _ = parseTime(windowStart)
	rec.WindowEnd, _ = parseTime(windowEnd)
	rec.CreatedAt, _ = parseTime(createdAt)
	return rec, nil
}

// parseTime handles multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}
