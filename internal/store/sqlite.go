package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS query_cache (
    cache_key TEXT PRIMARY KEY,
    query TEXT NOT NULL,
    payload BLOB NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_query_cache_created ON query_cache(created_at);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    query TEXT NOT NULL,
    event1 TEXT NOT NULL,
    event2 TEXT NOT NULL,
    assignment TEXT NOT NULL,
    row_count INTEGER NOT NULL,
    lift REAL,
    p_value REAL,
    records TEXT NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path the store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}

// DB returns the underlying database connection for health checks
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) GetCachedResult(ctx context.Context, key string) (*CachedResult, error) {
	var c CachedResult
	var createdAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT cache_key, query, payload, created_at FROM query_cache WHERE cache_key = ?`, key,
	).Scan(&c.Key, &c.Query, &c.Payload, &createdAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached result: %w", err)
	}

	c.CreatedAt = time.Unix(createdAt, 0)
	return &c, nil
}

func (s *SQLiteStore) PutCachedResult(ctx context.Context, key, query string, payload []byte) error {
	now := time.Now().Unix()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_cache (cache_key, query, payload, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET query = excluded.query, payload = excluded.payload, created_at = excluded.created_at`,
		key, query, payload, now,
	)
	if err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}

	return nil
}

// PruneCache removes cache entries created before olderThan.
func (s *SQLiteStore) PruneCache(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM query_cache WHERE created_at < ?`, olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	return result.RowsAffected()
}

func (s *SQLiteStore) ClearCache(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM query_cache`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	return result.RowsAffected()
}

// CreateRun saves run, assigning an ID and creation time when unset.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	records := run.Records
	if records == nil {
		records = []RunRecord{}
	}
	recordsJSON, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, query, event1, event2, assignment, row_count, lift, p_value, records, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Query, run.Event1, run.Event2, run.Assignment, run.Rows,
		nullableFloat(run.Lift), nullableFloat(run.PValue), string(recordsJSON), run.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

const runColumns = `id, query, event1, event2, assignment, row_count, lift, p_value, records, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var lift, pValue sql.NullFloat64
	var recordsJSON string
	var createdAt int64

	if err := row.Scan(&run.ID, &run.Query, &run.Event1, &run.Event2, &run.Assignment, &run.Rows,
		&lift, &pValue, &recordsJSON, &createdAt); err != nil {
		return nil, err
	}

	if lift.Valid {
		run.Lift = &lift.Float64
	}
	if pValue.Valid {
		run.PValue = &pValue.Float64
	}
	if err := json.Unmarshal([]byte(recordsJSON), &run.Records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal records: %w", err)
	}
	run.CreatedAt = time.Unix(createdAt, 0)

	return &run, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// all runs.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLiteStore) CountRuns(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
