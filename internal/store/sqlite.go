package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wonny/sectorrotation/internal/backtest"
	"github.com/wonny/sectorrotation/internal/contracts"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id       TEXT PRIMARY KEY,
    as_of        TEXT     NOT NULL,
    start_date   TEXT     NOT NULL,
    end_date     TEXT     NOT NULL,
    config_hash  TEXT     NOT NULL,
    total_return REAL     NOT NULL DEFAULT 0,
    sharpe_ratio REAL     NOT NULL DEFAULT 0,
    max_drawdown REAL     NOT NULL DEFAULT 0,
    warnings     INTEGER  NOT NULL DEFAULT 0,
    created_at   TEXT     NOT NULL,
    payload      TEXT     NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_hash    ON runs(config_hash);
`

// SQLiteStore keeps runs in a local SQLite file (pure Go, no CGo)
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies the schema.
// ":memory:" opens a private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store.NewSQLiteStore: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite는 single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save inserts or replaces a run
func (s *SQLiteStore) Save(ctx context.Context, result *backtest.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", result.RunID, err)
	}

	sum := Summarize(result)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, as_of, start_date, end_date, config_hash,
			total_return, sharpe_ratio, max_drawdown, warnings, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			as_of = excluded.as_of,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			config_hash = excluded.config_hash,
			total_return = excluded.total_return,
			sharpe_ratio = excluded.sharpe_ratio,
			max_drawdown = excluded.max_drawdown,
			warnings = excluded.warnings,
			created_at = excluded.created_at,
			payload = excluded.payload`,
		sum.RunID,
		sum.AsOf.Format(contracts.DateLayout),
		sum.Start.Format(contracts.DateLayout),
		sum.End.Format(contracts.DateLayout),
		sum.ConfigHash,
		sum.TotalReturn,
		sum.SharpeRatio,
		sum.MaxDrawdown,
		sum.Warnings,
		sum.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", result.RunID, err)
	}
	return nil
}

// Get loads the full run
func (s *SQLiteStore) Get(ctx context.Context, runID string) (*backtest.Result, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE run_id = ?`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	var result backtest.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &result, nil
}

// List returns run headers, newest first
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, as_of, start_date, end_date, config_hash,
			total_return, sharpe_ratio, max_drawdown, warnings, created_at
		FROM runs
		ORDER BY created_at DESC, run_id ASC
		LIMIT ?`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			sum                    RunSummary
			asOf, start, end, made string
		)
		if err := rows.Scan(&sum.RunID, &asOf, &start, &end, &sum.ConfigHash,
			&sum.TotalReturn, &sum.SharpeRatio, &sum.MaxDrawdown, &sum.Warnings, &made); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if sum.AsOf, err = time.Parse(contracts.DateLayout, asOf); err != nil {
			return nil, fmt.Errorf("parse as_of %q: %w", asOf, err)
		}
		if sum.Start, err = time.Parse(contracts.DateLayout, start); err != nil {
			return nil, fmt.Errorf("parse start_date %q: %w", start, err)
		}
		if sum.End, err = time.Parse(contracts.DateLayout, end); err != nil {
			return nil, fmt.Errorf("parse end_date %q: %w", end, err)
		}
		if sum.CreatedAt, err = time.Parse(time.RFC3339Nano, made); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", made, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
