package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/sectorrotation/internal/backtest"
)

// PostgresSchema creates the run table used by PostgresStore
var PostgresSchema = []string{
	`CREATE SCHEMA IF NOT EXISTS analytics`,
	`CREATE TABLE IF NOT EXISTS analytics.backtest_runs (
		run_id       UUID             PRIMARY KEY,
		as_of        DATE             NOT NULL,
		start_date   DATE             NOT NULL,
		end_date     DATE             NOT NULL,
		config_hash  TEXT             NOT NULL,
		total_return DOUBLE PRECISION NOT NULL DEFAULT 0,
		sharpe_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
		max_drawdown DOUBLE PRECISION NOT NULL DEFAULT 0,
		warnings     INTEGER          NOT NULL DEFAULT 0,
		created_at   TIMESTAMPTZ      NOT NULL,
		payload      JSONB            NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_backtest_runs_created ON analytics.backtest_runs (created_at DESC)`,
}

// PostgresStore keeps runs in analytics.backtest_runs
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a run store over an existing pool.
// The caller owns the pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Save inserts or replaces a run
func (s *PostgresStore) Save(ctx context.Context, result *backtest.Result) error {
	id, err := uuid.Parse(result.RunID)
	if err != nil {
		return fmt.Errorf("run id %q: %w", result.RunID, err)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", result.RunID, err)
	}

	sum := Summarize(result)
	query := `
		INSERT INTO analytics.backtest_runs (
			run_id, as_of, start_date, end_date, config_hash,
			total_return, sharpe_ratio, max_drawdown, warnings, created_at, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (run_id) DO UPDATE SET
			as_of = EXCLUDED.as_of,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			config_hash = EXCLUDED.config_hash,
			total_return = EXCLUDED.total_return,
			sharpe_ratio = EXCLUDED.sharpe_ratio,
			max_drawdown = EXCLUDED.max_drawdown,
			warnings = EXCLUDED.warnings,
			created_at = EXCLUDED.created_at,
			payload = EXCLUDED.payload
	`
	_, err = s.pool.Exec(ctx, query,
		id, sum.AsOf, sum.Start, sum.End, sum.ConfigHash,
		sum.TotalReturn, sum.SharpeRatio, sum.MaxDrawdown, sum.Warnings, sum.CreatedAt, payload,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", result.RunID, err)
	}
	return nil
}

// Get loads the full run
func (s *PostgresStore) Get(ctx context.Context, runID string) (*backtest.Result, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, ErrNotFound
	}

	var payload []byte
	err = s.pool.QueryRow(ctx, `SELECT payload FROM analytics.backtest_runs WHERE run_id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	var result backtest.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &result, nil
}

// List returns run headers, newest first
func (s *PostgresStore) List(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
		SELECT run_id, as_of, start_date, end_date, config_hash,
			total_return, sharpe_ratio, max_drawdown, warnings, created_at
		FROM analytics.backtest_runs
		ORDER BY created_at DESC, run_id ASC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			sum RunSummary
			id  uuid.UUID
		)
		if err := rows.Scan(&id, &sum.AsOf, &sum.Start, &sum.End, &sum.ConfigHash,
			&sum.TotalReturn, &sum.SharpeRatio, &sum.MaxDrawdown, &sum.Warnings, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		sum.RunID = id.String()
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Close is a no-op; the pool is closed by its owner
func (s *PostgresStore) Close() error {
	return nil
}
