package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/sectorrotation/internal/contracts"
)

// PriceSchema creates the close-price table used by PriceRepository
var PriceSchema = []string{
	`CREATE SCHEMA IF NOT EXISTS market`,
	`CREATE TABLE IF NOT EXISTS market.daily_closes (
		ticker     TEXT             NOT NULL,
		trade_date DATE             NOT NULL,
		close      DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
		PRIMARY KEY (ticker, trade_date)
	)`,
}

// PriceRepository stores close series in Postgres and serves them as a SeriesSource
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// FetchSeries retrieves closes for a ticker within [from, to]
func (r *PriceRepository) FetchSeries(ctx context.Context, ticker string, from, to time.Time) (*contracts.Series, error) {
	query := `
		SELECT trade_date, close
		FROM market.daily_closes
		WHERE ticker = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, ticker, from, to)
	if err != nil {
		return nil, fmt.Errorf("query closes %s: %w", ticker, err)
	}
	defer rows.Close()

	var obs []contracts.Observation
	for rows.Next() {
		var o contracts.Observation
		if err := rows.Scan(&o.Date, &o.Value); err != nil {
			return nil, fmt.Errorf("scan close: %w", err)
		}
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, ErrTickerNotFound)
	}

	return contracts.NewSeries(ticker, obs)
}

// LatestDate returns the most recent stored date for a ticker
func (r *PriceRepository) LatestDate(ctx context.Context, ticker string) (time.Time, bool, error) {
	query := `SELECT MAX(trade_date) FROM market.daily_closes WHERE ticker = $1`

	var latest *time.Time
	if err := r.pool.QueryRow(ctx, query, ticker).Scan(&latest); err != nil {
		return time.Time{}, false, fmt.Errorf("query latest date %s: %w", ticker, err)
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	return contracts.DateOnly(*latest), true, nil
}

// SaveSeries upserts every observation of series in one batch
func (r *PriceRepository) SaveSeries(ctx context.Context, series *contracts.Series) error {
	if series.Len() == 0 {
		return nil
	}

	query := `
		INSERT INTO market.daily_closes (ticker, trade_date, close, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (ticker, trade_date) DO UPDATE SET
			close = EXCLUDED.close,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, o := range series.Observations() {
		batch.Queue(query, series.Ticker(), o.Date, o.Value)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert close %s #%d: %w", series.Ticker(), i, err)
		}
	}
	return nil
}
