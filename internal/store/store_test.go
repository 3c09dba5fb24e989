package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorrotation/internal/backtest"
	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/pkg/config"
	"github.com/wonny/sectorrotation/pkg/database"
)

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

func day(s string) time.Time {
	t, err := time.Parse(contracts.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleResult(t *testing.T, created time.Time, totalReturn float64) *backtest.Result {
	t.Helper()
	schedule, err := contracts.NewRotationSchedule([]contracts.Portfolio{
		{Date: day("2021-01-29"), Eligible: 6, Holdings: []contracts.Holding{
			{Sector: "IT", Weight: 0.6, Score: 1.2, Rank: 1},
			{Sector: "Bank", Weight: 0.4, Score: 0.8, Rank: 2},
		}},
		{Date: day("2021-02-26"), Carried: true, Holdings: []contracts.Holding{
			{Sector: "IT", Weight: 0.6, Score: 1.2, Rank: 1},
			{Sector: "Bank", Weight: 0.4, Score: 0.8, Rank: 2},
		}},
	})
	require.NoError(t, err)

	var warnings contracts.Warnings
	warnings.Add(contracts.WarnDegenerateSelection, day("2021-02-26"), "", "no eligible sectors")

	return &backtest.Result{
		RunID:          uuid.NewString(),
		AsOf:           day("2021-03-31"),
		RequestedStart: day("2021-01-29"),
		Start:          day("2021-01-29"),
		End:            day("2021-03-31"),
		ConfigHash:     "5f2b",
		Schedule:       schedule,
		Equity: contracts.EquityCurve{
			{Date: day("2021-01-29"), Value: 100000},
			{Date: day("2021-02-01"), Value: 100000 * (1 + totalReturn), Return: totalReturn},
		},
		Summary:   backtest.Summary{TotalReturn: totalReturn, SharpeRatio: 1.1, MaxDrawdown: 0.05, Rebalances: 2},
		Warnings:  warnings,
		CreatedAt: created,
	}
}

func newMemoryStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_SaveGet(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)

	want := sampleResult(t, time.Date(2021, 4, 1, 8, 0, 0, 0, time.UTC), 0.12)
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Get(ctx, want.RunID)
	require.NoError(t, err)

	assert.Equal(t, want.RunID, got.RunID)
	assert.True(t, want.AsOf.Equal(got.AsOf))
	assert.Equal(t, want.ConfigHash, got.ConfigHash)
	assert.Equal(t, want.Summary, got.Summary)
	assert.Equal(t, want.Warnings.Count(contracts.WarnDegenerateSelection), got.Warnings.Count(contracts.WarnDegenerateSelection))
	require.Len(t, got.Equity, 2)
	assert.InDelta(t, 112000, got.Equity[1].Value, 1e-6)

	require.NotNil(t, got.Schedule)
	require.Equal(t, 2, got.Schedule.Len())
	assert.Equal(t, []string{"IT", "Bank"}, got.Schedule.At(0).Sectors())
	assert.True(t, got.Schedule.At(1).Carried)
	assert.InDelta(t, 0.6, got.Schedule.At(1).Weight("IT"), 1e-12)
}

func TestSQLiteStore_GetNotFound(t *testing.T) {
	_, err := newMemoryStore(t).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)

	result := sampleResult(t, time.Date(2021, 4, 1, 8, 0, 0, 0, time.UTC), 0.12)
	require.NoError(t, s.Save(ctx, result))

	result.Summary.TotalReturn = 0.2
	require.NoError(t, s.Save(ctx, result))

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.InDelta(t, 0.2, runs[0].TotalReturn, 1e-12)
}

func TestSQLiteStore_List(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)

	base := time.Date(2021, 4, 1, 8, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		r := sampleResult(t, base.Add(time.Duration(i)*time.Hour), float64(i)/10)
		require.NoError(t, s.Save(ctx, r))
		ids = append(ids, r.RunID)
	}

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].RunID)
	assert.Equal(t, ids[0], runs[2].RunID)

	first := runs[0]
	assert.True(t, first.AsOf.Equal(day("2021-03-31")))
	assert.True(t, first.Start.Equal(day("2021-01-29")))
	assert.True(t, first.End.Equal(day("2021-03-31")))
	assert.True(t, first.CreatedAt.Equal(base.Add(2*time.Hour)))
	assert.Equal(t, "5f2b", first.ConfigHash)
	assert.InDelta(t, 0.2, first.TotalReturn, 1e-12)
	assert.InDelta(t, 1.1, first.SharpeRatio, 1e-12)
	assert.InDelta(t, 0.05, first.MaxDrawdown, 1e-12)
	assert.Equal(t, 1, first.Warnings)

	limited, err := s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLiteStore_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "runs.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	result := sampleResult(t, time.Now().UTC(), 0.1)
	require.NoError(t, s.Save(ctx, result))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, got.RunID)
}

func TestSummarize(t *testing.T) {
	r := sampleResult(t, time.Date(2021, 4, 1, 8, 0, 0, 0, time.UTC), 0.3)
	sum := Summarize(r)
	assert.Equal(t, r.RunID, sum.RunID)
	assert.InDelta(t, 0.3, sum.TotalReturn, 1e-12)
	assert.Equal(t, 1, sum.Warnings)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, config.DatabaseConfig{URL: url})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.EnsureSchema(ctx, PostgresSchema...))

	s := NewPostgresStore(db.Pool)
	result := sampleResult(t, time.Now().UTC().Truncate(time.Microsecond), 0.15)
	require.NoError(t, s.Save(ctx, result))
	t.Cleanup(func() {
		db.Pool.Exec(context.Background(), `DELETE FROM analytics.backtest_runs WHERE run_id = $1`, result.RunID)
	})

	got, err := s.Get(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, result.ConfigHash, got.ConfigHash)

	runs, err := s.List(ctx, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, runs)

	_, err = s.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}
