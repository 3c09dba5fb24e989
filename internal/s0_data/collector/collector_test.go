package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/s0_data"
	"github.com/wonny/sectorrotation/pkg/logger"
)

type fakeSource struct {
	mu     sync.Mutex
	calls  map[string]int
	failOn string
}

func (f *fakeSource) FetchSeries(_ context.Context, ticker string, from, to time.Time) (*contracts.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[ticker]++
	if ticker == f.failOn {
		return nil, errors.New("upstream 500")
	}

	var obs []contracts.Observation
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		obs = append(obs, contracts.Observation{Date: d, Value: 100})
	}
	return contracts.NewSeries(ticker, obs)
}

type invalidatingSource struct {
	fakeSource
	mu          sync.Mutex
	invalidated []string
}

func (s *invalidatingSource) Invalidate(_ context.Context, ticker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = append(s.invalidated, ticker)
	return nil
}

type fakeMirror struct {
	mu    sync.Mutex
	saved []string
}

func (m *fakeMirror) SaveSeries(_ context.Context, s *contracts.Series) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, s.Ticker())
	return nil
}

func request() contracts.DataRequest {
	return contracts.DataRequest{
		Sectors:   map[string]string{"Bank": "^NSEBANK", "IT": "^CNXIT"},
		Macro:     map[string]string{"USDINR": "INR=X"},
		Benchmark: "^NSEI",
		From:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:        time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestCollector_Collect(t *testing.T) {
	store := s0_data.NewCSVStore(t.TempDir())
	source := &fakeSource{}
	mirror := &fakeMirror{}
	c := NewCollector(source, store, mirror, logger.Nop())

	results, err := c.Collect(context.Background(), request(), Config{Workers: 2})
	require.NoError(t, err)

	require.Len(t, results, 4)
	for _, r := range results {
		assert.NoError(t, r.Error)
		assert.False(t, r.Skipped)
		assert.Equal(t, 10, r.Count)
	}
	assert.Equal(t, s0_data.BenchmarkFile, results[0].File)
	assert.ElementsMatch(t, []string{"^NSEBANK", "^CNXIT", "INR=X", "^NSEI"}, mirror.saved)

	for _, f := range []string{s0_data.SectorsFile, s0_data.MacroFile, s0_data.BenchmarkFile} {
		assert.True(t, store.Exists(f), f)
	}
	sectors, err := store.Read(s0_data.SectorsFile)
	require.NoError(t, err)
	assert.Len(t, sectors, 2)
}

func TestCollector_SkipsCachedFilesUnlessForced(t *testing.T) {
	store := s0_data.NewCSVStore(t.TempDir())
	source := &fakeSource{}
	c := NewCollector(source, store, nil, logger.Nop())
	ctx := context.Background()

	_, err := c.Collect(ctx, request(), Config{Workers: 1})
	require.NoError(t, err)

	results, err := c.Collect(ctx, request(), Config{Workers: 1})
	require.NoError(t, err)
	for _, r := range results {
		assert.True(t, r.Skipped, r.Ticker)
	}
	assert.Equal(t, 1, source.calls["^CNXIT"])

	_, err = c.Collect(ctx, request(), Config{Workers: 1, ForceRefresh: true})
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls["^CNXIT"])
}

func TestCollector_PartialFailure(t *testing.T) {
	store := s0_data.NewCSVStore(t.TempDir())
	c := NewCollector(&fakeSource{failOn: "^CNXIT"}, store, nil, logger.Nop())

	results, err := c.Collect(context.Background(), request(), Config{Workers: 3})
	require.NoError(t, err)

	var failed []string
	for _, r := range results {
		if r.Error != nil {
			failed = append(failed, r.Ticker)
		}
	}
	assert.Equal(t, []string{"^CNXIT"}, failed)

	sectors, err := store.Read(s0_data.SectorsFile)
	require.NoError(t, err)
	assert.Contains(t, sectors, "^NSEBANK")
	assert.NotContains(t, sectors, "^CNXIT")
}

func TestCollector_IncompleteRefreshKeepsCache(t *testing.T) {
	store := s0_data.NewCSVStore(t.TempDir())
	ctx := context.Background()

	_, err := NewCollector(&fakeSource{}, store, nil, logger.Nop()).Collect(ctx, request(), Config{Workers: 1})
	require.NoError(t, err)

	c := NewCollector(&fakeSource{failOn: "^CNXIT"}, store, nil, logger.Nop())
	_, err = c.Collect(ctx, request(), Config{Workers: 2, ForceRefresh: true})
	require.NoError(t, err)

	sectors, err := store.Read(s0_data.SectorsFile)
	require.NoError(t, err)
	assert.Contains(t, sectors, "^NSEBANK")
	assert.Contains(t, sectors, "^CNXIT")
}

func TestCollector_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCollector(&fakeSource{}, s0_data.NewCSVStore(t.TempDir()), nil, logger.Nop())
	_, err := c.Collect(ctx, request(), Config{Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollector_ForceRefreshInvalidatesCache(t *testing.T) {
	store := s0_data.NewCSVStore(t.TempDir())
	source := &invalidatingSource{}
	c := NewCollector(source, store, nil, logger.Nop())
	ctx := context.Background()

	_, err := c.Collect(ctx, request(), Config{Workers: 2})
	require.NoError(t, err)
	assert.Empty(t, source.invalidated, "plain collect keeps the cache")

	_, err = c.Collect(ctx, request(), Config{Workers: 2, ForceRefresh: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"^NSEBANK", "^CNXIT", "INR=X", "^NSEI"}, source.invalidated)
}
