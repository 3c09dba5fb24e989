package audit

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorrotation/internal/backtest"
	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/store"
)

func date(s string) time.Time {
	t, err := time.Parse(contracts.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleSchedule(t *testing.T) *contracts.RotationSchedule {
	t.Helper()
	schedule, err := contracts.NewRotationSchedule([]contracts.Portfolio{
		{Date: date("2021-01-29"), Eligible: 6, Holdings: []contracts.Holding{
			{Sector: "IT", Weight: 0.5, Rank: 1},
			{Sector: "Bank", Weight: 0.5, Rank: 2},
		}},
		{Date: date("2021-02-26"), Eligible: 6, Holdings: []contracts.Holding{
			{Sector: "IT", Weight: 0.5, Rank: 1},
			{Sector: "Pharma", Weight: 0.5, Rank: 2},
		}},
		{Date: date("2021-03-31"), Carried: true, Holdings: []contracts.Holding{
			{Sector: "IT", Weight: 0.5, Rank: 1},
			{Sector: "Pharma", Weight: 0.5, Rank: 2},
		}},
		{Date: date("2021-04-30"), Eligible: 1, Holdings: []contracts.Holding{
			{Sector: "Metal", Weight: 1.0, Rank: 1},
		}},
	})
	require.NoError(t, err)
	return schedule
}

func sampleReport(t *testing.T) *Report {
	t.Helper()
	equity := contracts.EquityCurve{
		{Date: date("2021-01-29"), Value: 100000},
		{Date: date("2021-02-26"), Value: 104000, Return: 0.04},
		{Date: date("2021-03-31"), Value: 101920, Return: -0.02},
		{Date: date("2021-04-30"), Value: 108035.2, Return: 0.06},
	}
	bench := contracts.EquityCurve{
		{Date: date("2021-01-29"), Value: 100000},
		{Date: date("2021-02-26"), Value: 101000, Return: 0.01},
		{Date: date("2021-03-31"), Value: 102010, Return: 0.01},
		{Date: date("2021-04-30"), Value: 103030.1, Return: 0.01},
	}
	schedule := sampleSchedule(t)
	benchSummary := backtest.Summarize(bench, nil, 2, 0.06)

	var warnings contracts.Warnings
	warnings.Add(contracts.WarnDegenerateSelection, date("2021-03-31"), "", "no eligible sectors")
	for i := 0; i < 7; i++ {
		warnings.Add(contracts.WarnMissingFactor, date("2021-04-30"), "Auto", "missing rsi")
	}

	return NewReport(&backtest.Result{
		RunID:            "run-1",
		AsOf:             date("2021-04-30"),
		RequestedStart:   date("2021-01-29"),
		Start:            date("2021-01-29"),
		End:              date("2021-04-30"),
		ConfigHash:       "0123456789abcdef0123",
		Schedule:         schedule,
		Equity:           equity,
		Benchmark:        bench,
		Summary:          backtest.Summarize(equity, schedule, 2, 0.06),
		BenchmarkSummary: &benchSummary,
		Warnings:         warnings,
		CreatedAt:        time.Date(2021, 5, 1, 9, 0, 0, 0, time.UTC),
	})
}

func TestExposures(t *testing.T) {
	exposures := Exposures(sampleSchedule(t))
	require.Len(t, exposures, 4)

	assert.Equal(t, "IT", exposures[0].Sector)
	assert.Equal(t, 3, exposures[0].Periods)
	assert.InDelta(t, 0.75, exposures[0].Share, 1e-12)
	assert.InDelta(t, 0.375, exposures[0].AvgWeight, 1e-12)
	assert.InDelta(t, 0.5, exposures[0].MaxWeight, 1e-12)

	assert.Equal(t, "Pharma", exposures[1].Sector)
	assert.Equal(t, 2, exposures[1].Periods)

	// ties ordered by sector id
	assert.Equal(t, "Bank", exposures[2].Sector)
	assert.Equal(t, "Metal", exposures[3].Sector)
	assert.InDelta(t, 0.25, exposures[3].AvgWeight, 1e-12)
	assert.InDelta(t, 1.0, exposures[3].MaxWeight, 1e-12)
}

func TestExposures_Empty(t *testing.T) {
	assert.Nil(t, Exposures(nil))

	empty, err := contracts.NewRotationSchedule(nil)
	require.NoError(t, err)
	assert.Nil(t, Exposures(empty))
}

func TestTurnover(t *testing.T) {
	// Bank→Pharma 0.5, no change, IT+Pharma→Metal 1.0
	assert.InDelta(t, 0.5, Turnover(sampleSchedule(t)), 1e-12)
	assert.Zero(t, Turnover(nil))
}

func TestConsole_Print(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleWriter(&buf, true).Print(sampleReport(t))
	out := buf.String()

	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "0123456789ab")
	assert.NotContains(t, out, "0123456789abcdef0123")
	assert.Contains(t, out, "Sharpe ratio")
	assert.Contains(t, out, "8.04%") // strategy total return
	assert.Contains(t, out, "3.03%") // benchmark total return
	assert.Contains(t, out, "Pharma")
	assert.Contains(t, out, "Metal 100%")
	assert.Contains(t, out, "Rebalances: 4  underfilled: 1 (25.00%)")
	assert.Contains(t, out, "Warnings: 8")
	assert.Contains(t, out, "MISSING_FACTOR (7)")
	assert.Contains(t, out, "... 2 more")
	assert.Contains(t, out, "DEGENERATE_SELECTION (1)")
}

func TestConsole_PrintWithoutBenchmarkOrSchedule(t *testing.T) {
	report := sampleReport(t)
	report.Benchmark = nil
	report.BenchmarkSummary = nil
	report.Warnings = nil

	var buf bytes.Buffer
	NewConsoleWriter(&buf, false).Print(report)
	out := buf.String()

	assert.NotContains(t, out, "Benchmark")
	assert.NotContains(t, out, "2021-02-26")
	assert.Contains(t, out, "No warnings")
}

func TestConsole_PrintRuns(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	c.PrintRuns(nil)
	assert.Equal(t, "no runs stored\n", buf.String())

	buf.Reset()
	c.PrintRuns([]store.RunSummary{{
		RunID:       "run-1",
		AsOf:        date("2021-04-30"),
		Start:       date("2016-04-29"),
		ConfigHash:  "abcdef0123456789",
		TotalReturn: 0.5,
		SharpeRatio: 0.81,
		MaxDrawdown: 0.2,
		Warnings:    3,
		CreatedAt:   time.Date(2021, 5, 1, 9, 30, 0, 0, time.UTC),
	}})
	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "abcdef012345")
	assert.Contains(t, out, "50.00%")
	assert.Contains(t, out, "0.81")
	assert.Contains(t, out, "2021-05-01 09:30")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport(t)))

	var decoded struct {
		RunID     string     `json:"run_id"`
		Turnover  float64    `json:"turnover"`
		Exposures []Exposure `json:"exposures"`
		Schedule  []struct {
			Date     time.Time `json:"date"`
			Carried  bool      `json:"carried"`
			Holdings []struct {
				Sector string  `json:"sector"`
				Weight float64 `json:"weight"`
			} `json:"holdings"`
		} `json:"schedule"`
		Summary  backtest.Summary   `json:"summary"`
		Warnings contracts.Warnings `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "run-1", decoded.RunID)
	assert.InDelta(t, 0.5, decoded.Turnover, 1e-12)
	assert.Len(t, decoded.Exposures, 4)
	require.Len(t, decoded.Schedule, 4)
	assert.True(t, decoded.Schedule[2].Carried)
	assert.Equal(t, "Metal", decoded.Schedule[3].Holdings[0].Sector)
	assert.Equal(t, 4, decoded.Summary.Rebalances)
	assert.Len(t, decoded.Warnings, 8)
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run-1.json")
	require.NoError(t, SaveJSON(path, sampleReport(t)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "{\n"))
	assert.Contains(t, string(raw), `"config_hash": "0123456789abcdef0123"`)
}

func TestEquityPlot(t *testing.T) {
	p, err := EquityPlot(sampleReport(t))
	require.NoError(t, err)
	assert.Contains(t, p.Title.Text, "2021-01-29")

	report := sampleReport(t)
	report.Equity = nil
	_, err = EquityPlot(report)
	assert.Error(t, err)
}

func TestSavePlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots", "equity.png")
	require.NoError(t, SavePlot(path, sampleReport(t)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
