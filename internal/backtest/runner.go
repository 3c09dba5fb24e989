package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/rotation"
	"github.com/wonny/sectorrotation/internal/s2_signals"
	"github.com/wonny/sectorrotation/internal/strategyconfig"
	"github.com/wonny/sectorrotation/pkg/logger"
)

// warmupBufferDays pads data requests beyond the longest factor lookback
const warmupBufferDays = 30

// Result is the outcome of one backtest run
type Result struct {
	RunID            string                      `json:"run_id"`
	AsOf             time.Time                   `json:"as_of"`
	RequestedStart   time.Time                   `json:"requested_start"`
	Start            time.Time                   `json:"start"`
	End              time.Time                   `json:"end"`
	ConfigHash       string                      `json:"config_hash"`
	Schedule         *contracts.RotationSchedule `json:"schedule"`
	Equity           contracts.EquityCurve       `json:"equity"`
	Benchmark        contracts.EquityCurve       `json:"benchmark,omitempty"`
	Summary          Summary                     `json:"summary"`
	BenchmarkSummary *Summary                    `json:"benchmark_summary,omitempty"`
	Warnings         contracts.Warnings          `json:"warnings"`
	CreatedAt        time.Time                   `json:"created_at"`
}

// Runner loads data, builds the rotation schedule and simulates it over
// [as_of - lookback_years, as_of]
type Runner struct {
	cfg      *strategyconfig.Config
	provider contracts.MarketDataProvider
	logger   *logger.Logger
}

// NewRunner creates a backtest runner
func NewRunner(cfg *strategyconfig.Config, provider contracts.MarketDataProvider, log *logger.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		provider: provider,
		logger:   log.WithField("component", "backtest"),
	}
}

// RequestedStart returns as_of minus the configured lookback horizon
func RequestedStart(cfg *strategyconfig.Config, asOf time.Time) time.Time {
	return contracts.DateOnly(asOf).AddDate(-cfg.Backtest.LookbackYears, 0, 0)
}

// DataRequest returns the instruments and range a backtest at asOf needs:
// the backtest window plus the longest factor warmup and a small buffer
func DataRequest(cfg *strategyconfig.Config, asOf time.Time) contracts.DataRequest {
	start := RequestedStart(cfg, asOf)
	from := s2_signals.ParamsFromConfig(cfg).LongestLookback(start).AddDate(0, 0, -warmupBufferDays)
	return contracts.DataRequest{
		Sectors:   cfg.SectorTickers(),
		Macro:     cfg.MacroTickers(),
		Benchmark: cfg.Backtest.Benchmark,
		From:      from,
		To:        contracts.DateOnly(asOf),
	}
}

// Run loads market data through the provider and runs the backtest at asOf
func (r *Runner) Run(ctx context.Context, asOf time.Time) (*Result, error) {
	req := DataRequest(r.cfg, asOf)
	data, err := r.provider.Load(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("load market data: %w", err)
	}
	return r.RunWithData(ctx, data, asOf)
}

// RunWithData runs the backtest at asOf over already loaded data.
// Fails with *contracts.InsufficientHistoryError when the data cannot
// support a start within tolerance of the requested start, or stops short
// of asOf by more than the tolerance.
func (r *Runner) RunWithData(ctx context.Context, data *contracts.MarketData, asOf time.Time) (*Result, error) {
	asOf = contracts.DateOnly(asOf)
	requested := RequestedStart(r.cfg, asOf)
	tolerance := r.cfg.StartTolerance()

	engine, err := rotation.NewEngine(r.cfg, data, r.logger)
	if err != nil {
		return nil, err
	}

	if err := checkCoverage(engine.TradingDates(), requested, asOf, tolerance); err != nil {
		return nil, err
	}

	schedule, warnings, err := engine.Run(ctx, requested, asOf)
	if err != nil {
		return nil, err
	}

	sim := NewSimulator(r.cfg, r.logger)
	result, err := sim.Run(ctx, schedule, data, Window{Start: schedule.At(0).Date, End: asOf})
	if err != nil {
		return nil, err
	}

	if gap := result.Start.Sub(requested); gap > tolerance {
		return nil, &contracts.InsufficientHistoryError{
			Requested: requested,
			Earliest:  result.Start,
			Reason:    fmt.Sprintf("equity curve starts %s after the requested start (tolerance %s)", gap, tolerance),
		}
	}

	hash, err := strategyconfig.Hash(r.cfg)
	if err != nil {
		return nil, fmt.Errorf("hash strategy config: %w", err)
	}

	result.RunID = uuid.NewString()
	result.AsOf = asOf
	result.RequestedStart = requested
	result.ConfigHash = hash
	result.Warnings = warnings
	result.CreatedAt = time.Now().UTC()

	r.logger.WithFields(map[string]interface{}{
		"run_id":       result.RunID,
		"as_of":        asOf.Format(contracts.DateLayout),
		"start":        result.Start.Format(contracts.DateLayout),
		"rebalances":   result.Summary.Rebalances,
		"underfilled":  result.Summary.Underfilled,
		"warnings":     len(warnings),
		"sharpe_ratio": fmt.Sprintf("%.2f", result.Summary.SharpeRatio),
	}).Info("Backtest completed")

	return result, nil
}

// checkCoverage rejects data whose trading calendar starts too late after
// requested or ends too early before asOf
func checkCoverage(calendar []time.Time, requested, asOf time.Time, tolerance time.Duration) error {
	i := sort.Search(len(calendar), func(i int) bool { return !calendar[i].Before(requested) })
	if i == len(calendar) {
		return &contracts.InsufficientHistoryError{
			Requested: requested,
			Reason:    "no trading dates on or after the requested start",
		}
	}
	if gap := calendar[i].Sub(requested); gap > tolerance {
		return &contracts.InsufficientHistoryError{
			Requested: requested,
			Earliest:  calendar[i],
			Reason:    fmt.Sprintf("first trading date is %s after the requested start (tolerance %s)", gap, tolerance),
		}
	}

	last := calendar[len(calendar)-1]
	if gap := asOf.Sub(last); gap > tolerance {
		return &contracts.InsufficientHistoryError{
			Requested: requested,
			Reason:    fmt.Sprintf("data ends %s, %s before as-of %s", last.Format(contracts.DateLayout), gap, asOf.Format(contracts.DateLayout)),
		}
	}
	return nil
}
