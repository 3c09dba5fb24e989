package rotation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/portfolio"
	"github.com/wonny/sectorrotation/internal/s2_signals"
	"github.com/wonny/sectorrotation/internal/selection"
	"github.com/wonny/sectorrotation/internal/strategyconfig"
	"github.com/wonny/sectorrotation/pkg/logger"
)

// State is the engine's per-date processing stage
type State string

const (
	AwaitingDate State = "AWAITING_DATE"
	Scoring      State = "SCORING"
	Selecting    State = "SELECTING"
	Emitted      State = "EMITTED"
)

// Engine walks the evaluation dates in order and produces the RotationSchedule
// ⭐ SSOT: 리밸런싱 일정 생성은 여기서만
type Engine struct {
	cfg         *strategyconfig.Config
	data        *contracts.MarketData
	trading     []time.Time
	library     *s2_signals.Library
	scorer      *selection.Scorer
	constructor *portfolio.Constructor
	logger      *logger.Logger
}

// NewEngine wires the factor library, scorer and constructor over loaded data.
// data must already be fully loaded; the engine never fetches.
func NewEngine(cfg *strategyconfig.Config, data *contracts.MarketData, log *logger.Logger) (*Engine, error) {
	if err := strategyconfig.Validate(cfg); err != nil {
		return nil, err
	}
	if data == nil || len(data.Sectors) == 0 {
		return nil, &contracts.InsufficientHistoryError{Reason: "no sector price data loaded"}
	}

	constructor, err := portfolio.NewConstructorFromConfig(cfg, log)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:         cfg,
		data:        data,
		trading:     data.Calendar(),
		library:     s2_signals.NewLibrary(cfg, log),
		scorer:      selection.NewScorer(cfg, log),
		constructor: constructor,
		logger:      log.WithField("component", "rotation"),
	}, nil
}

// TradingDates returns the trading calendar derived from sector data
func (e *Engine) TradingDates() []time.Time {
	return e.trading
}

// EarliestStart returns the first trading date whose longest factor lookback
// is covered by the data
func (e *Engine) EarliestStart() (time.Time, error) {
	earliest, ok := e.data.EarliestDate()
	if !ok {
		return time.Time{}, &contracts.InsufficientHistoryError{Reason: "no sector price data loaded"}
	}

	params := e.library.Params()
	for _, d := range e.trading {
		if !earliest.After(params.LongestLookback(d)) {
			return d, nil
		}
	}

	last := e.trading[len(e.trading)-1]
	return time.Time{}, &contracts.InsufficientHistoryError{
		Requested: last,
		Reason:    fmt.Sprintf("data from %s never covers a %dy valuation window", earliest.Format(contracts.DateLayout), params.ValuationYears),
	}
}

// Run builds the schedule for evaluation dates in [start, end].
// Fails fast with *contracts.InsufficientHistoryError when the first
// evaluation date lacks warmup; degenerate dates follow the configured policy.
func (e *Engine) Run(ctx context.Context, start, end time.Time) (*contracts.RotationSchedule, contracts.Warnings, error) {
	start, end = contracts.DateOnly(start), contracts.DateOnly(end)

	dates, err := Calendar(e.trading, start, end, e.cfg.Selection.RebalanceFrequency)
	if err != nil {
		return nil, nil, err
	}
	if len(dates) == 0 {
		return nil, nil, &contracts.InsufficientHistoryError{
			Requested: start,
			Reason:    fmt.Sprintf("no trading dates between %s and %s", start.Format(contracts.DateLayout), end.Format(contracts.DateLayout)),
		}
	}

	warnings, err := e.checkWarmup(dates[0])
	if err != nil {
		return nil, nil, err
	}
	e.library.ResetWarnings()

	e.logger.WithFields(map[string]interface{}{
		"start":     dates[0].Format(contracts.DateLayout),
		"end":       dates[len(dates)-1].Format(contracts.DateLayout),
		"dates":     len(dates),
		"frequency": e.cfg.Selection.RebalanceFrequency,
	}).Info("Rotation started")

	entries := make([]contracts.Portfolio, 0, len(dates))
	var prev *contracts.Portfolio

	for _, d := range dates {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		p, dateWarnings, err := e.evaluate(ctx, d, prev)
		if err != nil {
			return nil, nil, fmt.Errorf("evaluate %s: %w", d.Format(contracts.DateLayout), err)
		}
		warnings.Extend(dateWarnings)

		entries = append(entries, p)
		prev = &entries[len(entries)-1]
	}

	schedule, err := contracts.NewRotationSchedule(entries)
	if err != nil {
		return nil, nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"dates":    schedule.Len(),
		"warnings": len(warnings),
	}).Info("Rotation completed")

	return schedule, warnings, nil
}

// evaluate runs one date through AWAITING_DATE → SCORING → SELECTING → EMITTED
func (e *Engine) evaluate(ctx context.Context, d time.Time, prev *contracts.Portfolio) (contracts.Portfolio, contracts.Warnings, error) {
	log := e.logger.WithDate("date", d)
	log.WithField("state", AwaitingDate).Debug("State transition")

	log.WithField("state", Scoring).Debug("State transition")
	snap, warnings, err := e.library.Snapshot(ctx, e.data, d)
	if err != nil {
		return contracts.Portfolio{}, nil, err
	}
	scores, scoreWarnings := e.scorer.Score(snap)
	warnings.Extend(scoreWarnings)

	log.WithField("state", Selecting).Debug("State transition")
	p, err := e.constructor.Construct(d, selection.Rank(scores))

	var degenerate *contracts.DegenerateSelectionError
	switch {
	case errors.As(err, &degenerate):
		warnings.FromError(degenerate)
		p = e.fallback(d, prev, log)
	case err != nil:
		return contracts.Portfolio{}, nil, err
	case p.Count() < e.cfg.Selection.TopN:
		warnings.Add(contracts.WarnUnderfilled, d, "",
			fmt.Sprintf("held %d of %d sectors (%d eligible)", p.Count(), e.cfg.Selection.TopN, p.Eligible))
	}

	log.WithFields(map[string]interface{}{
		"state":   Emitted,
		"sectors": p.Sectors(),
		"carried": p.Carried,
	}).Debug("State transition")

	return p, warnings, nil
}

// fallback applies the degenerate-date policy
func (e *Engine) fallback(d time.Time, prev *contracts.Portfolio, log *logger.Logger) contracts.Portfolio {
	if e.cfg.Portfolio.DegeneratePolicy == strategyconfig.CarryForward && prev != nil {
		log.WithField("sectors", prev.Sectors()).Warn("No eligible sectors: carrying forward prior weights")
		return prev.CarryForward(d)
	}

	reason := "policy is cash"
	if prev == nil {
		reason = "no prior portfolio to carry forward"
	}
	log.WithField("reason", reason).Warn("No eligible sectors: holding cash")
	return contracts.Portfolio{Date: d}
}

// checkWarmup fails when the universe's data does not reach the longest
// lookback before the first evaluation date, and warns for sectors that
// individually start later
func (e *Engine) checkWarmup(first time.Time) (contracts.Warnings, error) {
	var warnings contracts.Warnings
	required := e.library.Params().LongestLookback(first)

	earliest, ok := e.data.EarliestDate()
	if !ok || earliest.After(required) {
		validFrom, _ := e.EarliestStart()
		return nil, &contracts.InsufficientHistoryError{
			Requested: first,
			Earliest:  validFrom,
			Reason:    fmt.Sprintf("longest factor lookback needs data from %s", required.Format(contracts.DateLayout)),
		}
	}

	for _, id := range e.cfg.SectorIDs() {
		series, ok := e.data.Sector(id)
		if ok && series.Covers(required) {
			continue
		}
		warnings.Add(contracts.WarnSectorWarmup, first, id,
			fmt.Sprintf("history does not reach %s: excluded until warm", required.Format(contracts.DateLayout)))
	}
	return warnings, nil
}
