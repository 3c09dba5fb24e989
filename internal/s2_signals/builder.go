package s2_signals

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/strategyconfig"
	"github.com/wonny/sectorrotation/pkg/logger"
)

// MaxStaleness is how far a sector's last close may trail the evaluation
// date before its factors are treated as missing
const MaxStaleness = 10 * 24 * time.Hour

// Params holds the factor windows
type Params struct {
	ValuationYears   int
	ValuationMode    strategyconfig.ValuationMode
	MomentumMonths   int
	VolatilityMonths int
	RSIPeriod        int
}

// ParamsFromConfig extracts factor windows from the strategy
func ParamsFromConfig(cfg *strategyconfig.Config) Params {
	return Params{
		ValuationYears:   cfg.Factors.ValuationWindowYears,
		ValuationMode:    cfg.Factors.ValuationMode,
		MomentumMonths:   cfg.Factors.MomentumWindowMonths,
		VolatilityMonths: cfg.Factors.VolatilityWindowMonths,
		RSIPeriod:        cfg.Factors.RSIPeriod,
	}
}

// LongestLookback returns how far before asOf the slowest factor reads
func (p Params) LongestLookback(asOf time.Time) time.Time {
	earliest := asOf.AddDate(-p.ValuationYears, 0, 0)
	if t := asOf.AddDate(0, -p.MomentumMonths, 0); t.Before(earliest) {
		earliest = t
	}
	if t := asOf.AddDate(0, -p.VolatilityMonths, 0); t.Before(earliest) {
		earliest = t
	}
	return earliest
}

// Library computes a FactorSnapshot for the universe at one date
// ⭐ SSOT: 팩터 계산 오케스트레이션은 여기서만
type Library struct {
	params        Params
	sectors       []string
	macro         strategyconfig.Macro
	sensitivities map[string][]strategyconfig.Sensitivity // key: sector id
	logger        *logger.Logger

	mu          sync.Mutex
	macroWarned map[string]bool // key: indicator id
}

// NewLibrary creates a factor library for the configured universe
func NewLibrary(cfg *strategyconfig.Config, log *logger.Logger) *Library {
	sens := make(map[string][]strategyconfig.Sensitivity)
	if cfg.Macro.Enabled {
		for _, s := range cfg.Macro.Sensitivities {
			sens[s.Sector] = append(sens[s.Sector], s)
		}
	}

	return &Library{
		params:        ParamsFromConfig(cfg),
		sectors:       cfg.SectorIDs(),
		macro:         cfg.Macro,
		sensitivities: sens,
		logger:        log,
		macroWarned:   make(map[string]bool),
	}
}

// ResetWarnings forgets which macro indicators were already reported, so
// the next Snapshot warns again for each unavailable indicator
func (l *Library) ResetWarnings() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.macroWarned = make(map[string]bool)
}

// Params returns the factor windows
func (l *Library) Params() Params {
	return l.params
}

// Snapshot computes every factor for every universe sector as of asOf.
// Sectors without data, or whose last close trails asOf by more than
// MaxStaleness, get an entry with all core factors Missing.
// The macro factor is the negated count of regimes unfavorable to the
// sector (0 = no headwind).
func (l *Library) Snapshot(ctx context.Context, data *contracts.MarketData, asOf time.Time) (*contracts.FactorSnapshot, contracts.Warnings, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	asOf = contracts.DateOnly(asOf)
	snap := &contracts.FactorSnapshot{
		Date:    asOf,
		Sectors: make(map[string]contracts.SectorFactors, len(l.sectors)),
	}
	var warnings contracts.Warnings

	regimes := l.regimes(data, asOf, &warnings)

	for _, id := range l.sectors {
		series, ok := data.Sector(id)
		values := make(map[contracts.FactorName]contracts.FactorValue, 5)

		stale, isStale := staleness(series, asOf)
		switch {
		case !ok:
			for _, name := range contracts.CoreFactors {
				values[name] = contracts.Missing("no price series")
			}
		case isStale:
			for _, name := range contracts.CoreFactors {
				values[name] = contracts.Missing(stale)
			}
		default:
			values[contracts.FactorValuation] = Valuation(series, asOf, l.params.ValuationYears, l.params.ValuationMode)
			values[contracts.FactorMomentum] = Momentum(series, asOf, l.params.MomentumMonths)
			values[contracts.FactorVolatility] = Volatility(series, asOf, l.params.VolatilityMonths)
			values[contracts.FactorRSI] = RSI(series, asOf, l.params.RSIPeriod)
		}
		values[contracts.FactorMacro] = l.macroFactor(id, regimes)

		snap.Sectors[id] = contracts.SectorFactors{Sector: id, Values: values}
	}

	l.logger.WithFields(map[string]interface{}{
		"date":     asOf.Format(contracts.DateLayout),
		"sectors":  len(snap.Sectors),
		"eligible": len(snap.Eligible()),
	}).Debug("Factor snapshot computed")

	return snap, warnings, nil
}

// staleness reports whether the last close on or before asOf is too old
func staleness(series *contracts.Series, asOf time.Time) (string, bool) {
	if series == nil {
		return "", false
	}
	last, ok := series.Until(asOf).Last()
	if !ok || asOf.Sub(last.Date) <= MaxStaleness {
		return "", false
	}
	return "stale series: last close " + last.Date.Format(contracts.DateLayout), true
}

// regimes classifies each configured indicator once per date. An unavailable
// indicator is warned about on the first date it is seen unavailable only.
func (l *Library) regimes(data *contracts.MarketData, asOf time.Time, warnings *contracts.Warnings) map[string]contracts.FactorValue {
	out := make(map[string]contracts.FactorValue)
	if !l.macro.Enabled {
		return out
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, ind := range l.macro.Indicators {
		series := data.Macro[ind.ID]
		regime := MacroRegime(series, asOf, ind.TrendLookback)
		if !regime.Present && !l.macroWarned[ind.ID] {
			l.macroWarned[ind.ID] = true
			warnings.Add(contracts.WarnMacroUnavailable, asOf, "",
				fmt.Sprintf("macro %s unavailable (%s): treated as neutral", ind.ID, regime.Reason))
		}
		out[ind.ID] = regime
	}
	return out
}

// macroFactor evaluates the sector's sensitivity table against the regimes
func (l *Library) macroFactor(sector string, regimes map[string]contracts.FactorValue) contracts.FactorValue {
	sens := l.sensitivities[sector]
	if len(sens) == 0 {
		return contracts.Present(0)
	}

	unfavorable := 0
	known := 0
	for _, s := range sens {
		regime, ok := regimes[s.Indicator]
		if !ok || !regime.Present {
			continue
		}
		known++
		rising := regime.Value > 0
		if (s.Favors == strategyconfig.FavorsRising && !rising) || (s.Favors == strategyconfig.FavorsFalling && rising) {
			unfavorable++
		}
	}

	if known == 0 {
		return contracts.Missing("macro regime unavailable")
	}
	return contracts.Present(-float64(unfavorable))
}
