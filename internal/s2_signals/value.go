package s2_signals

import (
	"fmt"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/strategyconfig"
)

// Valuation computes the long-window valuation proxy as of asOf.
// absolute: price - SMA over (asOf - years, asOf]
// relative: (price - SMA) / SMA
// More negative means more undervalued. Missing unless the series reaches
// back at least the full window before asOf.
// ⭐ SSOT: 밸류에이션 팩터 계산은 여기서만
func Valuation(series *contracts.PriceSeries, asOf time.Time, years int, mode strategyconfig.ValuationMode) contracts.FactorValue {
	hist := series.Until(asOf)
	if hist.Len() == 0 {
		return contracts.Missing("no price history")
	}

	windowStart := contracts.DateOnly(asOf).AddDate(-years, 0, 0)
	if !hist.Covers(windowStart) {
		return contracts.Missing(fmt.Sprintf("needs %dy of history before %s", years, asOf.Format(contracts.DateLayout)))
	}

	window := hist.Between(windowStart.AddDate(0, 0, 1), asOf)
	if window.Len() == 0 {
		return contracts.Missing("empty valuation window")
	}

	sma, err := stats.Mean(window.Values())
	if err != nil {
		return contracts.Missing(err.Error())
	}

	last, _ := hist.Last()
	price := last.Value

	switch mode {
	case strategyconfig.ValuationRelative:
		if sma == 0 {
			return contracts.Missing("zero moving average")
		}
		return contracts.Present((price - sma) / sma)
	default:
		return contracts.Present(price - sma)
	}
}
