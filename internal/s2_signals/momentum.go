package s2_signals

import (
	"fmt"
	"time"

	"github.com/wonny/sectorrotation/internal/contracts"
)

// Momentum computes the trailing total return over months ending at asOf:
// P(asOf) / P(asOf - months) - 1, where each price is the last observed on
// or before its date. Missing if the series does not reach back that far.
// ⭐ SSOT: 모멘텀 팩터 계산은 여기서만
func Momentum(series *contracts.PriceSeries, asOf time.Time, months int) contracts.FactorValue {
	hist := series.Until(asOf)
	last, ok := hist.Last()
	if !ok {
		return contracts.Missing("no price history")
	}

	start := contracts.DateOnly(asOf).AddDate(0, -months, 0)
	base, ok := hist.ValueAt(start)
	if !ok {
		return contracts.Missing(fmt.Sprintf("needs %dm of history", months))
	}
	if base <= 0 {
		return contracts.Missing("non-positive base price")
	}

	return contracts.Present(last.Value/base - 1)
}
