package s2_signals

import (
	"fmt"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/wonny/sectorrotation/internal/contracts"
)

// NeutralRSI is reported when there were no losses in the window
const NeutralRSI = 50.0

// RSI computes the relative strength index over the last period price
// changes up to asOf using simple averages of gains and losses.
// Needs period+1 observations. Bounded to [0, 100].
// ⭐ SSOT: 기술적 지표 계산은 여기서만
func RSI(series *contracts.PriceSeries, asOf time.Time, period int) contracts.FactorValue {
	hist := series.Until(asOf)
	if hist.Len() < period+1 {
		return contracts.Missing(fmt.Sprintf("needs %d observations, have %d", period+1, hist.Len()))
	}

	var gains, losses float64
	n := hist.Len()
	for i := n - period; i < n; i++ {
		change := hist.At(i).Value - hist.At(i-1).Value
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	// 손실이 없으면 RS 정의 불가 → 중립
	if avgLoss == 0 {
		return contracts.Present(NeutralRSI)
	}

	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))

	return contracts.Present(clamp(rsi, 0, 100))
}

// Volatility computes the sample standard deviation of daily returns over
// the trailing months ending at asOf. Missing if the series does not reach
// back that far or yields fewer than two returns.
func Volatility(series *contracts.PriceSeries, asOf time.Time, months int) contracts.FactorValue {
	hist := series.Until(asOf)
	start := contracts.DateOnly(asOf).AddDate(0, -months, 0)
	if !hist.Covers(start) {
		return contracts.Missing(fmt.Sprintf("needs %dm of history", months))
	}

	window := hist.Between(start, asOf)
	returns := periodReturns(window.Values())
	if len(returns) < 2 {
		return contracts.Missing("fewer than two returns in window")
	}

	sd, err := stats.StandardDeviationSample(returns)
	if err != nil {
		return contracts.Missing(err.Error())
	}
	return contracts.Present(sd)
}

// periodReturns converts prices into simple returns, skipping non-positive bases
func periodReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 {
			continue
		}
		out = append(out, prices[i]/prices[i-1]-1)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
