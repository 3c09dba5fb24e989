package backtest

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/wonny/sectorrotation/internal/contracts"
)

// TradingDaysPerYear annualizes daily statistics
const TradingDaysPerYear = 252

// Summary holds the performance statistics of one equity curve
type Summary struct {
	StartValue           float64 `json:"start_value"`
	EndValue             float64 `json:"end_value"`
	TotalReturn          float64 `json:"total_return"`
	AnnualizedReturn     float64 `json:"annualized_return"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	SortinoRatio         float64 `json:"sortino_ratio"`
	MaxDrawdown          float64 `json:"max_drawdown"` // positive fraction of the running peak
	TradingDays          int     `json:"trading_days"`

	// Data-quality signal: rebalance dates holding fewer than top_n sectors
	Rebalances          int     `json:"rebalances"`
	Underfilled         int     `json:"underfilled"`
	UnderfilledFraction float64 `json:"underfilled_fraction"`
}

// Summarize computes summary statistics for curve. schedule may be nil
// (benchmark curves), in which case the rebalance counters stay zero.
func Summarize(curve contracts.EquityCurve, schedule *contracts.RotationSchedule, topN int, riskFree float64) Summary {
	var s Summary
	if schedule != nil {
		s.Rebalances = schedule.Len()
		for _, p := range schedule.Portfolios() {
			if p.Count() < topN {
				s.Underfilled++
			}
		}
		if s.Rebalances > 0 {
			s.UnderfilledFraction = float64(s.Underfilled) / float64(s.Rebalances)
		}
	}

	first, ok := curve.First()
	if !ok {
		return s
	}
	last, _ := curve.Last()

	s.TradingDays = len(curve)
	s.StartValue = first.Value
	s.EndValue = last.Value
	if first.Value > 0 {
		s.TotalReturn = last.Value/first.Value - 1
	}

	periods := len(curve) - 1
	if periods > 0 && s.TotalReturn > -1 {
		s.AnnualizedReturn = math.Pow(1+s.TotalReturn, TradingDaysPerYear/float64(periods)) - 1
	} else if s.TotalReturn <= -1 {
		s.AnnualizedReturn = -1
	}

	returns := curve.Returns()
	if len(returns) >= 2 {
		sd, _ := stats.StandardDeviationSample(returns)
		s.AnnualizedVolatility = sd * math.Sqrt(TradingDaysPerYear)
	}
	if s.AnnualizedVolatility > 0 {
		s.SharpeRatio = (s.AnnualizedReturn - riskFree) / s.AnnualizedVolatility
	}

	if dd := downsideDeviation(returns) * math.Sqrt(TradingDaysPerYear); dd > 0 {
		s.SortinoRatio = (s.AnnualizedReturn - riskFree) / dd
	}

	s.MaxDrawdown = MaxDrawdown(curve)
	return s
}

// MaxDrawdown returns the largest peak-to-trough decline as a positive fraction
func MaxDrawdown(curve contracts.EquityCurve) float64 {
	if len(curve) == 0 {
		return 0
	}

	maxDrawdown := 0.0
	peak := curve[0].Value

	for _, point := range curve {
		if point.Value > peak {
			peak = point.Value
		}
		if peak <= 0 {
			continue
		}

		drawdown := (peak - point.Value) / peak
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}

	return maxDrawdown
}

// downsideDeviation is the root mean square of negative returns over all periods
func downsideDeviation(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	squares := make([]float64, len(returns))
	for i, r := range returns {
		if r < 0 {
			squares[i] = r * r
		}
	}
	mean, err := stats.Mean(squares)
	if err != nil {
		return 0
	}
	return math.Sqrt(mean)
}
