package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/strategyconfig"
	"github.com/wonny/sectorrotation/pkg/logger"
)

// Window is the inclusive date range the equity curve covers
type Window struct {
	Start time.Time
	End   time.Time
}

// Simulator applies a RotationSchedule to realized sector prices
// ⭐ SSOT: 백테스팅 시뮬레이션은 여기서만
type Simulator struct {
	capital  float64
	topN     int
	riskFree float64
	logger   *logger.Logger
}

// NewSimulator creates a simulator from the strategy's backtest settings
func NewSimulator(cfg *strategyconfig.Config, log *logger.Logger) *Simulator {
	return &Simulator{
		capital:  cfg.Backtest.InitialCapital,
		topN:     cfg.Selection.TopN,
		riskFree: cfg.Backtest.RiskFreeRate,
		logger:   log.WithField("component", "simulator"),
	}
}

// position is the marked value of one held sector
type position struct {
	sector string
	value  float64
}

// book is the simulated account between two rebalances
type book struct {
	positions []position
	cash      float64
}

func (b *book) equity() float64 {
	total := b.cash
	for _, p := range b.positions {
		total += p.value
	}
	return total
}

// Run produces the equity curve for window. The portfolio decided at the
// close of evaluation date D is bought at that close and held, drifting with
// realized prices, until the next evaluation date. A carried portfolio keeps
// the drifted positions untouched. The curve has one point per trading date,
// starting at the initial capital.
func (s *Simulator) Run(ctx context.Context, schedule *contracts.RotationSchedule, data *contracts.MarketData, window Window) (*Result, error) {
	if schedule == nil || schedule.Len() == 0 {
		return nil, fmt.Errorf("simulate: empty rotation schedule")
	}

	days := tradingDays(data.Calendar(), window)
	if len(days) == 0 {
		return nil, &contracts.InsufficientHistoryError{
			Requested: window.Start,
			Reason:    fmt.Sprintf("no trading dates between %s and %s", window.Start.Format(contracts.DateLayout), window.End.Format(contracts.DateLayout)),
		}
	}

	curve := make(contracts.EquityCurve, 0, len(days))
	curve = append(curve, contracts.EquityPoint{Date: days[0], Value: s.capital})

	acct := &book{cash: s.capital}
	active := schedule.ActiveBefore(days[0].AddDate(0, 0, 1))
	if active >= 0 {
		acct = s.rebalance(schedule.At(active), s.capital)
	}

	for i := 1; i < len(days); i++ {
		prev, t := days[i-1], days[i]

		if idx := schedule.ActiveBefore(t); idx != active {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			p := schedule.At(idx)
			if !p.Carried || active < 0 {
				acct = s.rebalance(p, acct.equity())
			}
			active = idx
		}

		before := acct.equity()
		for j := range acct.positions {
			series, _ := data.Sector(acct.positions[j].sector)
			acct.positions[j].value *= 1 + growth(series, prev, t)
		}
		after := acct.equity()

		ret := 0.0
		if before > 0 {
			ret = after/before - 1
		}
		curve = append(curve, contracts.EquityPoint{Date: t, Value: after, Return: ret})
	}

	result := &Result{
		Start:    curve[0].Date,
		End:      curve[len(curve)-1].Date,
		Schedule: schedule,
		Equity:   curve,
	}
	result.Summary = Summarize(curve, schedule, s.topN, s.riskFree)

	if bench := s.benchmark(data.Benchmark, days); bench != nil {
		result.Benchmark = bench
		summary := Summarize(bench, nil, 0, s.riskFree)
		result.BenchmarkSummary = &summary
	}

	s.logger.WithFields(map[string]interface{}{
		"start":        result.Start.Format(contracts.DateLayout),
		"end":          result.End.Format(contracts.DateLayout),
		"trading_days": len(curve),
		"rebalances":   schedule.Len(),
		"total_return": fmt.Sprintf("%.2f%%", result.Summary.TotalReturn*100),
		"max_drawdown": fmt.Sprintf("%.2f%%", result.Summary.MaxDrawdown*100),
	}).Info("Simulation completed")

	return result, nil
}

// rebalance resets the book to the portfolio's target weights
func (s *Simulator) rebalance(p contracts.Portfolio, equity float64) *book {
	b := &book{positions: make([]position, 0, len(p.Holdings))}
	invested := 0.0
	for _, h := range p.Holdings {
		v := equity * h.Weight
		b.positions = append(b.positions, position{sector: h.Sector, value: v})
		invested += v
	}
	b.cash = equity - invested
	return b
}

// benchmark is a buy-and-hold of the benchmark series over days.
// Nil when the benchmark has no price at the first day.
func (s *Simulator) benchmark(series *contracts.PriceSeries, days []time.Time) contracts.EquityCurve {
	if series == nil || series.Len() == 0 {
		return nil
	}
	base, ok := series.ValueAt(days[0])
	if !ok || base <= 0 {
		s.logger.WithDate("start", days[0]).Warn("Benchmark has no price at start, skipping comparison")
		return nil
	}

	curve := make(contracts.EquityCurve, len(days))
	curve[0] = contracts.EquityPoint{Date: days[0], Value: s.capital}
	for i := 1; i < len(days); i++ {
		price, _ := series.ValueAt(days[i])
		value := s.capital * price / base
		curve[i] = contracts.EquityPoint{Date: days[i], Value: value, Return: value/curve[i-1].Value - 1}
	}
	return curve
}

// growth is the realized simple return from the last price on or before
// prev to the last price on or before t. No new price means no move.
func growth(series *contracts.PriceSeries, prev, t time.Time) float64 {
	p0, ok0 := series.ValueAt(prev)
	p1, ok1 := series.ValueAt(t)
	if !ok0 || !ok1 || p0 <= 0 {
		return 0
	}
	return p1/p0 - 1
}

// tradingDays returns the calendar dates inside the window
func tradingDays(calendar []time.Time, w Window) []time.Time {
	start, end := contracts.DateOnly(w.Start), contracts.DateOnly(w.End)
	lo := sort.Search(len(calendar), func(i int) bool { return !calendar[i].Before(start) })
	hi := sort.Search(len(calendar), func(i int) bool { return calendar[i].After(end) })
	if lo >= hi {
		return nil
	}
	return calendar[lo:hi]
}
