package audit

import (
	"sort"

	"github.com/wonny/sectorrotation/internal/backtest"
	"github.com/wonny/sectorrotation/internal/contracts"
)

// Exposure is how often and how heavily a sector was held across the schedule
type Exposure struct {
	Sector    string  `json:"sector"`
	Periods   int     `json:"periods"`    // rebalance dates holding the sector
	Share     float64 `json:"share"`      // Periods / total rebalance dates
	AvgWeight float64 `json:"avg_weight"` // mean weight over all rebalance dates
	MaxWeight float64 `json:"max_weight"`
}

// Exposures summarizes sector participation in the rotation schedule,
// ordered by Periods descending then sector id
func Exposures(schedule *contracts.RotationSchedule) []Exposure {
	if schedule == nil || schedule.Len() == 0 {
		return nil
	}

	bySector := make(map[string]*Exposure)
	for _, p := range schedule.Portfolios() {
		for _, h := range p.Holdings {
			e, ok := bySector[h.Sector]
			if !ok {
				e = &Exposure{Sector: h.Sector}
				bySector[h.Sector] = e
			}
			e.Periods++
			e.AvgWeight += h.Weight
			if h.Weight > e.MaxWeight {
				e.MaxWeight = h.Weight
			}
		}
	}

	total := float64(schedule.Len())
	out := make([]Exposure, 0, len(bySector))
	for _, e := range bySector {
		e.Share = float64(e.Periods) / total
		e.AvgWeight /= total
		out = append(out, *e)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Periods != out[j].Periods {
			return out[i].Periods > out[j].Periods
		}
		return out[i].Sector < out[j].Sector
	})
	return out
}

// Turnover is the mean one-way weight change between consecutive rebalances
func Turnover(schedule *contracts.RotationSchedule) float64 {
	if schedule == nil || schedule.Len() < 2 {
		return 0
	}

	total := 0.0
	entries := schedule.Portfolios()
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		sectors := make(map[string]struct{})
		for _, s := range prev.Sectors() {
			sectors[s] = struct{}{}
		}
		for _, s := range cur.Sectors() {
			sectors[s] = struct{}{}
		}

		change := 0.0
		for s := range sectors {
			d := cur.Weight(s) - prev.Weight(s)
			if d < 0 {
				d = -d
			}
			change += d
		}
		total += change / 2
	}
	return total / float64(len(entries)-1)
}

// Report is the exported view of one backtest run
type Report struct {
	*backtest.Result
	Exposures []Exposure `json:"exposures"`
	Turnover  float64    `json:"turnover"`
}

// NewReport decorates a run result with schedule analytics
func NewReport(result *backtest.Result) *Report {
	return &Report{
		Result:    result,
		Exposures: Exposures(result.Schedule),
		Turnover:  Turnover(result.Schedule),
	}
}
