package contracts

import (
	"fmt"
	"math"
	"time"
)

// WeightTolerance is the allowed deviation of a portfolio's weight sum from 1.0
const WeightTolerance = 1e-9

// Holding is one selected sector and its target weight
type Holding struct {
	Sector string  `json:"sector"`
	Weight float64 `json:"weight"` // 0.0 ~ 1.0
	Score  float64 `json:"score"`
	Rank   int     `json:"rank"`
}

// Portfolio is the target allocation for one evaluation date
// ⭐ SSOT: Selector → Rotation Engine → Simulator allocation contract
type Portfolio struct {
	Date     time.Time `json:"date"`
	Holdings []Holding `json:"holdings"`
	Eligible int       `json:"eligible"` // sectors with a composite score that date
	Carried  bool      `json:"carried"`  // weights carried forward from the prior date
}

// TotalWeight returns the sum of all holding weights
func (p Portfolio) TotalWeight() float64 {
	total := 0.0
	for _, h := range p.Holdings {
		total += h.Weight
	}
	return total
}

// Count returns the number of holdings
func (p Portfolio) Count() int {
	return len(p.Holdings)
}

// IsEmpty reports whether the portfolio holds nothing (all cash)
func (p Portfolio) IsEmpty() bool {
	return len(p.Holdings) == 0
}

// Weight returns the weight of a sector, 0 if not held
func (p Portfolio) Weight(sector string) float64 {
	for _, h := range p.Holdings {
		if h.Sector == sector {
			return h.Weight
		}
	}
	return 0
}

// Sectors returns the held sector ids in holding order
func (p Portfolio) Sectors() []string {
	out := make([]string, len(p.Holdings))
	for i, h := range p.Holdings {
		out[i] = h.Sector
	}
	return out
}

// Validate checks the weight invariants: non-negative, summing to 1.0
// (or exactly 0.0 for an empty portfolio)
func (p *Portfolio) Validate() error {
	for _, h := range p.Holdings {
		if h.Weight < 0 || math.IsNaN(h.Weight) {
			return fmt.Errorf("portfolio %s: invalid weight %v for %s", p.Date.Format(DateLayout), h.Weight, h.Sector)
		}
	}
	if p.IsEmpty() {
		return nil
	}
	if total := p.TotalWeight(); math.Abs(total-1.0) > WeightTolerance {
		return fmt.Errorf("portfolio %s: weights sum to %.12f, want 1.0", p.Date.Format(DateLayout), total)
	}
	return nil
}

// CarryForward returns a copy of p re-dated to date and flagged as carried
func (p *Portfolio) CarryForward(date time.Time) Portfolio {
	holdings := make([]Holding, len(p.Holdings))
	copy(holdings, p.Holdings)
	return Portfolio{
		Date:     date,
		Holdings: holdings,
		Eligible: 0,
		Carried:  true,
	}
}
