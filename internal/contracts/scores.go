package contracts

import "time"

// ScoreBreakdown shows how a composite score was assembled
type ScoreBreakdown struct {
	MomentumZ    float64 `json:"momentum_z"`
	ValuationZ   float64 `json:"valuation_z"` // already sign-inverted: undervalued is positive
	RSIScore     float64 `json:"rsi_score"`
	VolatilityZ  float64 `json:"volatility_z"` // already sign-inverted: calm is positive
	MacroPenalty float64 `json:"macro_penalty"`
	Total        float64 `json:"total"`
}

// CompositeScores maps each eligible sector to its score on one date.
// Excluded sectors have no score; they are listed with the factors they lack.
type CompositeScores struct {
	Date     time.Time                 `json:"date"`
	Scores   map[string]float64        `json:"scores"`
	Details  map[string]ScoreBreakdown `json:"details"`
	Excluded map[string][]FactorName   `json:"excluded,omitempty"`
}

// Count returns the number of scored sectors
func (c *CompositeScores) Count() int {
	return len(c.Scores)
}

// RankedSector is a scored sector with its 1-based rank
type RankedSector struct {
	Sector string  `json:"sector"`
	Rank   int     `json:"rank"`
	Score  float64 `json:"score"`
}

// IsTopRanked checks if the sector is within the top n ranks
func (r *RankedSector) IsTopRanked(n int) bool {
	return r.Rank <= n && r.Rank > 0
}
