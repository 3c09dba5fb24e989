package portfolio

import (
	"fmt"
	"time"

	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/strategyconfig"
	"github.com/wonny/sectorrotation/pkg/logger"
)

// WeightFunc assigns weights to the selected sectors (already ranked).
// Returned weights are aligned with selected and must sum to 1.0.
type WeightFunc func(selected []contracts.RankedSector) []float64

// Constructor picks the top-N ranked sectors and weights them
// ⭐ SSOT: 포트폴리오 구성은 여기서만
type Constructor struct {
	topN     int
	universe int
	weighter WeightFunc
	logger   *logger.Logger
}

// NewConstructor creates a constructor with an explicit weighting policy
func NewConstructor(topN, universe int, weighter WeightFunc, log *logger.Logger) *Constructor {
	if weighter == nil {
		weighter = EqualWeight
	}
	return &Constructor{
		topN:     topN,
		universe: universe,
		weighter: weighter,
		logger:   log,
	}
}

// NewConstructorFromConfig creates a constructor from the strategy
func NewConstructorFromConfig(cfg *strategyconfig.Config, log *logger.Logger) (*Constructor, error) {
	weighter, err := WeightFuncFor(cfg.Portfolio.Weighting)
	if err != nil {
		return nil, err
	}
	return NewConstructor(cfg.Selection.TopN, len(cfg.Universe), weighter, log), nil
}

// WeightFuncFor resolves a configured weighting policy
func WeightFuncFor(w strategyconfig.Weighting) (WeightFunc, error) {
	switch w {
	case strategyconfig.WeightEqual, "":
		return EqualWeight, nil
	case strategyconfig.WeightScoreProportional:
		return ScoreProportional, nil
	default:
		return nil, &contracts.ConfigurationError{Field: "portfolio.weighting", Message: fmt.Sprintf("unknown policy %q", w)}
	}
}

// Construct selects min(topN, len(ranked)) sectors and weights them.
// Zero eligible sectors returns an empty portfolio and a
// *contracts.DegenerateSelectionError; callers decide the fallback.
func (c *Constructor) Construct(date time.Time, ranked []contracts.RankedSector) (contracts.Portfolio, error) {
	p := contracts.Portfolio{Date: date, Eligible: len(ranked)}

	if len(ranked) == 0 {
		return p, &contracts.DegenerateSelectionError{Date: date, Universe: c.universe}
	}

	selected := c.selectTopN(ranked)
	weights := c.weighter(selected)
	if len(weights) != len(selected) {
		return p, fmt.Errorf("weighting returned %d weights for %d sectors", len(weights), len(selected))
	}

	for i, s := range selected {
		if weights[i] <= 0 {
			continue
		}
		p.Holdings = append(p.Holdings, contracts.Holding{
			Sector: s.Sector,
			Weight: weights[i],
			Score:  s.Score,
			Rank:   s.Rank,
		})
	}

	if err := p.Validate(); err != nil {
		return p, err
	}

	c.logger.WithFields(map[string]interface{}{
		"date":     date.Format(contracts.DateLayout),
		"eligible": len(ranked),
		"selected": p.Count(),
		"sectors":  p.Sectors(),
	}).Debug("Portfolio constructed")

	return p, nil
}

// selectTopN selects top N sectors; fewer when fewer are eligible
func (c *Constructor) selectTopN(ranked []contracts.RankedSector) []contracts.RankedSector {
	if len(ranked) <= c.topN {
		return ranked
	}
	return ranked[:c.topN]
}

// EqualWeight gives each selected sector 1/N
func EqualWeight(selected []contracts.RankedSector) []float64 {
	weights := make([]float64, len(selected))
	if len(selected) == 0 {
		return weights
	}
	w := 1.0 / float64(len(selected))
	for i := range weights {
		weights[i] = w
	}
	return weights
}

// ScoreProportional weights sectors by the positive part of their score.
// Non-positive scores get zero weight; with no positive score it falls
// back to equal weight.
func ScoreProportional(selected []contracts.RankedSector) []float64 {
	var total float64
	for _, s := range selected {
		if s.Score > 0 {
			total += s.Score
		}
	}

	if total == 0 {
		return EqualWeight(selected)
	}

	weights := make([]float64, len(selected))
	for i, s := range selected {
		if s.Score > 0 {
			weights[i] = s.Score / total
		}
	}
	return weights
}
