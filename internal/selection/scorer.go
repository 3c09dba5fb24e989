package selection

import (
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/strategyconfig"
	"github.com/wonny/sectorrotation/pkg/logger"
)

// Scorer combines a FactorSnapshot into composite scores
// ⭐ SSOT: 종합 점수 계산은 여기서만
type Scorer struct {
	weights      strategyconfig.FactorWeights
	rsiThreshold float64
	macroPenalty float64
	macroCap     float64
	screener     *Screener
	logger       *logger.Logger
}

// NewScorer creates a scorer from the strategy
func NewScorer(cfg *strategyconfig.Config, log *logger.Logger) *Scorer {
	penalty, penaltyCap := 0.0, 0.0
	if cfg.Macro.Enabled {
		penalty, penaltyCap = cfg.Macro.Penalty, cfg.Macro.PenaltyCap
	}
	return &Scorer{
		weights:      cfg.Factors.Weights,
		rsiThreshold: cfg.Factors.RSIOverboughtThreshold,
		macroPenalty: penalty,
		macroCap:     penaltyCap,
		screener:     NewScreener(log),
		logger:       log,
	}
}

// Score computes composite scores for every eligible sector:
//
//	Score = wM*Z(mom) + wV*Z(-val) + wR*RSIScore + wVol*Z(-vol) - macroPenalty
//
// Z-scores are cross-sectional over sectors with the factor present,
// including sectors later excluded for missing a different core factor.
// Sectors missing a core factor are excluded and reported as warnings.
func (s *Scorer) Score(snap *contracts.FactorSnapshot) (*contracts.CompositeScores, contracts.Warnings) {
	var warnings contracts.Warnings

	eligible, excluded := s.screener.Screen(snap)

	result := &contracts.CompositeScores{
		Date:     snap.Date,
		Scores:   make(map[string]float64, len(eligible)),
		Details:  make(map[string]contracts.ScoreBreakdown, len(eligible)),
		Excluded: make(map[string][]contracts.FactorName, len(excluded)),
	}
	for _, e := range excluded {
		result.Excluded[e.Sector] = e.Factors
		warnings.FromError(e)
	}

	momZ := ZScores(snap.Column(contracts.FactorMomentum))
	valZ := ZScores(invert(snap.Column(contracts.FactorValuation)))
	volZ := ZScores(invert(snap.Column(contracts.FactorVolatility)))
	rsiCol := snap.Column(contracts.FactorRSI)
	macroCol := snap.Column(contracts.FactorMacro)

	for _, id := range eligible {
		b := contracts.ScoreBreakdown{
			MomentumZ:    momZ[id],
			ValuationZ:   valZ[id],
			VolatilityZ:  volZ[id],
			RSIScore:     RSIScore(rsiCol[id].Value, s.rsiThreshold),
			MacroPenalty: s.penalty(macroCol[id]),
		}
		b.Total = s.weights.Momentum*b.MomentumZ +
			s.weights.Valuation*b.ValuationZ +
			s.weights.RSI*b.RSIScore +
			s.weights.Volatility*b.VolatilityZ -
			b.MacroPenalty

		result.Scores[id] = b.Total
		result.Details[id] = b
	}

	return result, warnings
}

// penalty converts the macro headwind count into a bounded penalty.
// A missing macro value is neutral.
func (s *Scorer) penalty(macro contracts.FactorValue) float64 {
	if !macro.Present || macro.Value >= 0 {
		return 0
	}
	p := -macro.Value * s.macroPenalty
	if p > s.macroCap {
		p = s.macroCap
	}
	return p
}

// RSIScore maps RSI into [-1, 1]: flat 1 up to the overbought threshold,
// then falling linearly to -1 at RSI 100
func RSIScore(rsi, threshold float64) float64 {
	if rsi <= threshold {
		return 1
	}
	score := 1 - 2*(rsi-threshold)/(100-threshold)
	if score < -1 {
		return -1
	}
	return score
}

// ZScores standardizes the present values cross-sectionally with the
// population standard deviation. Fewer than two present values, or zero
// dispersion, yields 0 for every present sector. Missing sectors are absent
// from the result. The population is whatever values holds; callers pass
// the full snapshot column, not only the eligible sectors.
func ZScores(values map[string]contracts.FactorValue) map[string]float64 {
	ids := make([]string, 0, len(values))
	for id, v := range values {
		if v.Present {
			ids = append(ids, id)
		}
	}
	// 고정 순서로 합산해야 재실행 시 비트 단위로 동일
	sort.Strings(ids)

	out := make(map[string]float64, len(ids))
	if len(ids) < 2 {
		for _, id := range ids {
			out[id] = 0
		}
		return out
	}

	data := make([]float64, len(ids))
	for i, id := range ids {
		data[i] = values[id].Value
	}

	mean, _ := stats.Mean(data)
	sd, _ := stats.StandardDeviationPopulation(data)

	for i, id := range ids {
		if sd == 0 {
			out[id] = 0
			continue
		}
		out[id] = (data[i] - mean) / sd
	}
	return out
}

// invert negates present values so that lower raw means higher Z
func invert(values map[string]contracts.FactorValue) map[string]contracts.FactorValue {
	out := make(map[string]contracts.FactorValue, len(values))
	for id, v := range values {
		if v.Present {
			out[id] = contracts.Present(-v.Value)
		} else {
			out[id] = v
		}
	}
	return out
}
