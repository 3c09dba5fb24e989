package selection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/strategyconfig"
	"github.com/wonny/sectorrotation/pkg/logger"
)

var evalDate = time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

func testScorer(t *testing.T) *Scorer {
	t.Helper()
	cfg, err := strategyconfig.Default()
	require.NoError(t, err)
	return NewScorer(cfg, logger.Nop())
}

func factors(mom, val, rsi, vol, macro float64) map[contracts.FactorName]contracts.FactorValue {
	return map[contracts.FactorName]contracts.FactorValue{
		contracts.FactorMomentum:   contracts.Present(mom),
		contracts.FactorValuation:  contracts.Present(val),
		contracts.FactorRSI:        contracts.Present(rsi),
		contracts.FactorVolatility: contracts.Present(vol),
		contracts.FactorMacro:      contracts.Present(macro),
	}
}

func snapshot(sectors map[string]map[contracts.FactorName]contracts.FactorValue) *contracts.FactorSnapshot {
	snap := &contracts.FactorSnapshot{Date: evalDate, Sectors: map[string]contracts.SectorFactors{}}
	for id, v := range sectors {
		snap.Sectors[id] = contracts.SectorFactors{Sector: id, Values: v}
	}
	return snap
}

func TestZScores_MeanZeroUnitVariance(t *testing.T) {
	values := map[string]contracts.FactorValue{
		"Bank":   contracts.Present(0.12),
		"IT":     contracts.Present(-0.05),
		"FMCG":   contracts.Present(0.31),
		"Auto":   contracts.Present(0.02),
		"Pharma": contracts.Present(0.18),
		"Metal":  contracts.Missing("short history"),
	}

	z := ZScores(values)
	require.Len(t, z, 5)
	_, hasMetal := z["Metal"]
	assert.False(t, hasMetal, "missing values get no z-score")

	var sum, sumSq float64
	for _, v := range z {
		sum += v
		sumSq += v * v
	}
	n := float64(len(z))
	assert.InDelta(t, 0, sum/n, 1e-12)
	assert.InDelta(t, 1, sumSq/n, 1e-12)
}

func TestZScores_Degenerate(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]contracts.FactorValue
	}{
		{"single peer", map[string]contracts.FactorValue{"IT": contracts.Present(3), "Bank": contracts.Missing("x")}},
		{"zero dispersion", map[string]contracts.FactorValue{"IT": contracts.Present(3), "Bank": contracts.Present(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for id, z := range ZScores(tt.values) {
				assert.Equal(t, 0.0, z, id)
			}
		})
	}
	assert.Empty(t, ZScores(nil))
}

func TestRSIScore(t *testing.T) {
	tests := []struct {
		rsi  float64
		want float64
	}{
		{30, 1},
		{70, 1},
		{85, 0},
		{100, -1},
	}
	for _, tt := range tests {
		if got := RSIScore(tt.rsi, 70); got != tt.want {
			t.Errorf("RSIScore(%v) = %v, want %v", tt.rsi, got, tt.want)
		}
	}
	assert.Greater(t, RSIScore(71, 70), RSIScore(80, 70))
}

func TestScore_InvertsValuationAndVolatility(t *testing.T) {
	scorer := testScorer(t)

	scores, warnings := scorer.Score(snapshot(map[string]map[contracts.FactorName]contracts.FactorValue{
		"Cheap":     factors(0.1, -20, 50, 0.01, 0),
		"Expensive": factors(0.1, 20, 50, 0.01, 0),
		"Calm":      factors(0.1, 0, 50, 0.005, 0),
		"Wild":      factors(0.1, 0, 50, 0.015, 0),
	}))
	assert.Empty(t, warnings)

	d := scores.Details
	assert.Greater(t, d["Cheap"].ValuationZ, d["Expensive"].ValuationZ)
	assert.Greater(t, d["Calm"].VolatilityZ, d["Wild"].VolatilityZ)
	assert.Greater(t, scores.Scores["Cheap"], scores.Scores["Expensive"])
	assert.Greater(t, scores.Scores["Calm"], scores.Scores["Wild"])
}

func TestScore_OverboughtRanksLower(t *testing.T) {
	scorer := testScorer(t)

	scores, _ := scorer.Score(snapshot(map[string]map[contracts.FactorName]contracts.FactorValue{
		"Auto":   factors(0.10, -5, 85, 0.010, 0), // overbought
		"Bank":   factors(0.10, -5, 55, 0.010, 0),
		"FMCG":   factors(0.02, 3, 40, 0.008, 0),
		"Pharma": factors(0.05, 1, 60, 0.012, 0),
	}))

	ranked := Rank(scores)
	pos := map[string]int{}
	for _, r := range ranked {
		pos[r.Sector] = r.Rank
	}
	assert.Less(t, pos["Bank"], pos["Auto"], "RSI 85 must rank strictly below the tied peer")
	assert.Less(t, scores.Scores["Auto"], scores.Scores["Bank"])
}

func TestScore_ExcludesMissingCore(t *testing.T) {
	scorer := testScorer(t)

	partial := factors(0.1, 0, 50, 0.01, 0)
	partial[contracts.FactorValuation] = contracts.Missing("needs 5y")

	scores, warnings := scorer.Score(snapshot(map[string]map[contracts.FactorName]contracts.FactorValue{
		"IT":    factors(0.2, 0, 50, 0.01, 0),
		"Bank":  factors(0.1, 1, 50, 0.02, 0),
		"Metal": partial,
	}))

	assert.Equal(t, 2, scores.Count())
	_, scored := scores.Scores["Metal"]
	assert.False(t, scored, "never fabricate a score for an ineligible sector")
	assert.Equal(t, []contracts.FactorName{contracts.FactorValuation}, scores.Excluded["Metal"])

	require.Equal(t, 1, warnings.Count(contracts.WarnMissingFactor))
	assert.Equal(t, "Metal", warnings[0].Sector)
}

func TestScore_MacroPenaltyBounded(t *testing.T) {
	scorer := testScorer(t)

	scores, _ := scorer.Score(snapshot(map[string]map[contracts.FactorName]contracts.FactorValue{
		"IT":     factors(0.1, 0, 50, 0.01, -1),
		"Pharma": factors(0.1, 0, 50, 0.01, -2),
		"Bank":   factors(0.1, 0, 50, 0.01, 0),
		"Auto":   {contracts.FactorMomentum: contracts.Present(0.1), contracts.FactorValuation: contracts.Present(0), contracts.FactorRSI: contracts.Present(50), contracts.FactorVolatility: contracts.Present(0.01), contracts.FactorMacro: contracts.Missing("no data")},
	}))

	assert.Equal(t, 0.5, scores.Details["IT"].MacroPenalty)
	assert.Equal(t, 0.5, scores.Details["Pharma"].MacroPenalty, "penalty is capped")
	assert.Equal(t, 0.0, scores.Details["Bank"].MacroPenalty)
	assert.Equal(t, 0.0, scores.Details["Auto"].MacroPenalty, "missing macro is neutral")
	assert.InDelta(t, scores.Scores["Bank"]-0.5, scores.Scores["IT"], 1e-12)
}

func TestScore_Idempotent(t *testing.T) {
	scorer := testScorer(t)
	snap := snapshot(map[string]map[contracts.FactorName]contracts.FactorValue{
		"Bank":   factors(0.12, -3.1, 64, 0.011, 0),
		"IT":     factors(-0.04, 7.2, 71, 0.014, -1),
		"FMCG":   factors(0.08, 1.4, 48, 0.007, 0),
		"Auto":   factors(0.21, -0.6, 77, 0.016, 0),
		"Pharma": factors(0.03, 2.2, 52, 0.009, -1),
		"Metal":  factors(0.15, -4.4, 58, 0.021, 0),
	})

	first, _ := scorer.Score(snap)
	for i := 0; i < 20; i++ {
		again, _ := scorer.Score(snap)
		assert.Equal(t, first.Scores, again.Scores)
	}
}
