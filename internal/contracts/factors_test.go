package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSectorFactors_MissingCore(t *testing.T) {
	sf := SectorFactors{
		Sector: "IT",
		Values: map[FactorName]FactorValue{
			FactorMomentum:  Present(0.1),
			FactorValuation: Missing("window"),
			FactorRSI:       Present(55),
			// volatility not computed
		},
	}

	assert.Equal(t, []FactorName{FactorValuation, FactorVolatility}, sf.MissingCore())
	_, ok := sf.Get(FactorVolatility).Get()
	assert.False(t, ok)
}

func TestFactorSnapshot_Eligible(t *testing.T) {
	full := map[FactorName]FactorValue{
		FactorMomentum:   Present(0.1),
		FactorValuation:  Present(-2),
		FactorRSI:        Present(55),
		FactorVolatility: Present(0.01),
	}
	snap := &FactorSnapshot{
		Date: day("2024-01-31"),
		Sectors: map[string]SectorFactors{
			"IT":   {Sector: "IT", Values: full},
			"Bank": {Sector: "Bank", Values: full},
			"Auto": {Sector: "Auto", Values: map[FactorName]FactorValue{FactorMomentum: Present(0.2)}},
		},
	}

	assert.Equal(t, []string{"Auto", "Bank", "IT"}, snap.SectorIDs())
	assert.Equal(t, []string{"Bank", "IT"}, snap.Eligible())
	assert.Len(t, snap.Column(FactorRSI), 3)
	assert.False(t, snap.Column(FactorRSI)["Auto"].Present)
}
