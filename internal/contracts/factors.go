package contracts

import (
	"sort"
	"time"
)

// FactorName identifies one factor of the composite score
type FactorName string

const (
	FactorValuation  FactorName = "valuation"
	FactorMomentum   FactorName = "momentum"
	FactorVolatility FactorName = "volatility"
	FactorRSI        FactorName = "rsi"
	FactorMacro      FactorName = "macro"
)

// CoreFactors must all be present for a sector to be ranked
var CoreFactors = []FactorName{FactorMomentum, FactorValuation, FactorRSI, FactorVolatility}

// FactorValue is either Present(value) or Missing(reason).
// Missing values never take part in arithmetic.
type FactorValue struct {
	Value   float64 `json:"value"`
	Present bool    `json:"present"`
	Reason  string  `json:"reason,omitempty"`
}

// Present wraps an available factor value
func Present(v float64) FactorValue {
	return FactorValue{Value: v, Present: true}
}

// Missing marks a factor as unavailable
func Missing(reason string) FactorValue {
	return FactorValue{Reason: reason}
}

// Get returns the value and whether it is present
func (f FactorValue) Get() (float64, bool) {
	return f.Value, f.Present
}

// SectorFactors holds the named factor values of one sector at one date
type SectorFactors struct {
	Sector string                     `json:"sector"`
	Values map[FactorName]FactorValue `json:"values"`
}

// Get returns a factor value; absent names read as Missing
func (s SectorFactors) Get(name FactorName) FactorValue {
	v, ok := s.Values[name]
	if !ok {
		return Missing("not computed")
	}
	return v
}

// MissingCore lists the core factors this sector lacks
func (s SectorFactors) MissingCore() []FactorName {
	var missing []FactorName
	for _, name := range CoreFactors {
		if !s.Get(name).Present {
			missing = append(missing, name)
		}
	}
	return missing
}

// FactorSnapshot maps every universe sector to its factor values as of Date
type FactorSnapshot struct {
	Date    time.Time                `json:"date"`
	Sectors map[string]SectorFactors `json:"sectors"`
}

// SectorIDs returns the sector ids of the snapshot in lexical order
func (s *FactorSnapshot) SectorIDs() []string {
	ids := make([]string, 0, len(s.Sectors))
	for id := range s.Sectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Column collects one factor across all sectors
func (s *FactorSnapshot) Column(name FactorName) map[string]FactorValue {
	col := make(map[string]FactorValue, len(s.Sectors))
	for id, sf := range s.Sectors {
		col[id] = sf.Get(name)
	}
	return col
}

// Eligible returns the sectors with every core factor present, sorted
func (s *FactorSnapshot) Eligible() []string {
	var ids []string
	for _, id := range s.SectorIDs() {
		if len(s.Sectors[id].MissingCore()) == 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
