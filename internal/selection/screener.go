package selection

import (
	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/pkg/logger"
)

// Screener implements the eligibility hard cut: a sector missing any core
// factor cannot be scored on that date.
// ⭐ SSOT: 랭킹 제외 판단은 여기서만
type Screener struct {
	logger *logger.Logger
}

// NewScreener creates a new screener
func NewScreener(log *logger.Logger) *Screener {
	return &Screener{logger: log}
}

// Screen splits the snapshot into eligible sector ids (sorted) and one
// MissingFactorError per excluded sector
func (s *Screener) Screen(snap *contracts.FactorSnapshot) ([]string, []*contracts.MissingFactorError) {
	var eligible []string
	var excluded []*contracts.MissingFactorError

	for _, id := range snap.SectorIDs() {
		missing := snap.Sectors[id].MissingCore()
		if len(missing) == 0 {
			eligible = append(eligible, id)
			continue
		}

		excluded = append(excluded, &contracts.MissingFactorError{
			Sector:  id,
			Date:    snap.Date,
			Factors: missing,
			Reason:  snap.Sectors[id].Get(missing[0]).Reason,
		})
		s.logger.WithFields(map[string]interface{}{
			"date":    snap.Date.Format(contracts.DateLayout),
			"sector":  id,
			"missing": missing,
		}).Debug("Sector excluded from ranking")
	}

	return eligible, excluded
}
