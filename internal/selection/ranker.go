package selection

import (
	"sort"

	"github.com/wonny/sectorrotation/internal/contracts"
)

// Rank orders scored sectors by score descending, ties broken by sector id
// ascending, and assigns 1-based ranks
// ⭐ SSOT: 랭킹 순서 결정은 여기서만
func Rank(scores *contracts.CompositeScores) []contracts.RankedSector {
	ranked := make([]contracts.RankedSector, 0, len(scores.Scores))
	for id, score := range scores.Scores {
		ranked = append(ranked, contracts.RankedSector{Sector: id, Score: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Sector < ranked[j].Sector
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
