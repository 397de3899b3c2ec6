package match

import (
	"slices"
	"strings"

	"github.com/pathlight/mentormatch/internal/domain"
)

// Rank blends similarity and predicted success into a final score and
// returns candidates in descending score order. The input slice is not
// modified.
//
//	final = (1 - distance) * distance_weight + success_probability * success_weight
//
// With default 1.0/1.0 weights scores live in [0,2]. Ordering is total:
// equal scores fall back to ascending distance, then ascending mentor ID, so
// identical inputs always rank identically.
func Rank(candidates []domain.MatchCandidate, weights domain.WeightConfig) []domain.MatchCandidate {
	ranked := slices.Clone(candidates)
	for i := range ranked {
		ranked[i].FinalScore = (1.0-ranked[i].Distance)*weights.DistanceWeight +
			ranked[i].SuccessProbability*weights.SuccessWeight
	}

	slices.SortStableFunc(ranked, func(a, b domain.MatchCandidate) int {
		switch {
		case a.FinalScore > b.FinalScore:
			return -1
		case a.FinalScore < b.FinalScore:
			return 1
		}
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return strings.Compare(a.MentorID, b.MentorID)
	})

	return ranked
}
