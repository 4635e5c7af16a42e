package rigd

import "sort"

// RankCandidates orders candidates by learned prior success rate
// (descending), breaking ties by base cost (ascending), then by
// strategy name (lexicographic ascending). Unseen (item, strategy,
// contextToken) keys rank with a zero prior, which naturally pushes
// them below anything with observed success — exploration still
// happens because cost and strategy-name tie-breaks are total orders.
func RankCandidates(candidates []enumeratedCandidate, priors *PriorStore) []RankedCandidate {
	ranked := make([]RankedCandidate, len(candidates))
	for i, c := range candidates {
		key := PriorKey{Item: c.Item, Strategy: c.Strategy, ContextToken: c.ContextToken}
		ranked[i] = RankedCandidate{
			Candidate:    c.Candidate,
			ContextToken: c.ContextToken,
			PriorEntry:   priors.Get(key),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.PriorEntry.SuccessRate != b.PriorEntry.SuccessRate {
			return a.PriorEntry.SuccessRate > b.PriorEntry.SuccessRate
		}
		if a.BaseCost != b.BaseCost {
			return a.BaseCost < b.BaseCost
		}
		return string(a.Strategy) < string(b.Strategy)
	})

	return ranked
}
