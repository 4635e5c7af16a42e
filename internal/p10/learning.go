package p10

import "sort"

// UpdateRiskModel folds one observed outcome into prior per-outcome mass
// estimates, re-normalizing via largest-remainder apportionment so the
// result sums to MassTotal exactly. The outcome ID set is invariant —
// UpdateRiskModel never adds or drops an outcome, it only reweights the
// ones already present in prior.
func UpdateRiskModel(prior map[string]int, observedOutcomeID string, sampleCount int) map[string]int {
	if len(prior) == 0 {
		return map[string]int{}
	}
	if sampleCount < 1 {
		sampleCount = 1
	}

	ids := make([]string, 0, len(prior))
	for id := range prior {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	weight := 1.0 / float64(sampleCount)
	raw := make(map[string]float64, len(ids))
	for _, id := range ids {
		share := float64(prior[id]) * (1 - weight)
		if id == observedOutcomeID {
			share += weight * MassTotal
		}
		raw[id] = share
	}

	return apportionLargestRemainder(ids, raw, MassTotal)
}

// apportionLargestRemainder distributes total across ids in proportion
// to raw, rounding each share down and handing the leftover units to the
// entries with the largest fractional remainder, ties broken by id
// ascending. The result sums to total exactly.
func apportionLargestRemainder(ids []string, raw map[string]float64, total int) map[string]int {
	floors := make(map[string]int, len(ids))
	remainders := make([]struct {
		id  string
		rem float64
	}, len(ids))

	assigned := 0
	for i, id := range ids {
		f := int(raw[id])
		floors[id] = f
		assigned += f
		remainders[i] = struct {
			id  string
			rem float64
		}{id, raw[id] - float64(f)}
	}

	sort.SliceStable(remainders, func(i, j int) bool {
		if remainders[i].rem != remainders[j].rem {
			return remainders[i].rem > remainders[j].rem
		}
		return remainders[i].id < remainders[j].id
	})

	leftover := total - assigned
	for i := 0; i < leftover && i < len(remainders); i++ {
		floors[remainders[i].id]++
	}

	return floors
}
