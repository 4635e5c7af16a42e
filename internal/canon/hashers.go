package canon

import "sort"

// InventoryHashCap bounds per-item counts folded into HashInventoryState.
// This cap is for audit identity only — it must never be used for
// correctness-critical memoization (see spec §9 Open Questions): two
// inventories that differ only above the cap hash identically.
const InventoryHashCap = 64

// Definition is the minimal shape HashDefinitions needs to sort and
// canonicalize a domain-operator definition list. Callers pass their
// richer definition type through the Raw field; Action/ModuleID are
// extracted once for stable sorting.
type Definition struct {
	Action   string
	ModuleID string
	Raw      any
}

func definitionSortKey(d Definition) string {
	if d.Action != "" {
		return d.Action
	}
	if d.ModuleID != "" {
		return d.ModuleID
	}
	return ""
}

// HashDefinitions sorts a COPY of defs by (action, fallback moduleId,
// fallback "") and canonicalizes the result. The input slice is never
// mutated — callers routinely hold onto the original order for display.
func HashDefinitions(defs []Definition) (Hash, error) {
	sorted := make([]Definition, len(defs))
	copy(sorted, defs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return definitionSortKey(sorted[i]) < definitionSortKey(sorted[j])
	})

	raws := make([]any, len(sorted))
	for i, d := range sorted {
		raws[i] = d.Raw
	}
	return HashValue(raws)
}

// HashInventoryState drops zero-valued entries, clamps each remaining
// count to InventoryHashCap, and canonicalizes the result. This hash is
// for audit identity only.
func HashInventoryState(inv map[string]int) (Hash, error) {
	filtered := make(map[string]any, len(inv))
	for item, count := range inv {
		if count == 0 {
			continue
		}
		if count > InventoryHashCap {
			count = InventoryHashCap
		}
		filtered[item] = count
	}
	return HashValue(filtered)
}

// HashGoal canonicalizes a goal value verbatim: no filtering, no sorting
// beyond the object-key sort Canonicalize always applies.
func HashGoal(goal any) (Hash, error) {
	return HashValue(goal)
}

// HashNearbyBlocks canonicalizes an observed-blocks value verbatim.
func HashNearbyBlocks(blocks any) (Hash, error) {
	return HashValue(blocks)
}

// Step is the minimal shape HashSteps needs: only the action string
// participates in the digest, per spec.
type Step struct {
	Action string
}

// HashSteps canonicalizes the ordered array of step actions. Order is
// significant and is never sorted.
func HashSteps(steps []Step) (Hash, error) {
	actions := make([]any, len(steps))
	for i, s := range steps {
		actions[i] = s.Action
	}
	return HashValue(actions)
}
