package rigg

import "github.com/antigravity-dev/ember/internal/canon"

// FindCommutingPairs returns unordered node-ID pairs with no directed
// path between them in either direction and disjoint conflict-key sets.
// Reachability (descendant sets) is computed once per node to avoid
// repeated O(V+E) traversals for each candidate pair.
func FindCommutingPairs[T any](plan PartialOrderPlan[T]) []CommutingPair {
	successors := make(map[canon.Hash][]canon.Hash, len(plan.Nodes))
	for _, e := range plan.Edges {
		successors[e.From] = append(successors[e.From], e.To)
	}

	descendants := make(map[canon.Hash]map[canon.Hash]struct{}, len(plan.Nodes))
	for _, n := range plan.Nodes {
		descendants[n.ID] = descendantsOf(n.ID, successors)
	}

	var pairs []CommutingPair
	for i := 0; i < len(plan.Nodes); i++ {
		for j := i + 1; j < len(plan.Nodes); j++ {
			a, b := plan.Nodes[i], plan.Nodes[j]
			if _, aReachesB := descendants[a.ID][b.ID]; aReachesB {
				continue
			}
			if _, bReachesA := descendants[b.ID][a.ID]; bReachesA {
				continue
			}
			if conflictKeysOverlap(a.ConflictKeys, b.ConflictKeys) {
				continue
			}
			pairs = append(pairs, CommutingPair{NodeA: a.ID, NodeB: b.ID})
		}
	}
	return pairs
}

func descendantsOf(start canon.Hash, successors map[canon.Hash][]canon.Hash) map[canon.Hash]struct{} {
	seen := map[canon.Hash]struct{}{}
	var stack []canon.Hash
	stack = append(stack, successors[start]...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		stack = append(stack, successors[n]...)
	}
	return seen
}

func conflictKeysOverlap(a, b map[string]struct{}) bool {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	for k := range small {
		if _, ok := large[k]; ok {
			return true
		}
	}
	return false
}
