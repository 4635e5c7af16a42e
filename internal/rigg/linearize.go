package rigg

import (
	"sort"

	"github.com/antigravity-dev/ember/internal/canon"
)

// Linearize computes a deterministic total order over plan nodes
// consistent with edges, using Kahn's algorithm with ties broken by
// ascending node ID. The ready set is kept sorted at all times via
// binary-search insertion so tie-breaking is O(log n) per insertion.
func Linearize[T any](plan PartialOrderPlan[T]) Decision[LinearizationResult] {
	inDegree := make(map[canon.Hash]int, len(plan.Nodes))
	successors := make(map[canon.Hash][]canon.Hash, len(plan.Nodes))
	for _, n := range plan.Nodes {
		inDegree[n.ID] = 0
	}
	for _, e := range plan.Edges {
		inDegree[e.To]++
		successors[e.From] = append(successors[e.From], e.To)
	}

	var ready []canon.Hash
	for _, n := range plan.Nodes {
		if inDegree[n.ID] == 0 {
			ready = insertSorted(ready, n.ID)
		}
	}

	order := make([]canon.Hash, 0, len(plan.Nodes))
	readySetSizes := make([]int, 0, len(plan.Nodes))

	for len(ready) > 0 {
		readySetSizes = append(readySetSizes, len(ready))

		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, succ := range successors[next] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				ready = insertSorted(ready, succ)
			}
		}
	}

	if len(order) != len(plan.Nodes) {
		return Err[LinearizationResult](ReasonCycleDetected, unreachableDetail(plan, order))
	}

	digest, err := canon.HashValue(map[string]any{
		"schemaVersion": plan.SchemaVersion,
		"order":         hashesToAny(order),
	})
	if err != nil {
		return Err[LinearizationResult](ReasonCycleDetected, err.Error())
	}

	return Ok(LinearizationResult{
		Order:               order,
		ReadySetSizes:        readySetSizes,
		LinearizationDigest: digest,
	})
}

// insertSorted inserts id into a sorted []canon.Hash slice, preserving
// order, via binary search.
func insertSorted(sorted []canon.Hash, id canon.Hash) []canon.Hash {
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= id })
	sorted = append(sorted, "")
	copy(sorted[i+1:], sorted[i:])
	sorted[i] = id
	return sorted
}

func hashesToAny(ids []canon.Hash) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// unreachableDetail names up to five node IDs that were never emitted,
// i.e. stuck in a cycle.
func unreachableDetail[T any](plan PartialOrderPlan[T], emitted []canon.Hash) string {
	emittedSet := make(map[canon.Hash]struct{}, len(emitted))
	for _, id := range emitted {
		emittedSet[id] = struct{}{}
	}

	var unreachable []string
	for _, n := range plan.Nodes {
		if _, ok := emittedSet[n.ID]; !ok {
			unreachable = append(unreachable, string(n.ID))
			if len(unreachable) == 5 {
				break
			}
		}
	}
	sort.Strings(unreachable)

	detail := "cycle detected; unreachable nodes: "
	for i, id := range unreachable {
		if i > 0 {
			detail += ", "
		}
		detail += id
	}
	return detail
}
