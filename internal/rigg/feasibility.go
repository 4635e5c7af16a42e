package rigg

import (
	"fmt"

	"github.com/antigravity-dev/ember/internal/canon"
)

// CheckFeasibility evaluates every constraint against plan, returning
// ok(feasibilityResult) when all pass, or blocked(reason, detail) naming
// the first violation when any fails. FeasibilityResult.RejectionsByType
// always reflects every violation found (not just the first), so
// ComputeRigGSignals can report per-type counts regardless of outcome.
func CheckFeasibility[T any](plan PartialOrderPlan[T], constraints []PlanConstraint) Decision[FeasibilityResult] {
	index := buildModuleIndex(plan)

	successors := make(map[string][]string)
	for _, e := range plan.Edges {
		fromModule, okFrom := index.moduleByNode[e.From]
		toModule, okTo := index.moduleByNode[e.To]
		if okFrom && okTo {
			successors[fromModule] = append(successors[fromModule], toModule)
		}
	}

	rejections := map[string]int{}
	var firstReason, firstDetail string

	recordViolation := func(reason, detail string) {
		rejections[reason]++
		if firstReason == "" {
			firstReason = reason
			firstDetail = detail
		}
	}

	for _, c := range constraints {
		switch v := c.(type) {
		case DependencyConstraint:
			checkPrecedence(index, successors, v.DependentModuleID, v.RequiredModuleID, ReasonInfeasibleDependency, "dependency", recordViolation)
		case SupportConstraint:
			checkPrecedence(index, successors, v.DependentModuleID, v.SupportModuleID, ReasonInfeasibleDependency, "support", recordViolation)
		case ReachabilityConstraint:
			checkReachability(v, recordViolation)
		}
	}

	result := FeasibilityResult{
		Passed:               len(rejections) == 0,
		RejectionsByType:     rejections,
		FirstViolationReason: firstReason,
		FirstViolationDetail: firstDetail,
	}

	if !result.Passed {
		return BlockedValue(result, firstReason, firstDetail)
	}
	return Ok(result)
}

type moduleIndexT struct {
	nodeByModule map[string]string       // moduleID -> node ID (as string)
	moduleByNode map[canon.Hash]string   // node ID -> moduleID
}

func buildModuleIndex[T any](plan PartialOrderPlan[T]) *moduleIndexT {
	idx := &moduleIndexT{
		nodeByModule: map[string]string{},
		moduleByNode: map[canon.Hash]string{},
	}
	for _, n := range plan.Nodes {
		idx.nodeByModule[n.ModuleID] = string(n.ID)
		idx.moduleByNode[n.ID] = n.ModuleID
	}
	return idx
}

func checkPrecedence(idx *moduleIndexT, successors map[string][]string, dependentModuleID, requiredModuleID, reason, kind string, record func(reason, detail string)) {
	if _, ok := idx.nodeByModule[requiredModuleID]; !ok {
		record(reason, fmt.Sprintf("%s: required module %q is not present in the plan", kind, requiredModuleID))
		return
	}
	if _, ok := idx.nodeByModule[dependentModuleID]; !ok {
		record(reason, fmt.Sprintf("%s: dependent module %q is not present in the plan", kind, dependentModuleID))
		return
	}
	if !reaches(successors, requiredModuleID, dependentModuleID) {
		record(reason, fmt.Sprintf("%s: %q does not transitively precede %q", kind, requiredModuleID, dependentModuleID))
	}
}

func reaches(successors map[string][]string, from, to string) bool {
	seen := map[string]struct{}{}
	var stack []string
	stack = append(stack, successors[from]...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		stack = append(stack, successors[n]...)
	}
	return false
}

func checkReachability(v ReachabilityConstraint, record func(reason, detail string)) {
	if v.CurrentDistance == nil {
		return // unknown distance is treated as unknown/accept, per spec Open Question
	}
	if *v.CurrentDistance > v.MaxDistance {
		record(ReasonInfeasibleReachability, fmt.Sprintf("module %q: currentDistance %d exceeds maxDistance %d", v.ModuleID, *v.CurrentDistance, v.MaxDistance))
	}
}
