package p10

import (
	"fmt"
	"sort"
)

// BuildEffectiveBudget computes the initial ledger from state-declared
// budgets and/or config defaults derived from safety invariants. A risk
// kind declared by both sources with differing values keeps the
// state-declared value (more specific) and records a warning.
func BuildEffectiveBudget(stateBudgets map[RiskKind]int, invariants []SafetyInvariant, epsilonPpm int) (Ledger, map[RiskKind]BudgetSource, []string) {
	kindSet := map[RiskKind]struct{}{}
	for k := range stateBudgets {
		kindSet[k] = struct{}{}
	}
	for _, inv := range invariants {
		if inv.RiskKind != "" {
			kindSet[inv.RiskKind] = struct{}{}
		}
	}

	kinds := make([]RiskKind, 0, len(kindSet))
	for k := range kindSet {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	ledger := make(Ledger, len(kinds))
	source := make(map[RiskKind]BudgetSource, len(kinds))
	var warnings []string

	hasInvariant := map[RiskKind]bool{}
	for _, inv := range invariants {
		if inv.RiskKind != "" {
			hasInvariant[inv.RiskKind] = true
		}
	}

	for _, k := range kinds {
		stateVal, hasState := stateBudgets[k]
		hasConfig := hasInvariant[k]

		switch {
		case hasState && hasConfig:
			if stateVal != epsilonPpm {
				warnings = append(warnings, fmt.Sprintf("budget mismatch for riskKind %q: state=%d config=%d", k, stateVal, epsilonPpm))
			}
			ledger[k] = stateVal
			source[k] = BudgetSourceState
		case hasState:
			ledger[k] = stateVal
			source[k] = BudgetSourceState
		default:
			ledger[k] = epsilonPpm
			source[k] = BudgetSourceConfigDefault
		}
	}

	return ledger, source, warnings
}
