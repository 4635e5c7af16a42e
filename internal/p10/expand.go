package p10

import "sort"

// Expansion rejection reasons.
const (
	ReasonMassNotConserved   = "mass_not_conserved"
	ReasonRiskBudgetExceeded = "risk_budget_exceeded"
)

// ExpandAction applies action to state under the current ledger. ok is
// false with an empty reason when the action's precondition is
// unsatisfied (the action simply does not apply here); ok is false with
// a reason when the action is illegal (mass not conserved) or rejected
// (would drive a ledger entry negative). On success, the returned
// ExpandedAction carries outcomes sorted by outcomeId and the ledger
// after debiting — the input ledger is never mutated.
func ExpandAction(state State, action StochasticAction, invariants []SafetyInvariant, ledger Ledger) (ExpandedAction, bool, string) {
	if action.Precondition != nil && !action.Precondition(state) {
		return ExpandedAction{}, false, ""
	}

	massSum := 0
	for _, o := range action.Outcomes {
		massSum += o.MassPpm
	}
	if massSum != MassTotal {
		return ExpandedAction{}, false, ReasonMassNotConserved
	}

	sorted := make([]Outcome, len(action.Outcomes))
	copy(sorted, action.Outcomes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OutcomeID < sorted[j].OutcomeID })

	expanded := make([]ExpandedOutcome, len(sorted))
	debitByKind := map[RiskKind]int{}

	for i, o := range sorted {
		post := state.Clone()
		if o.Effect != nil {
			post = o.Effect(post)
		}
		violated := violatedInvariantIDs(post, invariants)
		isFailure := len(violated) > 0

		expanded[i] = ExpandedOutcome{
			OutcomeID:          o.OutcomeID,
			MassPpm:            o.MassPpm,
			PostState:          post,
			IsFailure:          isFailure,
			ViolatedInvariants: violated,
			Cost:               o.Cost,
		}

		if isFailure {
			for _, kind := range violatedRiskKinds(post, invariants) {
				debitByKind[kind] += o.MassPpm
			}
		}
	}

	newLedger := ledger.Clone()
	for kind, debit := range debitByKind {
		if newLedger[kind]-debit < 0 {
			return ExpandedAction{}, false, ReasonRiskBudgetExceeded
		}
	}
	for kind, debit := range debitByKind {
		newLedger[kind] -= debit
	}

	return ExpandedAction{ActionID: action.ID, Outcomes: expanded, Ledger: newLedger}, true, ""
}

func violatedInvariantIDs(state State, invariants []SafetyInvariant) []string {
	var ids []string
	for _, inv := range invariants {
		if state[inv.Property] < inv.Minimum {
			ids = append(ids, inv.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// violatedRiskKinds returns the distinct risk kinds named by invariants
// that state violates, so a multi-kind action debits each affected
// ledger entry by the outcome's full mass, not a fractional split.
func violatedRiskKinds(state State, invariants []SafetyInvariant) []RiskKind {
	seen := map[RiskKind]struct{}{}
	var kinds []RiskKind
	for _, inv := range invariants {
		if inv.RiskKind == "" {
			continue
		}
		if state[inv.Property] < inv.Minimum {
			if _, ok := seen[inv.RiskKind]; !ok {
				seen[inv.RiskKind] = struct{}{}
				kinds = append(kinds, inv.RiskKind)
			}
		}
	}
	return kinds
}
