package p13

import "sort"

// CanCommit reports whether op may commit given its current confidence
// and the set of operators already blocked by prior commitments.
func CanCommit(op OperatorSpec, confidence map[string]float64, commitState CommitState) bool {
	if confidence[op.ID] < op.RequiredConfidence {
		return false
	}
	for _, blocked := range commitState.Blocked {
		if blocked == op.ID {
			return false
		}
	}
	return true
}

// Commit records op as committed, bumping CommittedCount and merging
// the operators it blocks into commitState.Blocked, sorted and
// deduplicated. The input state is never mutated.
func Commit(commitState CommitState, op OperatorSpec) CommitState {
	next := commitState.Clone()
	next.Committed = append(next.Committed, op.ID)
	next.CommittedCount++

	blockedSet := make(map[string]struct{}, len(next.Blocked)+len(op.Blocks))
	for _, b := range next.Blocked {
		blockedSet[b] = struct{}{}
	}
	for _, b := range op.Blocks {
		blockedSet[b] = struct{}{}
	}

	merged := make([]string, 0, len(blockedSet))
	for b := range blockedSet {
		merged = append(merged, b)
	}
	sort.Strings(merged)
	next.Blocked = merged
	return next
}

// ApplyVerification folds an observed verification delta into prior
// confidence values, clamping each result to [0, 1]. Same prior and
// same observed delta always produce the same posterior. Neither
// argument is mutated.
func ApplyVerification(prior map[string]float64, observed map[string]float64) map[string]float64 {
	posterior := make(map[string]float64, len(prior))
	for k, v := range prior {
		posterior[k] = v
	}
	for k, delta := range observed {
		v := posterior[k] + delta
		if v > 1.0 {
			v = 1.0
		}
		if v < 0 {
			v = 0
		}
		posterior[k] = v
	}
	return posterior
}

// reversibilityMultiplier scales rollback cost into a commitment
// penalty: committing a fully reversible operator costs nothing extra;
// a costly-reversible one costs its rollback cost once; an irreversible
// one costs it twice, reflecting the unrecoverable option lost.
func reversibilityMultiplier(r Reversibility) float64 {
	switch r {
	case FullyReversible:
		return 0
	case Irreversible:
		return 2
	default:
		return 1
	}
}

// CalculateCommitmentCost prices committing tag.OperatorID out of
// optionState: a base cost equal to its rollback cost, a reversibility
// penalty on top, and the option value lost by locking in that choice.
func CalculateCommitmentCost(tag ReversibilityTag, optionState OptionState) CommitmentCost {
	baseCost := tag.RollbackCost
	penalty := baseCost * reversibilityMultiplier(tag.Reversibility)

	after := CommitOption(optionState, tag.OperatorID)
	optionValueLoss := float64(optionState.OptionValue - after.OptionValue)
	if optionValueLoss < 0 {
		optionValueLoss = 0
	}

	return CommitmentCost{
		BaseCost:          baseCost,
		CommitmentPenalty: penalty,
		OptionValueLoss:   optionValueLoss,
		TotalCost:         baseCost + penalty + optionValueLoss,
	}
}
