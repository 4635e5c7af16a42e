// Package p13 implements the commitment planner: reversibility-tagged
// operators, verify-before-commit gating, and a bounded option-value
// ledger that tracks how much reversible choice remains as operators
// lock in.
package p13

// OptionValueMax bounds the option-value ledger.
const OptionValueMax = 10

// Reversibility classifies how expensive an operator is to undo.
type Reversibility string

const (
	FullyReversible  Reversibility = "fully_reversible"
	CostlyReversible Reversibility = "costly_reversible"
	Irreversible     Reversibility = "irreversible"
)

// ReversibilityTag is metadata attached to every commitment-capable
// operator.
type ReversibilityTag struct {
	OperatorID    string
	Reversibility Reversibility
	RollbackCost  float64
}

// OperatorSpec is an operator as known to the commitment planner:
// the confidence bar it must clear and the operators it blocks once
// committed.
type OperatorSpec struct {
	ID                 string
	RequiredConfidence float64
	Blocks             []string
}

// CommitState tracks which operators have committed and which remain
// blocked as a result. CommittedCount never decreases across calls;
// Blocked is kept sorted and deduplicated.
type CommitState struct {
	Committed      []string
	CommittedCount int
	Blocked        []string
}

// Clone returns an independent copy of s.
func (s CommitState) Clone() CommitState {
	return CommitState{
		Committed:      append([]string(nil), s.Committed...),
		CommittedCount: s.CommittedCount,
		Blocked:        append([]string(nil), s.Blocked...),
	}
}

// OptionState tracks remaining reversible choices.
type OptionState struct {
	AvailableOptions []string
	LockedOptions    []string
	OptionValue      int
}

// Clone returns an independent copy of s.
func (s OptionState) Clone() OptionState {
	return OptionState{
		AvailableOptions: append([]string(nil), s.AvailableOptions...),
		LockedOptions:    append([]string(nil), s.LockedOptions...),
		OptionValue:      s.OptionValue,
	}
}

// CommitmentCost is the breakdown CalculateCommitmentCost returns.
type CommitmentCost struct {
	BaseCost          float64
	CommitmentPenalty float64
	OptionValueLoss   float64
	TotalCost         float64
}
