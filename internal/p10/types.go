// Package p10 implements the risk-aware stochastic planner: mass-
// conserved action outcomes, a PPM risk ledger debited on expansion,
// a bounded chance-expanded scenario graph, and largest-remainder
// learning updates that keep outcome masses exact.
package p10

// MassTotal is the exact PPM sum every stochastic action's outcome
// masses must add up to.
const MassTotal = 1_000_000

// Bounds, per spec §4.G. MaxOutcomesPerAction is pinned here — the
// spec names the constant but leaves its value to the implementation
// (see DESIGN.md).
const (
	MaxScenarioNodes     = 300
	MaxScenarioDepth     = 50
	MaxOutcomesPerAction = 8
)

// State is a property snapshot. Effects must never mutate their input.
type State map[string]float64

// Clone returns an independent copy of s.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// RiskKind names one dimension of the risk ledger (e.g. "death", "item_loss").
type RiskKind string

// Ledger maps riskKind to remaining PPM budget.
type Ledger map[RiskKind]int

// Clone returns an independent copy of l.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// BudgetSource records where a ledger entry's initial value came from.
type BudgetSource string

const (
	BudgetSourceState         BudgetSource = "state"
	BudgetSourceConfigDefault BudgetSource = "config_default"
)

// SafetyInvariant requires Property to stay at or above Minimum; a
// violation debits the ledger entry named by RiskKind.
type SafetyInvariant struct {
	ID       string
	Property string
	Minimum  float64
	RiskKind RiskKind
}

// Outcome is one possible result of a stochastic action, with its share
// of MassTotal.
type Outcome struct {
	OutcomeID string
	MassPpm   int
	Effect    func(State) State
	Cost      float64 // optional; Plan does not read it and computes no CVaR
}

// StochasticAction is an action whose outcome masses must sum to
// MassTotal exactly.
type StochasticAction struct {
	ID            string
	Precondition  func(State) bool
	Outcomes      []Outcome
}

// ExpandedOutcome is an Outcome after effect application and safety
// checking.
type ExpandedOutcome struct {
	OutcomeID          string
	MassPpm            int
	PostState          State
	IsFailure          bool
	ViolatedInvariants []string
	Cost               float64
}

// ExpandedAction is the successful result of ExpandAction: the sorted,
// safety-checked outcomes plus the ledger after debiting.
type ExpandedAction struct {
	ActionID string
	Outcomes []ExpandedOutcome
	Ledger   Ledger
}

// RiskAggregation selects how per-step failure PPM combines into a
// cumulative figure.
type RiskAggregation string

const (
	AggregationUnionBound        RiskAggregation = "union_bound"
	AggregationIndependentProduct RiskAggregation = "independent_product"
)

// Config bounds and tunes one planning call.
type Config struct {
	MaxScenarioNodes     int
	MaxScenarioDepth     int
	MaxOutcomesPerAction int
	RiskAggregation      RiskAggregation
	EpsilonPpm           int
}

// ConstraintStatus summarizes whether a scenario graph satisfies its
// risk budget.
type ConstraintStatus string

const (
	ConstraintSatisfied ConstraintStatus = "satisfied"
	ConstraintViolated  ConstraintStatus = "violated"
	ConstraintUnknown   ConstraintStatus = "unknown"
)

// TruncationReason names why planning stopped early, if it did.
type TruncationReason string

const (
	TruncationNone      TruncationReason = ""
	TruncationNodeCap   TruncationReason = "node_cap"
	TruncationDepthCap  TruncationReason = "depth_cap"
	TruncationFanoutCap TruncationReason = "fanout_cap"
)

// TerminalReason names why a scenario-graph node has no children.
type TerminalReason string

const (
	TerminalNone             TerminalReason = ""
	TerminalNoFeasibleAction TerminalReason = "no_feasible_actions"
	TerminalRiskBudgetExhausted TerminalReason = "risk_budget_exhausted"
	TerminalSafetyViolated   TerminalReason = "safety_violated"
	TerminalHorizonReached   TerminalReason = "horizon_reached"
	TerminalNodeCapReached   TerminalReason = "node_cap_reached"
	TerminalGoalReached      TerminalReason = "goal_reached"
)

// ScenarioEdgeKind discriminates a scenario-graph edge by what produced
// it: a chosen action, or one of its chance outcomes.
type ScenarioEdgeKind string

const (
	ScenarioEdgeChosen  ScenarioEdgeKind = "chosen"
	ScenarioEdgeOutcome ScenarioEdgeKind = "outcome"
)

// ScenarioNode is one state in the risk-expanded scenario graph.
type ScenarioNode struct {
	ID             string
	Depth          int
	State          State
	Ledger         Ledger
	FailurePpmHere int
	Terminal       bool
	TerminalReason TerminalReason
}

// ScenarioEdge connects two scenario nodes, either by a chosen action
// (fanning to its outcomes) or by one specific outcome of that action.
type ScenarioEdge struct {
	From      string
	To        string
	Kind      ScenarioEdgeKind
	ActionID  string
	OutcomeID string
	MassPpm   int
}

// RejectedAction records an action that could not be applied at some
// node, and why.
type RejectedAction struct {
	ActionID string
	Reason   string
}

// Explanation is the human-auditable summary of a planning run.
type Explanation struct {
	RiskDeltas      map[RiskKind]int
	RejectedActions []RejectedAction
}

// ScenarioGraph is the bounded, risk-expanded policy graph produced by Plan.
type ScenarioGraph struct {
	Nodes            []ScenarioNode
	Edges            []ScenarioEdge
	RootNodeID       string
	TotalNodes       int
	MaxDepth         int
	MaxChanceFanout  int
	ConstraintStatus ConstraintStatus
	GoalReachable    bool
}

// ScenarioResult is the full output of Plan.
type ScenarioResult struct {
	Graph                         ScenarioGraph
	EffectiveBudget               Ledger
	BudgetSource                  map[RiskKind]BudgetSource
	BudgetMismatchWarnings        []string
	WasTruncated                  bool
	TruncationReason              TruncationReason
	PolicyFailureUpperBoundPpm    int
	GraphWideCumulativeFailurePpm int
	CVaRCost                      *float64
	Explanation                   Explanation
}

func (c Config) resolve() Config {
	if c.MaxScenarioNodes <= 0 || c.MaxScenarioNodes > MaxScenarioNodes {
		c.MaxScenarioNodes = MaxScenarioNodes
	}
	if c.MaxScenarioDepth <= 0 || c.MaxScenarioDepth > MaxScenarioDepth {
		c.MaxScenarioDepth = MaxScenarioDepth
	}
	if c.MaxOutcomesPerAction <= 0 || c.MaxOutcomesPerAction > MaxOutcomesPerAction {
		c.MaxOutcomesPerAction = MaxOutcomesPerAction
	}
	if c.RiskAggregation == "" {
		c.RiskAggregation = AggregationUnionBound
	}
	return c
}
