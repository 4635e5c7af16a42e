// Package p09 implements the contingency planner: a bounded, branching
// policy graph over deterministic actions and forced transitions that
// fire at declared ticks, with safety invariants checked after every
// state transition.
package p09

import "sort"

// Bounds, per spec §4.F.
const (
	MaxHorizon      = 1000
	MaxBranchFactor = 8
	MaxPolicyNodes  = 200
)

// State is a property snapshot. Effects must never mutate their input
// — Clone gives every caller a defensive copy to build on.
type State map[string]float64

// Clone returns an independent copy of s.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Action is a deterministic, chooseable operation spanning DurationTicks.
// Effect is applied at the first simulated tick (start tick + 1), before
// any forced transition scheduled for that same tick — see simulateWindow.
type Action struct {
	ID            string
	DurationTicks int
	Effect        func(State) State
}

// ForcedTransition fires unconditionally at FireAtTick, regardless of
// which action (if any) is in flight.
type ForcedTransition struct {
	ID         string
	FireAtTick int
	Effect     func(State) State
}

// SafetyInvariant requires Property to stay at or above Minimum.
type SafetyInvariant struct {
	ID       string
	Property string
	Minimum  float64
}

// EdgeKind discriminates PolicyEdge. Chosen edges result from picking an
// action; forced edges result from a forced transition firing with no
// action chosen (the "wait" branch).
type EdgeKind string

const (
	EdgeChosen EdgeKind = "chosen"
	EdgeForced EdgeKind = "forced"
)

// PolicyNode is one state snapshot in the scenario graph.
type PolicyNode struct {
	ID                 string
	Tick               int
	State              State
	ViolatedInvariants []string // lexicographically sorted
}

// PolicyEdge connects two nodes. TriggeredBy is empty for chosen edges
// and names the firing ForcedTransition's ID for forced edges.
type PolicyEdge struct {
	From        string
	To          string
	Kind        EdgeKind
	ActionID    string
	TriggeredBy string
}

// TruncationReason explains why expansion stopped before exhausting the
// full state space.
type TruncationReason string

const (
	TruncationNone        TruncationReason = ""
	TruncationNodeCap     TruncationReason = "node_cap"
	TruncationDepthCap    TruncationReason = "depth_cap"
	TruncationFanoutCap   TruncationReason = "fanout_cap"
)

// ScenarioGraph is the bounded policy graph BuildContingencyGraph
// produces.
type ScenarioGraph struct {
	Nodes            []PolicyNode
	Edges            []PolicyEdge
	RootNodeID       string
	TotalNodes       int
	BranchCount      int
	MaxDepth         int
	Truncated        bool
	TruncationReason TruncationReason
}

func sortedInvariantIDs(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}
