package p10

import (
	"fmt"
	"sort"
)

// Plan expands a bounded scenario graph from initial under actions,
// invariants and goal, debiting a risk ledger seeded from stateBudgets
// and cfg's safety-derived defaults. Expansion is breadth-first with
// actions always visited in sorted-ID order, so identical inputs
// produce identical graphs. Planning never mutates actions' outcome
// tables or any caller-owned state.
func Plan(initial State, actions []StochasticAction, invariants []SafetyInvariant, goal func(State) bool, stateBudgets map[RiskKind]int, cfg Config) ScenarioResult {
	cfg = cfg.resolve()
	effectiveBudget, budgetSource, warnings := BuildEffectiveBudget(stateBudgets, invariants, cfg.EpsilonPpm)

	sortedActions := append([]StochasticAction(nil), actions...)
	sort.SliceStable(sortedActions, func(i, j int) bool { return sortedActions[i].ID < sortedActions[j].ID })

	rootID := "n0"
	nodeCounter := 1
	root := ScenarioNode{ID: rootID, Depth: 0, State: initial.Clone(), Ledger: effectiveBudget.Clone()}

	nodes := []ScenarioNode{root}
	var edges []ScenarioEdge

	riskDeltas := map[RiskKind]int{}
	var rejectedActions []RejectedAction
	var failureStepsGraphWide []int

	wasTruncated := false
	truncationReason := TruncationNone
	maxDepth := 0
	maxChanceFanout := 0
	goalReachable := false
	policyFailureUpperBoundPpm := 0

	type queueItem struct {
		id          string
		depth       int
		state       State
		ledger      Ledger
		pathFailure int
	}
	queue := []queueItem{{id: rootID, depth: 0, state: root.State, ledger: root.Ledger, pathFailure: 0}}

	markTerminal := func(idx int, reason TerminalReason) {
		nodes[idx].Terminal = true
		nodes[idx].TerminalReason = reason
	}
	nodeIndex := map[string]int{rootID: 0}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		idx := nodeIndex[item.id]

		if goal != nil && goal(item.state) {
			goalReachable = true
			markTerminal(idx, TerminalGoalReached)
			if item.pathFailure > policyFailureUpperBoundPpm {
				policyFailureUpperBoundPpm = item.pathFailure
			}
			continue
		}
		if len(violatedInvariantIDs(item.state, invariants)) > 0 {
			markTerminal(idx, TerminalSafetyViolated)
			if item.pathFailure > policyFailureUpperBoundPpm {
				policyFailureUpperBoundPpm = item.pathFailure
			}
			continue
		}
		if item.depth >= cfg.MaxScenarioDepth {
			wasTruncated = true
			if truncationReason == TruncationNone {
				truncationReason = TruncationDepthCap
			}
			markTerminal(idx, TerminalHorizonReached)
			if item.pathFailure > policyFailureUpperBoundPpm {
				policyFailureUpperBoundPpm = item.pathFailure
			}
			continue
		}
		if len(nodes) >= cfg.MaxScenarioNodes {
			wasTruncated = true
			if truncationReason == TruncationNone {
				truncationReason = TruncationNodeCap
			}
			markTerminal(idx, TerminalNodeCapReached)
			if item.pathFailure > policyFailureUpperBoundPpm {
				policyFailureUpperBoundPpm = item.pathFailure
			}
			continue
		}

		branched := false
		allRejectedWereBudget := true
		anyRejected := false

		for _, action := range sortedActions {
			expanded, ok, reason := ExpandAction(item.state, action, invariants, item.ledger)
			if !ok {
				if reason == "" {
					continue // precondition unsatisfied, not applicable here
				}
				anyRejected = true
				if reason != ReasonRiskBudgetExceeded {
					allRejectedWereBudget = false
				}
				rejectedActions = append(rejectedActions, RejectedAction{ActionID: action.ID, Reason: reason})
				continue
			}

			outcomes := expanded.Outcomes
			if len(outcomes) > cfg.MaxOutcomesPerAction {
				outcomes = outcomes[:cfg.MaxOutcomesPerAction]
				wasTruncated = true
				if truncationReason == TruncationNone {
					truncationReason = TruncationFanoutCap
				}
			}
			if len(outcomes) > maxChanceFanout {
				maxChanceFanout = len(outcomes)
			}

			for kind, before := range item.ledger {
				if after, ok := expanded.Ledger[kind]; ok && after != before {
					riskDeltas[kind] += after - before
				}
			}

			for _, o := range outcomes {
				if len(nodes) >= cfg.MaxScenarioNodes {
					wasTruncated = true
					if truncationReason == TruncationNone {
						truncationReason = TruncationNodeCap
					}
					break
				}

				stepPpm := 0
				if o.IsFailure {
					stepPpm = o.MassPpm
					failureStepsGraphWide = append(failureStepsGraphWide, stepPpm)
				}
				childPathFailure := CombineFailureStep(cfg, item.pathFailure, stepPpm)

				childID := fmt.Sprintf("n%d", nodeCounter)
				nodeCounter++
				child := ScenarioNode{
					ID:             childID,
					Depth:          item.depth + 1,
					State:          o.PostState,
					Ledger:         expanded.Ledger,
					FailurePpmHere: stepPpm,
				}
				nodes = append(nodes, child)
				nodeIndex[childID] = len(nodes) - 1
				edges = append(edges, ScenarioEdge{From: item.id, To: childID, Kind: ScenarioEdgeOutcome, ActionID: action.ID, OutcomeID: o.OutcomeID, MassPpm: o.MassPpm})

				depth := item.depth + 1
				if depth > maxDepth {
					maxDepth = depth
				}

				branched = true
				queue = append(queue, queueItem{id: childID, depth: depth, state: o.PostState, ledger: expanded.Ledger, pathFailure: childPathFailure})
			}
		}

		if !branched {
			if anyRejected && allRejectedWereBudget {
				markTerminal(idx, TerminalRiskBudgetExhausted)
			} else {
				markTerminal(idx, TerminalNoFeasibleAction)
			}
			if item.pathFailure > policyFailureUpperBoundPpm {
				policyFailureUpperBoundPpm = item.pathFailure
			}
		}
	}

	graphWideCumulativeFailurePpm := AggregateFailurePpm(cfg, failureStepsGraphWide)

	constraintStatus := ConstraintViolated
	switch {
	case wasTruncated:
		constraintStatus = ConstraintUnknown
	case policyFailureUpperBoundPpm <= cfg.EpsilonPpm && goalReachable:
		constraintStatus = ConstraintSatisfied
	}

	graph := ScenarioGraph{
		Nodes:            nodes,
		Edges:            edges,
		RootNodeID:       rootID,
		TotalNodes:       len(nodes),
		MaxDepth:         maxDepth,
		MaxChanceFanout:  maxChanceFanout,
		ConstraintStatus: constraintStatus,
		GoalReachable:    goalReachable,
	}

	return ScenarioResult{
		Graph:                         graph,
		EffectiveBudget:               effectiveBudget,
		BudgetSource:                  budgetSource,
		BudgetMismatchWarnings:        warnings,
		WasTruncated:                  wasTruncated,
		TruncationReason:              truncationReason,
		PolicyFailureUpperBoundPpm:    policyFailureUpperBoundPpm,
		GraphWideCumulativeFailurePpm: graphWideCumulativeFailurePpm,
		Explanation:                   Explanation{RiskDeltas: riskDeltas, RejectedActions: rejectedActions},
	}
}
