package p09

import (
	"fmt"
	"sort"
)

// BuildContingencyGraph expands a bounded policy graph from initial,
// branching once per action (chosen edges) and once per forced
// transition firing with no action in flight (forced "wait" edges).
// Expansion is breadth-first with actions and forced transitions always
// visited in the same sorted order, so identical inputs produce
// identical graphs — including node IDs, which are assigned in
// creation order rather than hashed.
func BuildContingencyGraph(initial State, actions []Action, forced []ForcedTransition, invariants []SafetyInvariant, horizon int) ScenarioGraph {
	cappedHorizon := horizon
	if cappedHorizon <= 0 || cappedHorizon > MaxHorizon {
		cappedHorizon = MaxHorizon
	}

	sortedActions := sortActionsByID(actions)
	sortedForced := sortForcedByTick(forced)

	rootID := "n0"
	nodeCounter := 1
	root := PolicyNode{ID: rootID, Tick: 0, State: initial.Clone(), ViolatedInvariants: checkInvariants(initial, invariants)}
	nodes := []PolicyNode{root}
	var edges []PolicyEdge

	truncated := false
	var truncationReason TruncationReason
	maxDepth := 0

	type queueItem struct {
		id    string
		tick  int
		state State
		depth int
	}
	queue := []queueItem{{id: rootID, tick: 0, state: root.State, depth: 0}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if len(nodes) >= MaxPolicyNodes {
			truncated = true
			if truncationReason == TruncationNone {
				truncationReason = TruncationNodeCap
			}
			break
		}
		if item.tick >= cappedHorizon {
			continue // leaf: horizon reached
		}
		if len(checkInvariants(item.state, invariants)) > 0 {
			continue // terminal: safety invariant already violated at this node
		}

		candidateActions := sortedActions
		if len(candidateActions) > MaxBranchFactor {
			candidateActions = candidateActions[:MaxBranchFactor]
			truncated = true
			if truncationReason == TruncationNone {
				truncationReason = TruncationFanoutCap
			}
		}

		for _, a := range candidateActions {
			endTick := item.tick + a.DurationTicks
			if endTick > cappedHorizon {
				truncated = true
				if truncationReason == TruncationNone {
					truncationReason = TruncationDepthCap
				}
				continue
			}
			if len(nodes) >= MaxPolicyNodes {
				truncated = true
				if truncationReason == TruncationNone {
					truncationReason = TruncationNodeCap
				}
				break
			}

			simState := simulateWindow(item.state, a, sortedForced, item.tick, endTick)
			childID := fmt.Sprintf("n%d", nodeCounter)
			nodeCounter++
			child := PolicyNode{ID: childID, Tick: endTick, State: simState, ViolatedInvariants: checkInvariants(simState, invariants)}
			nodes = append(nodes, child)
			edges = append(edges, PolicyEdge{From: item.id, To: childID, Kind: EdgeChosen, ActionID: a.ID})

			depth := item.depth + 1
			if depth > maxDepth {
				maxDepth = depth
			}
			queue = append(queue, queueItem{id: childID, tick: endTick, state: simState, depth: depth})
		}

		for _, trigger := range FiringTriggers(item.tick+1, sortedForced) {
			if len(nodes) >= MaxPolicyNodes {
				truncated = true
				if truncationReason == TruncationNone {
					truncationReason = TruncationNodeCap
				}
				break
			}
			ft := mustFindForced(sortedForced, trigger)
			childState := ft.Effect(item.state.Clone())
			childID := fmt.Sprintf("n%d", nodeCounter)
			nodeCounter++
			child := PolicyNode{ID: childID, Tick: item.tick + 1, State: childState, ViolatedInvariants: checkInvariants(childState, invariants)}
			nodes = append(nodes, child)
			edges = append(edges, PolicyEdge{From: item.id, To: childID, Kind: EdgeForced, TriggeredBy: ft.ID})

			depth := item.depth + 1
			if depth > maxDepth {
				maxDepth = depth
			}
			queue = append(queue, queueItem{id: childID, tick: item.tick + 1, state: childState, depth: depth})
		}
	}

	return ScenarioGraph{
		Nodes:            nodes,
		Edges:            edges,
		RootNodeID:       rootID,
		TotalNodes:       len(nodes),
		BranchCount:      len(edges),
		MaxDepth:         maxDepth,
		Truncated:        truncated,
		TruncationReason: truncationReason,
	}
}

// simulateWindow walks every tick between an action's start and end,
// applying the action's own effect at the first tick and any forced
// transition scheduled for that exact tick — never collapsing the
// window into a single jump.
func simulateWindow(state State, action Action, sortedForced []ForcedTransition, startTick, endTick int) State {
	sim := state.Clone()
	for tick := startTick + 1; tick <= endTick; tick++ {
		if tick == startTick+1 {
			sim = action.Effect(sim)
		}
		for _, ft := range sortedForced {
			if ft.FireAtTick == tick {
				sim = ft.Effect(sim)
			}
		}
	}
	return sim
}

// FiringTriggers returns the lexicographically sorted IDs of forced
// transitions scheduled to fire at tick. Same tick, same forced table →
// same set, every time.
func FiringTriggers(tick int, forced []ForcedTransition) []string {
	var ids []string
	for _, ft := range forced {
		if ft.FireAtTick == tick {
			ids = append(ids, ft.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

func checkInvariants(state State, invariants []SafetyInvariant) []string {
	var violated []string
	for _, inv := range invariants {
		if state[inv.Property] < inv.Minimum {
			violated = append(violated, inv.ID)
		}
	}
	return sortedInvariantIDs(violated)
}

func sortActionsByID(actions []Action) []Action {
	out := append([]Action(nil), actions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortForcedByTick(forced []ForcedTransition) []ForcedTransition {
	out := append([]ForcedTransition(nil), forced...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FireAtTick != out[j].FireAtTick {
			return out[i].FireAtTick < out[j].FireAtTick
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func mustFindForced(forced []ForcedTransition, id string) ForcedTransition {
	for _, ft := range forced {
		if ft.ID == id {
			return ft
		}
	}
	panic("p09: forced transition " + id + " not found")
}
