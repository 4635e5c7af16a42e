package rigg

import (
	"fmt"
	"sort"

	"github.com/antigravity-dev/ember/internal/canon"
)

// SchemaVersion is the current plan schema version baked into node IDs
// and plan digests.
const SchemaVersion = 1

// conflictingModuleTypes are module types whose instances never commute
// with one another, even absent an explicit precedence edge.
var conflictingModuleTypes = map[string]struct{}{
	"place_feature": {},
	"scaffold":      {},
}

func nodeID(schemaVersion int, moduleID, moduleType string) (canon.Hash, error) {
	return canon.HashValue(map[string]any{
		"schemaVersion": schemaVersion,
		"moduleId":      moduleID,
		"moduleType":    moduleType,
	})
}

// BuildDagFromModules builds a PartialOrderPlan from domain modules. It
// rejects oversized inputs with bound_exceeded, and structural cycles
// with a cycle_detected error — everything else is an ok(plan).
func BuildDagFromModules[T any](modules []Module, data map[string]T) Decision[PartialOrderPlan[T]] {
	if len(modules) > MaxDAGNodes {
		return Blocked[PartialOrderPlan[T]](ReasonBoundExceeded,
			fmt.Sprintf("%d modules exceeds MAX_DAG_NODES=%d", len(modules), MaxDAGNodes))
	}

	nodes := make([]PlanNode[T], 0, len(modules))
	idByModule := make(map[string]canon.Hash, len(modules))

	for _, m := range modules {
		id, err := nodeID(SchemaVersion, m.ModuleID, m.ModuleType)
		if err != nil {
			return Err[PartialOrderPlan[T]]("cycle_detected", fmt.Sprintf("failed to hash module %s: %v", m.ModuleID, err))
		}
		idByModule[m.ModuleID] = id
		nodes = append(nodes, PlanNode[T]{
			ID:           id,
			ModuleID:     m.ModuleID,
			ModuleType:   m.ModuleType,
			Data:         data[m.ModuleID],
			ConflictKeys: map[string]struct{}{},
		})
	}

	// Conflict keys: shared key per conflicting module type.
	byType := make(map[string][]int)
	for i, m := range modules {
		if _, conflicts := conflictingModuleTypes[m.ModuleType]; conflicts {
			byType[m.ModuleType] = append(byType[m.ModuleType], i)
		}
	}
	for moduleType, idxs := range byType {
		key := "type:" + moduleType
		for _, i := range idxs {
			nodes[i].ConflictKeys[key] = struct{}{}
		}
	}

	var edges []PlanEdge
	for _, m := range modules {
		from := idByModule[m.ModuleID]
		for _, dep := range m.DependsOn {
			to, ok := idByModule[dep]
			if !ok {
				continue // dependency outside this module set is checked by CheckFeasibility, not construction
			}
			// Edge points prerequisite → dependent so Kahn's algorithm
			// (linearize.go) frees the dependent only after the
			// prerequisite has been emitted.
			edges = append(edges, PlanEdge{From: to, To: from, Constraint: ConstraintDependency})
		}
	}

	if hasCycle(nodes, edges) {
		return Err[PartialOrderPlan[T]](ReasonCycleDetected, "dependency graph contains a cycle")
	}

	digest, err := computePlanDigest(SchemaVersion, nodes, edges)
	if err != nil {
		return Err[PartialOrderPlan[T]](ReasonCycleDetected, fmt.Sprintf("failed to compute plan digest: %v", err))
	}

	return Ok(PartialOrderPlan[T]{
		SchemaVersion: SchemaVersion,
		Nodes:         nodes,
		Edges:         edges,
		PlanDigest:    digest,
	})
}

func computePlanDigest[T any](schemaVersion int, nodes []PlanNode[T], edges []PlanEdge) (canon.Hash, error) {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = string(n.ID)
	}
	sort.Strings(ids)

	edgeStrs := make([]string, len(edges))
	for i, e := range edges {
		edgeStrs[i] = fmt.Sprintf("%s→%s:%s", e.From, e.To, e.Constraint)
	}
	sort.Strings(edgeStrs)

	return canon.HashValue(map[string]any{
		"schemaVersion": schemaVersion,
		"nodeIds":       toAnySlice(ids),
		"edges":         toAnySlice(edgeStrs),
	})
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// hasCycle runs a DFS-based cycle check over the node/edge set.
func hasCycle[T any](nodes []PlanNode[T], edges []PlanEdge) bool {
	adj := make(map[canon.Hash][]canon.Hash, len(nodes))
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[canon.Hash]int, len(nodes))

	var visit func(id canon.Hash) bool
	visit = func(id canon.Hash) bool {
		switch state[id] {
		case visiting:
			return true
		case done:
			return false
		}
		state[id] = visiting
		for _, next := range adj[id] {
			if visit(next) {
				return true
			}
		}
		state[id] = done
		return false
	}

	for _, n := range nodes {
		if state[n.ID] == unvisited {
			if visit(n.ID) {
				return true
			}
		}
	}
	return false
}
