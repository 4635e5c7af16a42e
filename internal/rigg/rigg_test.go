package rigg

import (
	"strings"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestBuildDagFromModulesShelterDAG(t *testing.T) {
	modules := []Module{
		{ModuleID: "clear_site", ModuleType: "clear"},
		{ModuleID: "foundation_5x5", ModuleType: "foundation", DependsOn: []string{"clear_site"}},
		{ModuleID: "walls_cobble_3h", ModuleType: "walls", DependsOn: []string{"foundation_5x5"}},
		{ModuleID: "place_bed", ModuleType: "place_feature", DependsOn: []string{"walls_cobble_3h"}},
		{ModuleID: "roof_slab", ModuleType: "roof", DependsOn: []string{"walls_cobble_3h"}},
		{ModuleID: "door_south", ModuleType: "place_feature", DependsOn: []string{"walls_cobble_3h"}},
		{ModuleID: "lighting_pass", ModuleType: "place_feature", DependsOn: []string{"roof_slab"}},
	}

	dec := BuildDagFromModules[any](modules, nil)
	if !dec.IsOk() {
		t.Fatalf("expected ok, got blocked/error: %s %s", dec.Reason(), dec.Detail())
	}
	plan := dec.Value()
	if len(plan.Nodes) != 7 {
		t.Fatalf("expected 7 nodes, got %d", len(plan.Nodes))
	}

	lin := Linearize(plan)
	if !lin.IsOk() {
		t.Fatalf("expected linearize ok, got error: %s", lin.Detail())
	}
	order := lin.Value().Order

	idx := func(moduleID string) int {
		node, _ := findNodeByModule(plan, moduleID)
		for i, id := range order {
			if id == node.ID {
				return i
			}
		}
		return -1
	}
	if idx("walls_cobble_3h") >= idx("roof_slab") {
		t.Error("expected walls_cobble_3h to precede roof_slab in linearization")
	}

	pairs := FindCommutingPairs(plan)
	doorNode, _ := findNodeByModule(plan, "door_south")
	lightingNode, _ := findNodeByModule(plan, "lighting_pass")
	for _, p := range pairs {
		if (p.NodeA == doorNode.ID && p.NodeB == lightingNode.ID) || (p.NodeA == lightingNode.ID && p.NodeB == doorNode.ID) {
			t.Error("door_south and lighting_pass share a conflict key and must not commute")
		}
	}
}

func findNodeByModule[T any](plan PartialOrderPlan[T], moduleID string) (PlanNode[T], bool) {
	for _, n := range plan.Nodes {
		if n.ModuleID == moduleID {
			return n, true
		}
	}
	return PlanNode[T]{}, false
}

func TestBuildDagFromModulesBoundExceeded(t *testing.T) {
	modules := make([]Module, 300)
	for i := range modules {
		m := Module{ModuleID: idFor(i), ModuleType: "chain"}
		if i > 0 {
			m.DependsOn = []string{idFor(i - 1)}
		}
		modules[i] = m
	}

	dec := BuildDagFromModules[any](modules, nil)
	if !dec.IsBlocked() {
		t.Fatalf("expected blocked, got %v", dec)
	}
	if dec.Reason() != ReasonBoundExceeded {
		t.Errorf("expected bound_exceeded, got %s", dec.Reason())
	}
	if !strings.Contains(dec.Detail(), "300") || !strings.Contains(dec.Detail(), "200") {
		t.Errorf("expected detail to mention 300 and 200, got %s", dec.Detail())
	}
}

func idFor(i int) string {
	return "module-" + string(rune('A'+i%26)) + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var b []byte
	for i > 0 {
		b = append([]byte{byte('0' + i%10)}, b...)
		i /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

func TestCheckFeasibilityMissingDependency(t *testing.T) {
	modules := []Module{
		{ModuleID: "clear_site", ModuleType: "clear"},
		{ModuleID: "walls_cobble_3h", ModuleType: "walls", DependsOn: []string{"clear_site"}},
	}
	dec := BuildDagFromModules[any](modules, nil)
	if !dec.IsOk() {
		t.Fatalf("expected ok: %s", dec.Detail())
	}
	plan := dec.Value()

	constraints := []PlanConstraint{
		DependencyConstraint{DependentModuleID: "walls_cobble_3h", RequiredModuleID: "foundation_5x5"},
	}
	fdec := CheckFeasibility(plan, constraints)
	if !fdec.IsBlocked() {
		t.Fatal("expected blocked")
	}
	if fdec.Reason() != ReasonInfeasibleDependency {
		t.Errorf("expected infeasible_dependency, got %s", fdec.Reason())
	}
	if !strings.Contains(fdec.Detail(), "foundation_5x5") {
		t.Errorf("expected detail to mention foundation_5x5, got %s", fdec.Detail())
	}
}

func TestReachabilityUnknownDistanceAccepted(t *testing.T) {
	modules := []Module{{ModuleID: "m1", ModuleType: "t"}}
	dec := BuildDagFromModules[any](modules, nil)
	plan := dec.Value()

	constraints := []PlanConstraint{
		ReachabilityConstraint{ModuleID: "m1", MaxDistance: 5, CurrentDistance: nil},
	}
	fdec := CheckFeasibility(plan, constraints)
	if !fdec.IsOk() {
		t.Fatalf("expected ok for unknown distance, got %v %v", fdec.Reason(), fdec.Detail())
	}
}

func TestReachabilityExceeded(t *testing.T) {
	modules := []Module{{ModuleID: "m1", ModuleType: "t"}}
	dec := BuildDagFromModules[any](modules, nil)
	plan := dec.Value()

	constraints := []PlanConstraint{
		ReachabilityConstraint{ModuleID: "m1", MaxDistance: 5, CurrentDistance: intPtr(10)},
	}
	fdec := CheckFeasibility(plan, constraints)
	if !fdec.IsBlocked() || fdec.Reason() != ReasonInfeasibleReachability {
		t.Fatalf("expected blocked infeasible_reachability, got %v %v", fdec.Reason(), fdec.Detail())
	}
}

func TestLinearizeDeterminismAcross50Runs(t *testing.T) {
	modules := []Module{
		{ModuleID: "a", ModuleType: "t"},
		{ModuleID: "b", ModuleType: "t", DependsOn: []string{"a"}},
		{ModuleID: "c", ModuleType: "t", DependsOn: []string{"a"}},
		{ModuleID: "d", ModuleType: "t", DependsOn: []string{"b", "c"}},
	}
	dec := BuildDagFromModules[any](modules, nil)
	plan := dec.Value()

	first := Linearize(plan)
	if !first.IsOk() {
		t.Fatal(first.Detail())
	}
	for i := 0; i < 50; i++ {
		lin := Linearize(plan)
		if !lin.IsOk() {
			t.Fatalf("run %d: expected ok", i)
		}
		if lin.Value().LinearizationDigest != first.Value().LinearizationDigest {
			t.Fatalf("run %d: digest mismatch", i)
		}
		for j, id := range lin.Value().Order {
			if id != first.Value().Order[j] {
				t.Fatalf("run %d: order mismatch at %d", i, j)
			}
		}
	}
}

func TestAdvisorFailClosedUnknownVersion(t *testing.T) {
	meta := AdviceMeta{
		Version: 99,
		Signals: RigGSignals{
			FeasibilityPassed:     true,
			ReadySetSizeMean:      2.0,
			FeasibilityRejections: map[string]int{},
		},
		CommutingPairs: []CommutingPair{{NodeA: "a", NodeB: "b"}},
	}
	advice := AdviseExecution(meta)
	if advice.ShouldProceed {
		t.Error("expected shouldProceed=false")
	}
	if !advice.ShouldReplan {
		t.Error("expected shouldReplan=true")
	}
	if advice.SuggestedParallelism != 1 {
		t.Errorf("expected parallelism 1, got %d", advice.SuggestedParallelism)
	}
	if len(advice.ReorderableStepPairs) != 0 {
		t.Error("expected no reorderable pairs on block")
	}
	if !strings.Contains(advice.BlockReason, "Unknown rigG metadata version") || !strings.Contains(advice.BlockReason, "99") {
		t.Errorf("unexpected block reason: %s", advice.BlockReason)
	}
}

func TestAdvisorParallelismClamp(t *testing.T) {
	cases := []struct {
		mean float64
		want int
	}{
		{10.0, 3},
		{0.5, 1},
		{2.7, 2},
	}
	for _, c := range cases {
		meta := AdviceMeta{
			Version: CurrentVersion,
			Signals: RigGSignals{
				FeasibilityPassed:     true,
				ReadySetSizeMean:      c.mean,
				FeasibilityRejections: map[string]int{},
			},
		}
		advice := AdviseExecution(meta)
		if advice.SuggestedParallelism != c.want {
			t.Errorf("mean=%v: expected parallelism %d, got %d", c.mean, c.want, advice.SuggestedParallelism)
		}
	}
}
