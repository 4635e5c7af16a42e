package p10

import "testing"

func TestExpandActionMassNotConserved(t *testing.T) {
	action := StochasticAction{
		ID: "gamble",
		Outcomes: []Outcome{
			{OutcomeID: "a", MassPpm: 300000},
			{OutcomeID: "b", MassPpm: 300000},
			{OutcomeID: "c", MassPpm: 350000},
		},
	}
	_, ok, reason := ExpandAction(State{}, action, nil, Ledger{})
	if ok {
		t.Fatal("expected rejection for non-conserving mass")
	}
	if reason != ReasonMassNotConserved {
		t.Fatalf("expected mass_not_conserved, got %q", reason)
	}
}

func TestPlanMassRejectionNoChanceNode(t *testing.T) {
	action := StochasticAction{
		ID: "gamble",
		Outcomes: []Outcome{
			{OutcomeID: "a", MassPpm: 300000},
			{OutcomeID: "b", MassPpm: 300000},
			{OutcomeID: "c", MassPpm: 350000},
		},
	}
	result := Plan(State{}, []StochasticAction{action}, nil, func(State) bool { return false }, nil, Config{EpsilonPpm: 1000})

	found := false
	for _, r := range result.Explanation.RejectedActions {
		if r.ActionID == "gamble" && r.Reason == ReasonMassNotConserved {
			found = true
		}
	}
	if !found {
		t.Fatal("expected gamble rejected with mass_not_conserved")
	}
	if len(result.Graph.Nodes) != 1 {
		t.Fatalf("expected only the root node, got %d", len(result.Graph.Nodes))
	}
}

func TestPlanTightBudgetRejectsAction(t *testing.T) {
	action := StochasticAction{
		ID: "risky",
		Outcomes: []Outcome{
			{OutcomeID: "fail", MassPpm: 50000, Effect: func(s State) State {
				out := s.Clone()
				out["health"] = -1
				return out
			}},
			{OutcomeID: "ok", MassPpm: 950000},
		},
	}
	invariants := []SafetyInvariant{{ID: "no_death", Property: "health", Minimum: 0, RiskKind: "death"}}
	stateBudgets := map[RiskKind]int{"death": 10000}

	result := Plan(State{"health": 10}, []StochasticAction{action}, invariants, func(State) bool { return false }, stateBudgets, Config{EpsilonPpm: 1000})

	found := false
	for _, r := range result.Explanation.RejectedActions {
		if r.ActionID == "risky" && r.Reason == ReasonRiskBudgetExceeded {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected risky rejected with risk_budget_exceeded, got %+v", result.Explanation.RejectedActions)
	}
}

func TestExpandActionLedgerDebitPartitionedByRiskKind(t *testing.T) {
	action := StochasticAction{
		ID: "twoRisk",
		Outcomes: []Outcome{
			{OutcomeID: "fail_death", MassPpm: 100000, Effect: func(s State) State {
				out := s.Clone()
				out["health"] = -1
				return out
			}},
			{OutcomeID: "fail_item", MassPpm: 100000, Effect: func(s State) State {
				out := s.Clone()
				out["durability"] = -1
				return out
			}},
			{OutcomeID: "ok", MassPpm: 800000},
		},
	}
	invariants := []SafetyInvariant{
		{ID: "no_death", Property: "health", Minimum: 0, RiskKind: "death"},
		{ID: "no_break", Property: "durability", Minimum: 0, RiskKind: "item_loss"},
	}
	ledger := Ledger{"death": 500000, "item_loss": 500000}

	expanded, ok, reason := ExpandAction(State{"health": 10, "durability": 10}, action, invariants, ledger)
	if !ok {
		t.Fatalf("expected success, got rejection %q", reason)
	}
	if expanded.Ledger["death"] != 400000 {
		t.Fatalf("expected death ledger debited by 100000, got %d", expanded.Ledger["death"])
	}
	if expanded.Ledger["item_loss"] != 400000 {
		t.Fatalf("expected item_loss ledger debited by 100000, got %d", expanded.Ledger["item_loss"])
	}
	if ledger["death"] != 500000 {
		t.Fatal("ExpandAction must not mutate its input ledger")
	}
}

func TestExpandActionOutcomesSortedByID(t *testing.T) {
	action := StochasticAction{
		ID: "sortMe",
		Outcomes: []Outcome{
			{OutcomeID: "z", MassPpm: 500000},
			{OutcomeID: "a", MassPpm: 500000},
		},
	}
	expanded, ok, _ := ExpandAction(State{}, action, nil, Ledger{})
	if !ok {
		t.Fatal("expected success")
	}
	if expanded.Outcomes[0].OutcomeID != "a" || expanded.Outcomes[1].OutcomeID != "z" {
		t.Fatalf("expected outcomes sorted a,z, got %v", expanded.Outcomes)
	}
}

func TestBuildEffectiveBudgetMismatchWarning(t *testing.T) {
	invariants := []SafetyInvariant{{ID: "no_death", Property: "health", Minimum: 0, RiskKind: "death"}}
	_, source, warnings := BuildEffectiveBudget(map[RiskKind]int{"death": 10000}, invariants, 5000)
	if source["death"] != BudgetSourceState {
		t.Fatalf("expected state to take precedence, got %v", source["death"])
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one mismatch warning, got %v", warnings)
	}
}

func TestBuildEffectiveBudgetConfigDefault(t *testing.T) {
	invariants := []SafetyInvariant{{ID: "no_death", Property: "health", Minimum: 0, RiskKind: "death"}}
	ledger, source, warnings := BuildEffectiveBudget(nil, invariants, 5000)
	if ledger["death"] != 5000 || source["death"] != BudgetSourceConfigDefault {
		t.Fatalf("expected config default 5000, got %d/%v", ledger["death"], source["death"])
	}
	if len(warnings) != 0 {
		t.Fatal("expected no warnings when only one source declares a budget")
	}
}

func TestAggregateUnionBoundCapped(t *testing.T) {
	got := AggregateFailurePpm(Config{RiskAggregation: AggregationUnionBound}, []int{600000, 600000})
	if got != MassTotal {
		t.Fatalf("expected capped at MassTotal, got %d", got)
	}
}

func TestAggregateIndependentProduct(t *testing.T) {
	got := AggregateFailurePpm(Config{RiskAggregation: AggregationIndependentProduct}, []int{100000, 100000})
	// 1 - 0.9*0.9 = 0.19 -> 190000 ppm
	if got != 190000 {
		t.Fatalf("expected 190000, got %d", got)
	}
}

func TestUpdateRiskModelPreservesMassTotal(t *testing.T) {
	prior := map[string]int{"a": 500000, "b": 300000, "c": 200000}
	updated := UpdateRiskModel(prior, "a", 10)

	sum := 0
	for id, v := range updated {
		sum += v
		if _, ok := prior[id]; !ok {
			t.Fatalf("unexpected new outcome id %q introduced", id)
		}
	}
	if len(updated) != len(prior) {
		t.Fatal("outcome id set must be invariant")
	}
	if sum != MassTotal {
		t.Fatalf("expected sum of MassTotal, got %d", sum)
	}
}

func TestUpdateRiskModelDeterministic(t *testing.T) {
	prior := map[string]int{"a": 333334, "b": 333333, "c": 333333}
	first := UpdateRiskModel(prior, "b", 7)
	for i := 0; i < 50; i++ {
		got := UpdateRiskModel(prior, "b", 7)
		for id, v := range got {
			if first[id] != v {
				t.Fatalf("run %d: nondeterministic update for %q: %d vs %d", i, id, v, first[id])
			}
		}
	}
}

func TestPlanDeterministicOver50Runs(t *testing.T) {
	action := StochasticAction{
		ID: "step",
		Outcomes: []Outcome{
			{OutcomeID: "ok", MassPpm: 900000},
			{OutcomeID: "fail", MassPpm: 100000, Effect: func(s State) State {
				out := s.Clone()
				out["health"] = -1
				return out
			}},
		},
	}
	invariants := []SafetyInvariant{{ID: "no_death", Property: "health", Minimum: 0, RiskKind: "death"}}
	goal := func(s State) bool { return s["progress"] >= 2 }
	cfg := Config{EpsilonPpm: 200000, MaxScenarioDepth: 3}

	first := Plan(State{"health": 10}, []StochasticAction{action}, invariants, goal, nil, cfg)
	for i := 0; i < 50; i++ {
		got := Plan(State{"health": 10}, []StochasticAction{action}, invariants, goal, nil, cfg)
		if got.Graph.TotalNodes != first.Graph.TotalNodes {
			t.Fatalf("run %d: totalNodes mismatch", i)
		}
		if got.Graph.RootNodeID != first.Graph.RootNodeID {
			t.Fatalf("run %d: rootNodeId mismatch", i)
		}
		if got.PolicyFailureUpperBoundPpm != first.PolicyFailureUpperBoundPpm {
			t.Fatalf("run %d: policyFailureUpperBoundPpm mismatch", i)
		}
	}
}

func TestStableStringifyByteIdenticalOver50Runs(t *testing.T) {
	v := map[string]any{"b": 2, "a": []int{3, 1, 2}, "c": map[string]any{"z": 1, "y": 2}}
	first, err := StableStringify(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 50; i++ {
		got, err := StableStringify(v)
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
		if got != first {
			t.Fatalf("run %d: stableStringify not byte-identical: %q vs %q", i, got, first)
		}
	}
}

func TestConstraintStatusViolatedWhenBoundExceedsEpsilon(t *testing.T) {
	action := StochasticAction{
		ID: "step",
		Outcomes: []Outcome{
			{OutcomeID: "ok", MassPpm: 500000},
			{OutcomeID: "fail", MassPpm: 500000, Effect: func(s State) State {
				out := s.Clone()
				out["health"] = -1
				return out
			}},
		},
	}
	invariants := []SafetyInvariant{{ID: "no_death", Property: "health", Minimum: 0, RiskKind: "death"}}
	goal := func(s State) bool { return s["progress"] >= 1 }
	result := Plan(State{"health": 10}, []StochasticAction{action}, invariants, goal, nil, Config{EpsilonPpm: 1000})

	if result.Graph.ConstraintStatus == ConstraintSatisfied {
		t.Fatal("expected constraint status not satisfied when failure bound exceeds epsilon")
	}
}
