package bundle

import (
	"testing"

	"github.com/antigravity-dev/ember/internal/canon"
)

func sampleInput(t *testing.T) BundleInput {
	t.Helper()
	in, err := ComputeBundleInput(
		"minecraft.craft", "live", "v1",
		[]canon.Definition{{Action: "craft_stick", Raw: map[string]any{"action": "craft_stick"}}},
		map[string]int{"oak_planks": 2},
		map[string]any{"item": "stick", "count": 4},
		map[string]any{"oak_log": 3},
		"code-1", "tiers-1",
		nil,
		map[string]float64{"time": 1.0},
		nil,
	)
	if err != nil {
		t.Fatalf("ComputeBundleInput: %v", err)
	}
	return in
}

func TestObjectiveWeightsSource(t *testing.T) {
	in := sampleInput(t)
	if in.ObjectiveWeightsSource != ObjectiveWeightsDefault {
		t.Errorf("expected default source, got %s", in.ObjectiveWeightsSource)
	}

	in2, err := ComputeBundleInput(
		"minecraft.craft", "live", "v1", nil,
		map[string]int{}, nil, nil, "code-1", "",
		map[string]float64{"time": 2.0},
		map[string]float64{"time": 1.0},
		nil,
	)
	if err != nil {
		t.Fatal(err)
	}
	if in2.ObjectiveWeightsSource != ObjectiveWeightsProvided {
		t.Errorf("expected provided source, got %s", in2.ObjectiveWeightsSource)
	}
}

func TestCreateSolveBundleDeterministic(t *testing.T) {
	in := sampleInput(t)
	out, err := ComputeBundleOutput("plan-1", true, []canon.Step{{Action: "craft_stick"}}, SearchStats{TotalNodes: 10, DurationMs: 5}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	compat := CompatReport{Valid: true, DefinitionCount: 1}

	b1, err := CreateSolveBundle(in, out, compat)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := CreateSolveBundle(in, out, compat)
	if err != nil {
		t.Fatal(err)
	}
	if b1.BundleHash != b2.BundleHash {
		t.Errorf("bundleHash not stable across runs: %s != %s", b1.BundleHash, b2.BundleHash)
	}
	if b1.BundleID != string(in.SolverID)+":"+string(b1.BundleHash) {
		t.Errorf("unexpected bundleId shape: %s", b1.BundleID)
	}
}

func TestAttachSterlingIdentityDoesNotChangeBundleHash(t *testing.T) {
	in := sampleInput(t)
	out, err := ComputeBundleOutput("plan-1", true, []canon.Step{{Action: "craft_stick"}}, SearchStats{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := CreateSolveBundle(in, out, CompatReport{Valid: true})
	if err != nil {
		t.Fatal(err)
	}
	before := b.BundleHash

	after, binding, err := AttachSterlingIdentity(b, &SterlingIdentity{TraceBundleHash: "abc123", EngineCommitment: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if after.BundleHash != before {
		t.Errorf("attaching sterling identity changed bundleHash: %s != %s", after.BundleHash, before)
	}
	if binding == "" {
		t.Error("expected non-empty bindingHash when traceBundleHash present")
	}
}

func TestCreateSolveBundleIgnoresTimestampAndCheckedAt(t *testing.T) {
	in := sampleInput(t)
	out, _ := ComputeBundleOutput("plan-1", false, nil, SearchStats{}, nil, nil)

	compat1 := CompatReport{Valid: true, CheckedAt: timeNow()}
	b1, err := CreateSolveBundle(in, out, compat1)
	if err != nil {
		t.Fatal(err)
	}

	compat2 := CompatReport{Valid: true} // zero-value CheckedAt, different from compat1's
	b2, err := CreateSolveBundle(in, out, compat2)
	if err != nil {
		t.Fatal(err)
	}
	if b1.BundleHash != b2.BundleHash {
		t.Errorf("checkedAt should not affect bundleHash: %s != %s", b1.BundleHash, b2.BundleHash)
	}
}

func TestDegeneracyDetection(t *testing.T) {
	rc := &RationaleContext{
		MaxNodes:          100,
		NodesExpanded:     20,
		HValues:           []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5},
		TerminationReason: "max_nodes",
	}
	out, err := ComputeBundleOutput("", false, nil, SearchStats{}, nil, rc)
	if err != nil {
		t.Fatal(err)
	}
	if out.Rationale == nil || !out.Rationale.SearchTermination.DegeneracyDetected {
		t.Fatal("expected degeneracy to be detected for constant heuristic")
	}
	found := map[string]bool{}
	for _, r := range out.Rationale.SearchTermination.DegeneracyReasons {
		found[r] = true
	}
	if !found["constant heuristic"] {
		t.Errorf("expected 'constant heuristic' reason, got %v", out.Rationale.SearchTermination.DegeneracyReasons)
	}
	if !found["heuristic not discriminating"] {
		t.Errorf("expected 'heuristic not discriminating' reason, got %v", out.Rationale.SearchTermination.DegeneracyReasons)
	}
}
