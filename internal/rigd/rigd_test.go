package rigd

import (
	"context"
	"testing"

	"github.com/antigravity-dev/ember/internal/canon"
	"github.com/antigravity-dev/ember/internal/reasonerclient"
)

type fakeReasoner struct {
	result reasonerclient.SolveResult
	err    error
}

func (f *fakeReasoner) IsAvailable(ctx context.Context) bool { return true }
func (f *fakeReasoner) ConnectionNonce() uint64               { return 1 }
func (f *fakeReasoner) Initialize(ctx context.Context) error  { return nil }
func (f *fakeReasoner) Destroy(ctx context.Context) error     { return nil }
func (f *fakeReasoner) RegisterDomainDeclaration(ctx context.Context, decl reasonerclient.Declaration, digest canon.Hash) (reasonerclient.RegisterResult, error) {
	return reasonerclient.RegisterResult{Success: true}, nil
}
func (f *fakeReasoner) Solve(ctx context.Context, payload reasonerclient.SolvePayload, onStep func(reasonerclient.StepEvent)) (reasonerclient.SolveResult, error) {
	return f.result, f.err
}

func TestSolveAcquisitionTrade(t *testing.T) {
	tables := StaticTables{
		Trades: []TradeOffer{
			{Item: "iron_ingot", EntityType: "villager", BaseCost: 2.0},
		},
	}
	solver := &AcquisitionSolver{
		Priors:   NewPriorStore(),
		Tables:   tables,
		Reasoner: &fakeReasoner{result: reasonerclient.SolveResult{SolutionFound: true, SolutionPath: []string{"acq:trade:iron_ingot"}}},
	}

	result, err := solver.Solve(context.Background(), "iron_ingot", 1, map[string]int{"emerald": 5}, nil, []NearbyEntity{{Type: "villager", Distance: 10}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SelectedStrategy == nil || *result.SelectedStrategy != StrategyTrade {
		t.Fatalf("expected trade strategy, got %v", result.SelectedStrategy)
	}
	if len(result.Bundles) != 2 {
		t.Fatalf("expected parent+child bundle, got %d", len(result.Bundles))
	}
	child := result.Bundles[1]
	if len(child.Input.ContextTokensInjected) != 1 || child.Input.ContextTokensInjected[0] != "proximity:villager" {
		t.Fatalf("expected contextTokensInjected [proximity:villager], got %v", child.Input.ContextTokensInjected)
	}

	wantHash, err := canon.HashInventoryState(map[string]int{"emerald": 5, "proximity:villager": 1})
	if err != nil {
		t.Fatal(err)
	}
	if child.Input.InitialStateHash != wantHash {
		t.Errorf("expected initialStateHash %s, got %s", wantHash, child.Input.InitialStateHash)
	}
	if result.ParentBundleID != result.Bundles[0].BundleID {
		t.Error("expected parentBundleId == bundles[0].bundleId")
	}
}

func TestSolveAcquisitionSalvageWithoutProximity(t *testing.T) {
	tables := StaticTables{
		Salvages: []SalvageSource{
			{Item: "stick", FromItem: "oak_planks", BaseCost: 0.5},
		},
	}
	solver := &AcquisitionSolver{
		Priors:   NewPriorStore(),
		Tables:   tables,
		Reasoner: &fakeReasoner{result: reasonerclient.SolveResult{SolutionFound: true, SolutionPath: []string{"acq:salvage:stick"}}},
	}

	result, err := solver.Solve(context.Background(), "stick", 1, map[string]int{"oak_planks": 1}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SelectedStrategy == nil || *result.SelectedStrategy != StrategySalvage {
		t.Fatalf("expected salvage strategy, got %v", result.SelectedStrategy)
	}
	child := result.Bundles[1]
	if len(child.Input.ContextTokensInjected) != 0 {
		t.Errorf("expected no contextTokensInjected, got %v", child.Input.ContextTokensInjected)
	}
	wantHash, err := canon.HashInventoryState(map[string]int{"oak_planks": 1})
	if err != nil {
		t.Fatal(err)
	}
	if child.Input.InitialStateHash != wantHash {
		t.Errorf("expected initialStateHash %s, got %s", wantHash, child.Input.InitialStateHash)
	}
}

func TestSolveAcquisitionNoViableStrategy(t *testing.T) {
	solver := &AcquisitionSolver{Priors: NewPriorStore()}
	result, err := solver.Solve(context.Background(), "bedrock", 1, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Solved {
		t.Fatal("expected solved=false")
	}
	if result.SelectedStrategy != nil {
		t.Fatal("expected selectedStrategy=nil")
	}
	if len(result.StrategyRanking) != 0 {
		t.Fatal("expected empty strategyRanking")
	}
	if !contains(result.Error, "No viable") {
		t.Errorf("expected error to contain 'No viable', got %q", result.Error)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func TestRankCandidatesTieBreak(t *testing.T) {
	priors := NewPriorStore()
	candidates := []enumeratedCandidate{
		{Candidate: Candidate{Item: "x", Strategy: StrategyLoot, BaseCost: 1.0}},
		{Candidate: Candidate{Item: "x", Strategy: StrategyCraft, BaseCost: 1.0}},
	}
	ranked := RankCandidates(candidates, priors)
	if ranked[0].Strategy != StrategyCraft {
		t.Errorf("expected craft to win lexicographic tie-break over loot, got %s", ranked[0].Strategy)
	}
}

func TestPriorStoreReportEpisodeResult(t *testing.T) {
	store := NewPriorStore()
	key := PriorKey{Item: "iron_ingot", Strategy: StrategyTrade, ContextToken: "proximity:villager"}
	store.ReportEpisodeResult(key, true)
	store.ReportEpisodeResult(key, false)
	entry := store.Get(key)
	if entry.SampleCount != 2 {
		t.Fatalf("expected sampleCount 2, got %d", entry.SampleCount)
	}
	if entry.SuccessRate != 0.5 {
		t.Fatalf("expected successRate 0.5, got %v", entry.SuccessRate)
	}
}

func TestReportEpisodeResultMissingPlanIDSkipped(t *testing.T) {
	solver := &AcquisitionSolver{Priors: NewPriorStore()}
	solver.ReportEpisodeResult("iron_ingot", StrategyTrade, "proximity:villager", true, "", "")
	entry := solver.Priors.Get(PriorKey{Item: "iron_ingot", Strategy: StrategyTrade, ContextToken: "proximity:villager"})
	if entry.SampleCount != 0 {
		t.Fatal("expected no mutation when planId is missing")
	}
}

func TestCandidateSetDigestStableForIdenticalWorldState(t *testing.T) {
	tables := StaticTables{Loot: []LootSource{{Item: "bone", BaseCost: 1.0}}}
	in := EnumerateInput{Item: "bone", Tables: tables}
	c1 := EnumerateCandidates(in)
	c2 := EnumerateCandidates(in)
	d1, err := computeCandidateSetDigest(c1)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := computeCandidateSetDigest(c2)
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Errorf("expected stable digest, got %s vs %s", d1, d2)
	}
}
