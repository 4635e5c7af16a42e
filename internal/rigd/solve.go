package rigd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/antigravity-dev/ember/internal/bundle"
	"github.com/antigravity-dev/ember/internal/canon"
	"github.com/antigravity-dev/ember/internal/reasonerclient"
)

// parentSolverID identifies the acquisition solver itself in every
// parent bundle it emits.
const parentSolverID = "minecraft.acquisition"

// AcquisitionSolver runs the enumerate → digest → rank → dispatch
// pipeline and composes the resulting parent/child solve bundles.
type AcquisitionSolver struct {
	Priors   *PriorStore
	Tables   StaticTables
	Catalog  CraftingCatalog
	Crafting CraftingSubsolver
	Reasoner reasonerclient.Reasoner

	CodeVersion string
	Logger      *slog.Logger
}

func (s *AcquisitionSolver) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Solve runs one acquisition episode for item/count against the
// supplied world observations.
func (s *AcquisitionSolver) Solve(ctx context.Context, item string, count int, inventory map[string]int, nearbyBlocks []string, nearbyEntities []NearbyEntity) (AcquisitionResult, error) {
	goal := map[string]any{"item": item, "count": count}

	candidates := EnumerateCandidates(EnumerateInput{
		Item:           item,
		Inventory:      inventory,
		NearbyBlocks:   nearbyBlocks,
		NearbyEntities: nearbyEntities,
		Tables:         s.Tables,
		Catalog:        s.Catalog,
	})

	digest, err := computeCandidateSetDigest(candidates)
	if err != nil {
		return AcquisitionResult{}, err
	}

	if len(candidates) == 0 {
		msg := fmt.Sprintf("No viable strategy found for item %q", item)
		parent, err := s.buildParentBundle(inventory, nearbyBlocks, goal, false, msg)
		if err != nil {
			return AcquisitionResult{}, err
		}
		return AcquisitionResult{
			Solved:             false,
			SelectedStrategy:   nil,
			StrategyRanking:    nil,
			Error:              msg,
			Bundles:            []bundle.SolveBundle{parent},
			ParentBundleID:     parent.BundleID,
			CandidateSetDigest: digest,
		}, nil
	}

	ranked := RankCandidates(candidates, s.Priors)
	top := ranked[0]

	child, solved, dispatchErr := s.dispatch(ctx, top, item, count, inventory)

	parentMsg := ""
	if !solved {
		parentMsg = dispatchErr
	}
	parent, err := s.buildParentBundle(inventory, nearbyBlocks, goal, solved, parentMsg)
	if err != nil {
		return AcquisitionResult{}, err
	}

	strategy := top.Strategy
	return AcquisitionResult{
		Solved:             solved,
		SelectedStrategy:   &strategy,
		StrategyRanking:    ranked,
		Error:              parentMsg,
		Bundles:            []bundle.SolveBundle{parent, child},
		ParentBundleID:     parent.BundleID,
		CandidateSetDigest: digest,
	}, nil
}

func (s *AcquisitionSolver) buildParentBundle(inventory map[string]int, nearbyBlocks []string, goal map[string]any, solved bool, errMsg string) (bundle.SolveBundle, error) {
	input, err := bundle.ComputeBundleInput(parentSolverID, "", "v1", nil, inventory, goal, nearbyBlocks, s.CodeVersion, "", nil, nil, nil)
	if err != nil {
		return bundle.SolveBundle{}, err
	}
	output, err := bundle.ComputeBundleOutput("", solved, nil, bundle.SearchStats{}, nil, nil)
	if err != nil {
		return bundle.SolveBundle{}, err
	}
	output.Error = errMsg
	compat := bundle.CompatReport{Valid: true}
	return bundle.CreateSolveBundle(input, output, compat)
}

// dispatch sends the top-ranked candidate to the strategy-appropriate
// backend and returns the resulting child bundle.
func (s *AcquisitionSolver) dispatch(ctx context.Context, top RankedCandidate, item string, count int, inventory map[string]int) (bundle.SolveBundle, bool, string) {
	switch top.Strategy {
	case StrategyMine, StrategyCraft:
		return s.dispatchCrafting(ctx, top, item, count, inventory)
	default:
		return s.dispatchReasoner(ctx, top, item, count, inventory)
	}
}

func (s *AcquisitionSolver) dispatchCrafting(ctx context.Context, top RankedCandidate, item string, count int, inventory map[string]int) (bundle.SolveBundle, bool, string) {
	solverID := "minecraft." + string(top.Strategy)
	if s.Crafting == nil {
		child, _ := s.buildChildBundle(solverID, inventory, "", item, count, false, nil)
		return child, false, "crafting subsolver not configured"
	}

	result, err := s.Crafting.Solve(ctx, item, count, inventory)
	if err != nil {
		child, _ := s.buildChildBundle(solverID, inventory, "", item, count, false, nil)
		return child, false, err.Error()
	}

	steps := make([]canon.Step, len(result.StepsItems))
	for i, a := range result.StepsItems {
		steps[i] = canon.Step{Action: a}
	}
	child, buildErr := s.buildChildBundle(solverID, inventory, "", item, count, result.Solved, steps)
	if buildErr != nil {
		return bundle.SolveBundle{}, false, buildErr.Error()
	}
	return child, result.Solved, result.Error
}

func (s *AcquisitionSolver) dispatchReasoner(ctx context.Context, top RankedCandidate, item string, count int, inventory map[string]int) (bundle.SolveBundle, bool, string) {
	solverID := "minecraft." + string(top.Strategy)

	augmented := inventory
	var tokensInjected []string
	if top.ContextToken != "" {
		augmented = injectContextTokens(inventory, top.ContextToken)
		tokensInjected = []string{top.ContextToken}
	}

	if s.Reasoner == nil {
		child, _ := s.buildChildBundle(solverID, augmented, top.ContextToken, item, count, false, nil)
		return child, false, "reasoner not configured"
	}

	payload := reasonerclient.SolvePayload{
		Command:       "solve",
		Domain:        "minecraft",
		ContractVersion: "v1",
		ExecutionMode: string(top.Strategy),
		SolverID:      solverID,
		Inventory:     augmented,
		Goal:          map[string]any{"item": item, "count": count},
	}

	result, err := s.Reasoner.Solve(ctx, payload, nil)
	if err != nil {
		s.logger().Warn("reasoner solve failed", "strategy", top.Strategy, "item", item, "error", err)
		child, buildErr := s.buildChildBundleWithTokens(solverID, augmented, tokensInjected, item, count, false, nil)
		if buildErr != nil {
			return bundle.SolveBundle{}, false, buildErr.Error()
		}
		return child, false, err.Error()
	}

	steps := make([]canon.Step, len(result.SolutionPath))
	for i, a := range result.SolutionPath {
		steps[i] = canon.Step{Action: a}
	}
	child, buildErr := s.buildChildBundleWithTokens(solverID, augmented, tokensInjected, item, count, result.SolutionFound, steps)
	if buildErr != nil {
		return bundle.SolveBundle{}, false, buildErr.Error()
	}
	return child, result.SolutionFound, ""
}

func (s *AcquisitionSolver) buildChildBundle(solverID string, inventory map[string]int, contextToken string, item string, count int, solved bool, steps []canon.Step) (bundle.SolveBundle, error) {
	var tokens []string
	if contextToken != "" {
		tokens = []string{contextToken}
	}
	return s.buildChildBundleWithTokens(solverID, inventory, tokens, item, count, solved, steps)
}

func (s *AcquisitionSolver) buildChildBundleWithTokens(solverID string, inventory map[string]int, tokens []string, item string, count int, solved bool, steps []canon.Step) (bundle.SolveBundle, error) {
	goal := map[string]any{"item": item, "count": count}
	input, err := bundle.ComputeBundleInput(solverID, "", "v1", nil, inventory, goal, nil, s.CodeVersion, "", nil, nil, tokens)
	if err != nil {
		return bundle.SolveBundle{}, err
	}
	output, err := bundle.ComputeBundleOutput("", solved, steps, bundle.SearchStats{SolutionPathLength: len(steps)}, nil, nil)
	if err != nil {
		return bundle.SolveBundle{}, err
	}
	compat := bundle.CompatReport{Valid: true}
	return bundle.CreateSolveBundle(input, output, compat)
}

// injectContextTokens returns a copy of inventory with token set to 1.
// The original map is never mutated; tokens are only ever added, never
// fabricated beyond the one corresponding observation.
func injectContextTokens(inventory map[string]int, token string) map[string]int {
	out := make(map[string]int, len(inventory)+1)
	for k, v := range inventory {
		out[k] = v
	}
	out[token] = 1
	return out
}

// ReportEpisodeResult folds an observed outcome into the prior store.
// A missing planID is logged and skipped — this never throws, per the
// acquisition solver's error-handling contract.
func (s *AcquisitionSolver) ReportEpisodeResult(item string, strategy Strategy, contextToken string, success bool, planID string, digest canon.Hash) {
	if planID == "" {
		s.logger().Warn("reportEpisodeResult: missing planId, skipping", "item", item, "strategy", strategy)
		return
	}
	s.Priors.ReportEpisodeResult(PriorKey{Item: item, Strategy: strategy, ContextToken: contextToken}, success)
}
