package rigd

import "context"

// CraftingSubsolver is the internal subsolver the mine and craft
// strategies delegate to. Its gating (data availability) is checked
// earlier via CraftingCatalog; this interface only covers dispatch.
type CraftingSubsolver interface {
	Solve(ctx context.Context, item string, count int, inventory map[string]int) (CraftingSolveResult, error)
}

// CraftingSolveResult is what the crafting subsolver reports back to
// the acquisition solver for child-bundle composition.
type CraftingSolveResult struct {
	Solved     bool
	StepsItems []string // ordered action identifiers, turned into canon.Step by the caller
	Error      string
}
