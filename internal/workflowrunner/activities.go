package workflowrunner

import (
	"context"

	"github.com/antigravity-dev/ember/internal/rigd"
	"github.com/antigravity-dev/ember/internal/timeframe"
)

// Activities bundles the side-effecting dependencies the workflow's
// activities call through. A single instance is shared by every
// workflow execution the worker runs.
type Activities struct {
	Solver    *rigd.AcquisitionSolver
	Scheduler *timeframe.Manager
}

// SelectBucketActivity chooses the timeframe bucket a plan should run
// under before the acquisition solve starts, so the caller can surface
// scheduling reasoning even if the solve itself never runs (e.g. the
// bucket constraints are unsatisfiable).
func (a *Activities) SelectBucketActivity(ctx context.Context, req PlanRequest) (timeframe.BucketSelection, error) {
	return a.Scheduler.SelectBucket(timeframe.BucketSelectionRequest{
		EstimatedDurationMs:  req.EstimatedDurationMs,
		Priority:             req.Priority,
		Complexity:           req.Complexity,
		ResourceRequirements: req.ResourceRequirements,
		Dependencies:         req.Dependencies,
		Constraints: timeframe.Constraints{
			RequiredBucket:  req.RequiredBucket,
			ExcludedBuckets: req.ExcludedBuckets,
		},
	})
}

// AcquireActivity runs one acquisition episode.
func (a *Activities) AcquireActivity(ctx context.Context, req PlanRequest) (rigd.AcquisitionResult, error) {
	return a.Solver.Solve(ctx, req.Item, req.Count, req.Inventory, req.NearbyBlocks, req.NearbyEntities)
}
