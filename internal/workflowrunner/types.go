// Package workflowrunner optionally hosts the acquisition-planning
// pipeline as a Temporal workflow, so a long solve session survives
// process restarts. The workflow offers no pause/resume of its own. A
// Runner is only started when config.Workflow.Enabled is set; the
// package, and with it go.temporal.io/sdk, is linked in either way.
package workflowrunner

import (
	"github.com/antigravity-dev/ember/internal/rigd"
	"github.com/antigravity-dev/ember/internal/timeframe"
)

// PlanRequest is the workflow input: one acquisition episode plus the
// timeframe bucket it should be scheduled under.
type PlanRequest struct {
	Item                 string
	Count                int
	Inventory            map[string]int
	NearbyBlocks         []string
	NearbyEntities       []rigd.NearbyEntity
	EstimatedDurationMs  int64
	Priority             int
	Complexity           timeframe.Complexity
	ResourceRequirements []string
	Dependencies         []string
	RequiredBucket       string
	ExcludedBuckets      []string
}

// PlanResult is the workflow output: the acquisition result plus the
// bucket it was scheduled into.
type PlanResult struct {
	Acquisition rigd.AcquisitionResult
	BucketName  string
	BucketWhy   []string
}
