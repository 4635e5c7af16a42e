package workflowrunner

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/antigravity-dev/ember/internal/rigd"
	"github.com/antigravity-dev/ember/internal/timeframe"
)

// PlanAcquisitionWorkflow schedules a timeframe bucket for req, then
// runs the acquisition solve under it. Bucket selection and the solve
// are separate activities so a workflow history shows scheduling
// reasoning even when the solve activity later fails and retries.
func PlanAcquisitionWorkflow(ctx workflow.Context, req PlanRequest) (*PlanResult, error) {
	logger := workflow.GetLogger(ctx)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var a *Activities

	var bucket timeframe.BucketSelection
	if err := workflow.ExecuteActivity(ctx, a.SelectBucketActivity, req).Get(ctx, &bucket); err != nil {
		return nil, fmt.Errorf("bucket selection failed: %w", err)
	}
	logger.Info("Planning: bucket selected", "Bucket", bucket.BucketName)

	var acq rigd.AcquisitionResult
	if err := workflow.ExecuteActivity(ctx, a.AcquireActivity, req).Get(ctx, &acq); err != nil {
		return nil, fmt.Errorf("acquisition solve failed: %w", err)
	}

	return &PlanResult{
		Acquisition: acq,
		BucketName:  bucket.BucketName,
		BucketWhy:   bucket.Reasoning,
	}, nil
}
