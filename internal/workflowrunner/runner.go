package workflowrunner

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/antigravity-dev/ember/internal/config"
	"github.com/antigravity-dev/ember/internal/rigd"
	"github.com/antigravity-dev/ember/internal/timeframe"
)

// Runner owns the Temporal client and worker for one process. It is
// only constructed when cfg.Workflow.Enabled is true.
type Runner struct {
	client client.Client
	worker worker.Worker
}

// StartRunner dials the configured Temporal server and registers the
// acquisition planning workflow and its activities on cfg's task
// queue. Callers must Close the returned Runner when done.
func StartRunner(cfg config.Workflow, solver *rigd.AcquisitionSolver, scheduler *timeframe.Manager) (*Runner, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("dialing temporal at %s: %w", cfg.HostPort, err)
	}

	w := worker.New(c, cfg.TaskQueue, worker.Options{})

	acts := &Activities{Solver: solver, Scheduler: scheduler}

	w.RegisterWorkflow(PlanAcquisitionWorkflow)
	w.RegisterActivity(acts.SelectBucketActivity)
	w.RegisterActivity(acts.AcquireActivity)

	if err := w.Start(); err != nil {
		c.Close()
		return nil, fmt.Errorf("starting temporal worker: %w", err)
	}

	return &Runner{client: c, worker: w}, nil
}

// Close stops the worker and releases the Temporal client connection.
func (r *Runner) Close() {
	r.worker.Stop()
	r.client.Close()
}

// ExecutePlan starts one PlanAcquisitionWorkflow run and blocks for its result.
func (r *Runner) ExecutePlan(cfg config.Workflow, req PlanRequest) (*PlanResult, error) {
	run, err := r.client.ExecuteWorkflow(
		context.Background(),
		client.StartWorkflowOptions{TaskQueue: cfg.TaskQueue},
		PlanAcquisitionWorkflow,
		req,
	)
	if err != nil {
		return nil, fmt.Errorf("starting plan workflow: %w", err)
	}

	var result PlanResult
	if err := run.Get(context.Background(), &result); err != nil {
		return nil, fmt.Errorf("plan workflow failed: %w", err)
	}
	return &result, nil
}
