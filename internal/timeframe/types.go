// Package timeframe implements the task-timeframe manager: a five-
// bucket scheduler that slots tasks into tactical/short/standard/long/
// expedition windows, with pause/resume tickets and edge-triggered
// timeout detection.
package timeframe

import "time"

// TimeBucket is one scheduling window.
type TimeBucket struct {
	Name          string
	MaxDurationMs int64
	Priority      int
}

// DefaultBuckets returns the five standard buckets, shortest first.
func DefaultBuckets() []TimeBucket {
	return []TimeBucket{
		{Name: "tactical", MaxDurationMs: 30_000, Priority: 5},
		{Name: "short", MaxDurationMs: 5 * 60_000, Priority: 4},
		{Name: "standard", MaxDurationMs: 30 * 60_000, Priority: 3},
		{Name: "long", MaxDurationMs: 2 * 60 * 60_000, Priority: 2},
		{Name: "expedition", MaxDurationMs: 8 * 60 * 60_000, Priority: 1},
	}
}

// TaskStatus is the lifecycle state of a scheduled task.
type TaskStatus string

const (
	StatusRunning   TaskStatus = "running"
	StatusPaused    TaskStatus = "paused"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusTimeout   TaskStatus = "timeout"
)

// TaskState is one task's scheduling record.
type TaskState struct {
	TaskID      string
	BucketName  string
	Status      TaskStatus
	StartTime   time.Time
	Checkpoints []string
	Metadata    map[string]any
}

// ResumeTicket authorizes resuming a paused task, once, before it expires.
type ResumeTicket struct {
	ID              string
	TaskID          string
	BucketName      string
	TrailerOptionID *string
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

// BucketStatistics tallies terminal and in-flight task counts for one bucket.
type BucketStatistics struct {
	Active    int
	Completed int
	Failed    int
	Timeout   int
}

// Constraints narrow bucket selection.
type Constraints struct {
	RequiredBucket  string
	ExcludedBuckets []string
}

// Complexity classifies how demanding a task is expected to be. It
// feeds the bucket-selection bias rule alongside dependency count.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// dependencyBiasThreshold is the dependency count at or above which
// SelectBucket leans toward the next-longer bucket, per spec §4.I rule 4.
const dependencyBiasThreshold = 3

// BucketSelectionRequest is the full task shape SelectBucket reasons
// over: estimated duration plus the task's priority, complexity,
// resource requirements and dependencies. Only complexity and dependency
// count bias the choice toward a longer bucket; priority and resource
// requirements are not consulted.
type BucketSelectionRequest struct {
	EstimatedDurationMs  int64
	Priority             int
	Complexity           Complexity
	ResourceRequirements []string
	Dependencies         []string
	Constraints          Constraints
}

// BucketSelection is the result of SelectBucket, with a human-readable
// trail of why that bucket was chosen.
type BucketSelection struct {
	BucketName string
	Reasoning  []string
}

// TicketError reports an unknown, expired, or already-consumed resume
// ticket.
type TicketError struct {
	TicketID string
	Reason   string
}

func (e *TicketError) Error() string {
	return e.Reason
}

// UnknownBucketError reports a bucket name not present in the manager's
// configured set.
type UnknownBucketError struct {
	BucketName string
}

func (e *UnknownBucketError) Error() string {
	return "Unknown bucket: " + e.BucketName
}
