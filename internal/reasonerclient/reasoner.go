// Package reasonerclient defines the capability interface the planning
// core uses to reach the external reasoner, plus the wire shapes that
// cross that boundary. Concrete adapters (an in-memory fake for tests,
// a Docker sidecar adapter for production) live in subpackages so this
// package itself stays free of transport concerns.
package reasonerclient

import (
	"context"

	"github.com/antigravity-dev/ember/internal/canon"
)

// Declaration is the domain declaration a solver registers before it can
// dispatch solves through the reasoner.
type Declaration struct {
	DeclarationVersion  int
	SolverID            string
	ContractVersion     string
	ImplementsPrimitives []string
	ConsumesFields      []string
	ProducesFields      []string
}

// RegisterResult is the outcome of RegisterDomainDeclaration.
type RegisterResult struct {
	Success bool
	Error   string
}

// SolvePayload is the wire shape sent to the reasoner's solve command.
type SolvePayload struct {
	Command         string // "solve" or "report_episode"
	Domain          string
	ContractVersion string
	ExecutionMode   string
	SolverID        string
	Inventory       map[string]int
	Goal            map[string]any
	NearbyBlocks    []string
	Rules           []canon.Definition
	MaxNodes        int
	UseLearning     bool

	// report_episode fields
	Item          string
	Strategy      string
	ContextToken  string
	Success       bool
	PlanID        string
	Digest        canon.Hash
}

// StepEvent is a single progress callback the reasoner may emit while
// solving, before the final SolveResult.
type StepEvent struct {
	StepIndex int
	ActionID  string
	Detail    string
}

// SolveResultMetrics carries optional search instrumentation and
// reasoner identity fields surfaced alongside a solve result.
type SolveResultMetrics struct {
	SearchHealth            map[string]any
	TraceBundleHash         string
	EngineCommitment        string
	OperatorRegistryHash    string
	CompletenessDeclaration string
}

// SolveResult is the outcome of a Solve call.
type SolveResult struct {
	SolutionFound   bool
	SolutionPath    []string
	DiscoveredNodes int
	SearchEdges     int
	Metrics         *SolveResultMetrics
	DurationMs      int64
}

// Reasoner is the capability interface every component that dispatches
// to the external reasoner depends on. Implementations may model the
// underlying call as synchronous-with-timeout, a future, or message
// passing; callers must not assume a specific scheduler.
type Reasoner interface {
	IsAvailable(ctx context.Context) bool
	ConnectionNonce() uint64
	Initialize(ctx context.Context) error
	Destroy(ctx context.Context) error
	RegisterDomainDeclaration(ctx context.Context, decl Declaration, digest canon.Hash) (RegisterResult, error)
	Solve(ctx context.Context, payload SolvePayload, onStep func(StepEvent)) (SolveResult, error)
}
