// Package rigg implements the partial-order plan subsystem ("Rig G"):
// DAG construction from domain modules, deterministic topological
// linearization, feasibility checking against declared constraints,
// commuting-pair detection, and the execution advisor that gates
// plan proceed/replan decisions.
//
// Every algorithm here is a pure function over value types — no node or
// edge is ever mutated in place, and no package-level state is held.
// This mirrors the single-threaded cooperative scheduling model the
// planning core as a whole is built around.
package rigg

import "github.com/antigravity-dev/ember/internal/canon"

// ConstraintTag discriminates PlanEdge relationships. "support" is
// declared in the data model but deferred — no producer in this
// package emits it yet.
type ConstraintTag string

const (
	ConstraintDependency  ConstraintTag = "dependency"
	ConstraintReachability ConstraintTag = "reachability"
	ConstraintSupport     ConstraintTag = "support"
)

// PlanNode is an atomic unit of work. ID is the content hash of
// {schemaVersion, moduleId, moduleType}; ConflictKeys holds opaque
// strings such that any two nodes sharing a key are non-commuting even
// without a precedence edge between them.
type PlanNode[T any] struct {
	ID           canon.Hash
	ModuleID     string
	ModuleType   string
	Data         T
	ConflictKeys map[string]struct{}
}

// PlanEdge is a directed precedence edge between two node IDs.
type PlanEdge struct {
	From       canon.Hash
	To         canon.Hash
	Constraint ConstraintTag
}

// PartialOrderPlan is the DAG produced by BuildDagFromModules.
type PartialOrderPlan[T any] struct {
	SchemaVersion int
	Nodes         []PlanNode[T]
	Edges         []PlanEdge
	PlanDigest    canon.Hash
}

// NodeByID returns the node with the given ID, if present. Plans never
// alias caller state, so this is a safe lookup helper rather than a
// pointer into shared memory.
func (p *PartialOrderPlan[T]) NodeByID(id canon.Hash) (PlanNode[T], bool) {
	for _, n := range p.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return PlanNode[T]{}, false
}

// Module is the caller-supplied domain-operator shape BuildDagFromModules
// consumes: one module per planned unit of work, with its declared
// dependencies and reachability facts.
type Module struct {
	ModuleID     string
	ModuleType   string
	DependsOn    []string // other ModuleIDs this module depends on
	MaxDistance  *int     // reachability bound, if this module carries one
	CurrentDist  *int     // observed distance, if known
}

// PlanConstraint is the tagged union consumed by CheckFeasibility.
type PlanConstraint interface {
	isPlanConstraint()
}

type DependencyConstraint struct {
	DependentModuleID string
	RequiredModuleID  string
}

func (DependencyConstraint) isPlanConstraint() {}

type SupportConstraint struct {
	DependentModuleID string
	SupportModuleID   string
}

func (SupportConstraint) isPlanConstraint() {}

type ReachabilityConstraint struct {
	ModuleID        string
	MaxDistance     int
	CurrentDistance *int // nil means unknown
}

func (ReachabilityConstraint) isPlanConstraint() {}

// LinearizationResult is the output of Linearize.
type LinearizationResult struct {
	Order                []canon.Hash
	ReadySetSizes        []int
	LinearizationDigest  canon.Hash
}

// FeasibilityResult is the success payload of CheckFeasibility.
type FeasibilityResult struct {
	Passed              bool
	RejectionsByType    map[string]int
	FirstViolationReason string
	FirstViolationDetail string
}

// RigGSignals is the instrumentation record computed after a plan has
// been built, linearized, and (optionally) feasibility-checked.
type RigGSignals struct {
	NodeCount            int
	EdgeCount            int
	ReadySetSizeMean     float64
	ReadySetSizeP95      float64
	CommutingPairCount   int
	FeasibilityPassed    bool
	FeasibilityRejections map[string]int
	PlanDigest           canon.Hash
	LinearizationDigest  canon.Hash
	DegradedToRawSteps   bool
}

// CommutingPair is an unordered pair of node IDs with no precedence path
// between them in either direction and disjoint conflict keys.
type CommutingPair struct {
	NodeA canon.Hash
	NodeB canon.Hash
}

// ---- Planning-decision envelope (§6) ----

// Decision is the sealed tagged union every planning step returns:
// {kind: ok, value} | {kind: blocked, reason, detail} | {kind: error, reason, detail}.
type Decision[T any] struct {
	kind   decisionKind
	value  T
	reason string
	detail string
}

type decisionKind int

const (
	kindOk decisionKind = iota
	kindBlocked
	kindError
)

func Ok[T any](value T) Decision[T] { return Decision[T]{kind: kindOk, value: value} }

func Blocked[T any](reason, detail string) Decision[T] {
	return Decision[T]{kind: kindBlocked, reason: reason, detail: detail}
}

// BlockedValue is Blocked but also carries a value — used where a
// decision is blocked yet callers still need the partial result (e.g.
// FeasibilityResult's per-type rejection counts feed RigGSignals even
// when the overall decision is blocked).
func BlockedValue[T any](value T, reason, detail string) Decision[T] {
	return Decision[T]{kind: kindBlocked, value: value, reason: reason, detail: detail}
}

func Err[T any](reason, detail string) Decision[T] {
	return Decision[T]{kind: kindError, reason: reason, detail: detail}
}

func (d Decision[T]) IsOk() bool      { return d.kind == kindOk }
func (d Decision[T]) IsBlocked() bool { return d.kind == kindBlocked }
func (d Decision[T]) IsError() bool   { return d.kind == kindError }
func (d Decision[T]) Value() T        { return d.value }
func (d Decision[T]) Reason() string  { return d.reason }
func (d Decision[T]) Detail() string  { return d.detail }

// Reason codes, per spec §6.
const (
	ReasonBoundExceeded           = "bound_exceeded"
	ReasonInfeasibleDependency    = "infeasible_dependency"
	ReasonInfeasibleReachability  = "infeasible_reachability"
	ReasonCycleDetected           = "cycle_detected"
	ReasonPlannerUnconfigured     = "planner_unconfigured"
	ReasonMassNotConserved        = "mass_not_conserved"
)

// MaxDAGNodes bounds BuildDagFromModules input size, per spec §4.C.
const MaxDAGNodes = 200
