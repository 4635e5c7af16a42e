// Package bundle implements the solve-bundle pipeline: the
// input/output envelope attached to every solver invocation, its
// compatibility lint report, and the stable, content-addressed bundle
// ID that makes every solve auditable and replayable.
package bundle

import (
	"time"

	"github.com/antigravity-dev/ember/internal/canon"
)

// ObjectiveWeightsSource records whether objective weights were supplied
// by the caller or fell back to solver defaults.
type ObjectiveWeightsSource string

const (
	ObjectiveWeightsProvided ObjectiveWeightsSource = "provided"
	ObjectiveWeightsDefault  ObjectiveWeightsSource = "default"
)

// SearchStats carries the raw search counters every solve reports.
type SearchStats struct {
	TotalNodes         int   `json:"totalNodes"`
	DurationMs         int64 `json:"durationMs"`
	SolutionPathLength int   `json:"solutionPathLength"`
}

// SearchHealth is an optional per-solve health snapshot forwarded by the
// reasoner (e.g. heuristic-variance telemetry). Its shape is opaque to
// this package; it participates in hashing like any other field.
type SearchHealth map[string]any

// SterlingIdentity carries the external reasoner's identity fields.
// These are attached strictly AFTER bundleHash is computed and never
// participate in it — only BindingHash derives from them.
type SterlingIdentity struct {
	TraceBundleHash         string `json:"traceBundleHash,omitempty"`
	EngineCommitment        string `json:"engineCommitment,omitempty"`
	OperatorRegistryHash    string `json:"operatorRegistryHash,omitempty"`
	CompletenessDeclaration string `json:"completenessDeclaration,omitempty"`
}

// BundleInput is the input half of a SolveBundle.
type BundleInput struct {
	SolverID                string                 `json:"solverId"`
	ExecutionMode           string                 `json:"executionMode,omitempty"`
	ContractVersion         string                 `json:"contractVersion"`
	DefinitionHash          canon.Hash             `json:"definitionHash"`
	InitialStateHash        canon.Hash             `json:"initialStateHash"`
	GoalHash                canon.Hash             `json:"goalHash"`
	NearbyBlocksHash        canon.Hash             `json:"nearbyBlocksHash"`
	CodeVersion             string                 `json:"codeVersion"`
	TierMatrixVersion       string                 `json:"tierMatrixVersion,omitempty"`
	DefinitionCount         int                    `json:"definitionCount"`
	ObjectiveWeightsEffective map[string]float64   `json:"objectiveWeightsEffective"`
	ObjectiveWeightsSource    ObjectiveWeightsSource `json:"objectiveWeightsSource"`
	ObjectiveWeightsProvided  map[string]float64   `json:"objectiveWeightsProvided,omitempty"`
	ContextTokensInjected     []string             `json:"contextTokensInjected,omitempty"`
}

// RationaleBoundingConstraints describes the search-space bounds in
// force for a solve (maxNodes, objective weights actually applied).
type RationaleBoundingConstraints struct {
	MaxNodes          int                `json:"maxNodes"`
	ObjectiveWeights  map[string]float64 `json:"objectiveWeights"`
}

// RationaleSearchEffort summarizes how much search actually happened.
type RationaleSearchEffort struct {
	NodesExpanded     int     `json:"nodesExpanded"`
	BranchingEstimate float64 `json:"branchingEstimate"`
	PctSameH          float64 `json:"pctSameH"`
	HVariance         float64 `json:"hVariance"`
}

// RationaleSearchTermination describes how/why the search stopped and
// whether the stop looks degenerate.
type RationaleSearchTermination struct {
	TerminationReason  string   `json:"terminationReason"`
	DegeneracyDetected bool     `json:"degeneracyDetected"`
	DegeneracyReasons  []string `json:"degeneracyReasons,omitempty"`
}

// RationaleShapingEvidence carries the compat report that shaped this
// solve, if any.
type RationaleShapingEvidence struct {
	CompatReport *CompatReport `json:"compatReport,omitempty"`
}

// Rationale is produced only when RationaleContext is supplied to
// ComputeBundleOutput.
type Rationale struct {
	BoundingConstraints RationaleBoundingConstraints `json:"boundingConstraints"`
	SearchEffort        RationaleSearchEffort         `json:"searchEffort"`
	SearchTermination   RationaleSearchTermination    `json:"searchTermination"`
	ShapingEvidence     RationaleShapingEvidence       `json:"shapingEvidence"`
}

// BundleOutput is the output half of a SolveBundle.
type BundleOutput struct {
	PlanID            string            `json:"planId,omitempty"`
	Solved            bool              `json:"solved"`
	StepsDigest       canon.Hash        `json:"stepsDigest"`
	SearchStats       SearchStats       `json:"searchStats"`
	SearchHealth      SearchHealth      `json:"searchHealth,omitempty"`
	Rationale         *Rationale        `json:"rationale,omitempty"`
	SterlingIdentity  *SterlingIdentity `json:"sterlingIdentity,omitempty"`
	Error             string            `json:"error,omitempty"`
}

// CompatIssue is a single structured lint finding.
type CompatIssue struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Detail   string `json:"detail,omitempty"`
}

// CompatReport is the result of compat-linting a definitions array.
// Valid is a pure function of Issues (no severity == "error" issue).
type CompatReport struct {
	Valid           bool          `json:"valid"`
	Issues          []CompatIssue `json:"issues"`
	DefinitionCount int           `json:"definitionCount"`
	CheckedAt       time.Time     `json:"checkedAt"`
}

// SolveBundle is the content-addressed, immutable audit record of one
// solver invocation.
type SolveBundle struct {
	BundleID     string       `json:"bundleId"`
	BundleHash   canon.Hash   `json:"bundleHash"`
	Timestamp    time.Time    `json:"timestamp"`
	Input        BundleInput  `json:"input"`
	Output       BundleOutput `json:"output"`
	CompatReport CompatReport `json:"compatReport"`
}

// RationaleContext supplies the extra information ComputeBundleOutput
// needs to build a Rationale. A nil RationaleContext means the caller
// does not want rationale computed.
type RationaleContext struct {
	MaxNodes         int
	ObjectiveWeights map[string]float64
	CompatReport     *CompatReport
	NodesExpanded    int
	HValues          []float64 // observed heuristic values across expansion, for degeneracy detection
	TerminationReason string
}

// degeneracy thresholds, pinned here per spec §4.B.
const (
	pctSameHThreshold         = 0.5
	constantHeuristicMinNodes = 10
	branchingBlowupThreshold  = 8.0
)

// ComputeBundleOutput assembles a BundleOutput, optionally attaching a
// Rationale when rc is non-nil.
func ComputeBundleOutput(planID string, solved bool, steps []canon.Step, stats SearchStats, health SearchHealth, rc *RationaleContext) (BundleOutput, error) {
	digest, err := canon.HashSteps(steps)
	if err != nil {
		return BundleOutput{}, err
	}

	out := BundleOutput{
		PlanID:      planID,
		Solved:      solved,
		StepsDigest: digest,
		SearchStats: stats,
		SearchHealth: health,
	}

	if rc != nil {
		out.Rationale = buildRationale(stats, rc)
	}
	return out, nil
}

func buildRationale(stats SearchStats, rc *RationaleContext) *Rationale {
	pctSameH, hVariance, branchingEstimate := hStatistics(rc.HValues, rc.NodesExpanded)

	var reasons []string
	if pctSameH > pctSameHThreshold {
		reasons = append(reasons, "heuristic not discriminating")
	}
	if hVariance == 0 && rc.NodesExpanded > constantHeuristicMinNodes {
		reasons = append(reasons, "constant heuristic")
	}
	if branchingEstimate > branchingBlowupThreshold && rc.TerminationReason == "max_nodes" {
		reasons = append(reasons, "unguided blowup")
	}

	return &Rationale{
		BoundingConstraints: RationaleBoundingConstraints{
			MaxNodes:         rc.MaxNodes,
			ObjectiveWeights: rc.ObjectiveWeights,
		},
		SearchEffort: RationaleSearchEffort{
			NodesExpanded:     rc.NodesExpanded,
			BranchingEstimate: branchingEstimate,
			PctSameH:          pctSameH,
			HVariance:         hVariance,
		},
		SearchTermination: RationaleSearchTermination{
			TerminationReason:  rc.TerminationReason,
			DegeneracyDetected: len(reasons) > 0,
			DegeneracyReasons:  reasons,
		},
		ShapingEvidence: RationaleShapingEvidence{
			CompatReport: rc.CompatReport,
		},
	}
}

// hStatistics computes the fraction of repeated heuristic values, the
// population variance, and a branching-factor estimate from the ratio of
// expanded nodes to distinct heuristic plateaus. All three are pure
// functions of the observed H-value trace.
func hStatistics(values []float64, nodesExpanded int) (pctSameH, variance, branchingEstimate float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}

	counts := make(map[float64]int, len(values))
	var sum float64
	for _, v := range values {
		counts[v]++
		sum += v
	}
	mean := sum / float64(len(values))

	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	variance = sqDiff / float64(len(values))

	maxRepeat := 0
	for _, c := range counts {
		if c > maxRepeat {
			maxRepeat = c
		}
	}
	pctSameH = float64(maxRepeat) / float64(len(values))

	distinctPlateaus := len(counts)
	if distinctPlateaus > 0 && nodesExpanded > 0 {
		branchingEstimate = float64(nodesExpanded) / float64(distinctPlateaus)
	}
	return pctSameH, variance, branchingEstimate
}

// ComputeBundleInput assembles a BundleInput, hashing each component via
// internal/canon and deriving ObjectiveWeightsSource.
func ComputeBundleInput(
	solverID, executionMode, contractVersion string,
	defs []canon.Definition,
	inventory map[string]int,
	goal any,
	nearbyBlocks any,
	codeVersion, tierMatrixVersion string,
	objectiveWeightsProvided map[string]float64,
	defaultObjectiveWeights map[string]float64,
	contextTokensInjected []string,
) (BundleInput, error) {
	defHash, err := canon.HashDefinitions(defs)
	if err != nil {
		return BundleInput{}, err
	}
	invHash, err := canon.HashInventoryState(inventory)
	if err != nil {
		return BundleInput{}, err
	}
	goalHash, err := canon.HashGoal(goal)
	if err != nil {
		return BundleInput{}, err
	}
	blocksHash, err := canon.HashNearbyBlocks(nearbyBlocks)
	if err != nil {
		return BundleInput{}, err
	}

	effective := defaultObjectiveWeights
	source := ObjectiveWeightsDefault
	if len(objectiveWeightsProvided) > 0 {
		effective = objectiveWeightsProvided
		source = ObjectiveWeightsProvided
	}

	return BundleInput{
		SolverID:                  solverID,
		ExecutionMode:             executionMode,
		ContractVersion:           contractVersion,
		DefinitionHash:            defHash,
		InitialStateHash:          invHash,
		GoalHash:                  goalHash,
		NearbyBlocksHash:          blocksHash,
		CodeVersion:               codeVersion,
		TierMatrixVersion:         tierMatrixVersion,
		DefinitionCount:           len(defs),
		ObjectiveWeightsEffective: effective,
		ObjectiveWeightsSource:    source,
		ObjectiveWeightsProvided:  objectiveWeightsProvided,
		ContextTokensInjected:     contextTokensInjected,
	}, nil
}

// hashableOutput/hashableCompat strip nondeterministic fields before
// hashing, per spec: timestamps and external identity never participate
// in bundleHash.
type hashableOutput struct {
	PlanID       string       `json:"planId,omitempty"`
	Solved       bool         `json:"solved"`
	StepsDigest  canon.Hash   `json:"stepsDigest"`
	SearchStats  SearchStats  `json:"searchStats"`
	SearchHealth SearchHealth `json:"searchHealth,omitempty"`
	Rationale    *Rationale   `json:"rationale,omitempty"`
	Error        string       `json:"error,omitempty"`
}

type hashableCompat struct {
	Valid           bool          `json:"valid"`
	Issues          []CompatIssue `json:"issues"`
	DefinitionCount int           `json:"definitionCount"`
}

// CreateSolveBundle strips nondeterministic fields (timestamp,
// compatReport.checkedAt, output.sterlingIdentity) before hashing, then
// emits bundleId = "${solverId}:${bundleHash}".
func CreateSolveBundle(input BundleInput, output BundleOutput, compat CompatReport) (SolveBundle, error) {
	hashable := struct {
		Input  BundleInput    `json:"input"`
		Output hashableOutput `json:"output"`
		Compat hashableCompat `json:"compatReport"`
	}{
		Input: input,
		Output: hashableOutput{
			PlanID:       output.PlanID,
			Solved:       output.Solved,
			StepsDigest:  output.StepsDigest,
			SearchStats:  output.SearchStats,
			SearchHealth: output.SearchHealth,
			Rationale:    output.Rationale,
			Error:        output.Error,
		},
		Compat: hashableCompat{
			Valid:           compat.Valid,
			Issues:          compat.Issues,
			DefinitionCount: compat.DefinitionCount,
		},
	}

	h, err := canon.HashValue(hashable)
	if err != nil {
		return SolveBundle{}, err
	}

	return SolveBundle{
		BundleID:     input.SolverID + ":" + string(h),
		BundleHash:   h,
		Timestamp:    timeNow(),
		Input:        input,
		Output:       output,
		CompatReport: compat,
	}, nil
}

// timeNow is a var so tests can freeze it if ever needed; bundleHash
// never depends on it.
var timeNow = time.Now

// AttachSterlingIdentity appends an external identity record to a
// bundle's output post-hash. BundleHash is never recomputed. When the
// identity carries a TraceBundleHash, BindingHash joins CB bundle
// identity to the reasoner's trace via a domain-separated hash.
func AttachSterlingIdentity(b SolveBundle, identity *SterlingIdentity) (SolveBundle, string, error) {
	if identity == nil {
		return b, "", nil
	}
	b.Output.SterlingIdentity = identity

	var bindingHash string
	if identity.TraceBundleHash != "" {
		h, err := canon.HashValue("binding:v1:" + identity.TraceBundleHash + ":" + string(b.BundleHash))
		if err != nil {
			return b, "", err
		}
		bindingHash = string(h)
	}
	return b, bindingHash, nil
}

// LintCompat runs a caller-supplied lint function over a definitions
// array and wraps its findings into a CompatReport. Compat linting is
// domain-specific (callers know what "compatible" means for their
// definitions) — this helper only owns the structural contract: valid
// is true iff no issue has severity "error", and definitions are never
// mutated.
func LintCompat(defs []canon.Definition, lint func([]canon.Definition) []CompatIssue) CompatReport {
	issues := lint(defs)
	valid := true
	for _, iss := range issues {
		if iss.Severity == "error" {
			valid = false
			break
		}
	}
	return CompatReport{
		Valid:           valid,
		Issues:          issues,
		DefinitionCount: len(defs),
		CheckedAt:       timeNow(),
	}
}
