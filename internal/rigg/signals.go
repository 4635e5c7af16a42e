package rigg

import (
	"math"
	"sort"
)

// SignalsInput bundles the artifacts ComputeRigGSignals needs.
type SignalsInput[T any] struct {
	Plan               PartialOrderPlan[T]
	Linearization       LinearizationResult
	Feasibility         *FeasibilityResult // nil when feasibility was not checked
	CommutingPairs      []CommutingPair
	DegradedToRawSteps  bool
}

// ComputeRigGSignals computes the instrumentation record described in
// spec §3/§4.C: counts, ready-set statistics (mean and round-half-up
// p95), commuting-pair count, feasibility pass flag, per-type rejection
// counts, both digests, and the degradation flag.
func ComputeRigGSignals[T any](in SignalsInput[T]) RigGSignals {
	mean, p95 := readySetStats(in.Linearization.ReadySetSizes)

	signals := RigGSignals{
		NodeCount:           len(in.Plan.Nodes),
		EdgeCount:           len(in.Plan.Edges),
		ReadySetSizeMean:    mean,
		ReadySetSizeP95:     p95,
		CommutingPairCount:  len(in.CommutingPairs),
		PlanDigest:          in.Plan.PlanDigest,
		LinearizationDigest: in.Linearization.LinearizationDigest,
		DegradedToRawSteps:  in.DegradedToRawSteps,
	}

	if in.Feasibility != nil {
		signals.FeasibilityPassed = in.Feasibility.Passed
		signals.FeasibilityRejections = in.Feasibility.RejectionsByType
	} else {
		signals.FeasibilityPassed = true
		signals.FeasibilityRejections = map[string]int{}
	}

	return signals
}

func readySetStats(sizes []int) (mean, p95 float64) {
	if len(sizes) == 0 {
		return 0, 0
	}
	sum := 0
	for _, s := range sizes {
		sum += s
	}
	mean = float64(sum) / float64(len(sizes))

	sorted := append([]int(nil), sizes...)
	sort.Ints(sorted)

	// round-half-up p95: index = ceil(0.95 * n) - 1
	idx := int(math.Ceil(0.95*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	p95 = float64(sorted[idx])
	return mean, p95
}
