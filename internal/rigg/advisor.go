package rigg

import (
	"fmt"
	"sort"
	"strings"
)

// CurrentVersion is the advisor's expected metadata version. Any other
// version on AdviceMeta.Version fails closed.
const CurrentVersion = 1

// AdviceMeta is the input to AdviseExecution.
type AdviceMeta struct {
	Version        int
	Signals        RigGSignals
	CommutingPairs []CommutingPair
}

// Advice is the execution advisor's output: whether to proceed, the
// suggested parallelism, reorderable pairs forwarded verbatim from the
// commuting-pair detector, and whether a replan is warranted.
type Advice struct {
	ShouldProceed          bool
	BlockReason            string
	SuggestedParallelism   int
	ReorderableStepPairs   []CommutingPair
	ShouldReplan           bool
	ReplanReason           string
}

// AdviseExecution gates plan proceed/replan decisions. It fails closed:
// unknown metadata versions and failed feasibility both block and
// request a replan.
func AdviseExecution(meta AdviceMeta) Advice {
	if meta.Version != CurrentVersion {
		return Advice{
			ShouldProceed:        false,
			BlockReason:          fmt.Sprintf("Unknown rigG metadata version: %d (expected %d)", meta.Version, CurrentVersion),
			SuggestedParallelism: 1,
			ReorderableStepPairs: nil,
			ShouldReplan:         true,
			ReplanReason:         fmt.Sprintf("Unknown rigG metadata version: %d", meta.Version),
		}
	}

	if !meta.Signals.FeasibilityPassed {
		reason := "feasibility failed: " + joinedRejectionTypes(meta.Signals.FeasibilityRejections)
		return Advice{
			ShouldProceed:        false,
			BlockReason:          reason,
			SuggestedParallelism: 1,
			ReorderableStepPairs: nil,
			ShouldReplan:         true,
			ReplanReason:         reason,
		}
	}

	return Advice{
		ShouldProceed:        true,
		SuggestedParallelism: clamp(int(meta.Signals.ReadySetSizeMean), 1, 3),
		ReorderableStepPairs: meta.CommutingPairs,
		ShouldReplan:         false,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func joinedRejectionTypes(rejections map[string]int) string {
	keys := make([]string, 0, len(rejections))
	for k := range rejections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
