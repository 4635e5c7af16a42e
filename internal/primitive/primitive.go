// Package primitive defines the qualified primitive-ID namespace shared
// across solver declarations: capability-block IDs (CB-Pxx) and
// strategy IDs (ST-Pxx), plus the engine-dependency map between them.
package primitive

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Namespace distinguishes a capability-block primitive from a strategy
// primitive.
type Namespace string

const (
	Capability Namespace = "CB"
	Strategy   Namespace = "ST"
)

// qualifiedPattern matches exactly CB-Pnn or ST-Pnn with a two-digit nn.
var qualifiedPattern = regexp.MustCompile(`^(CB|ST)-P\d{2}$`)

// MaxCapabilityPrimitive and MaxStrategyPrimitive bound the recognized
// numeric suffixes for each namespace.
const (
	MaxCapabilityPrimitive = 21
	MaxStrategyPrimitive   = 5
)

// IsQualifiedPrimitiveID reports whether id is a recognized, correctly
// formed primitive ID: CB-P01..CB-P21 or ST-P01..ST-P05.
func IsQualifiedPrimitiveID(id string) bool {
	m := qualifiedPattern.FindStringSubmatch(id)
	if m == nil {
		return false
	}
	n := 0
	fmt.Sscanf(id[len(m[1])+2:], "%d", &n)
	switch Namespace(m[1]) {
	case Capability:
		return n >= 1 && n <= MaxCapabilityPrimitive
	case Strategy:
		return n >= 1 && n <= MaxStrategyPrimitive
	default:
		return false
	}
}

// AssertQualifiedPrimitiveIDs returns an error naming every id in ids
// that is not a qualified primitive ID. The message names both
// namespaces so a caller can see the expected shape at a glance.
func AssertQualifiedPrimitiveIDs(ids []string) error {
	var bad []string
	for _, id := range ids {
		if !IsQualifiedPrimitiveID(id) {
			bad = append(bad, id)
		}
	}
	if len(bad) == 0 {
		return nil
	}
	sort.Strings(bad)
	return fmt.Errorf("not qualified primitive IDs (expected CB-P01..CB-P%02d or ST-P01..ST-P%02d): %s",
		MaxCapabilityPrimitive, MaxStrategyPrimitive, strings.Join(bad, ", "))
}

// CBRequiresST declares which strategy primitives a capability-block
// primitive's engine depends on. Only capability primitives that
// actually delegate to an acquisition strategy at runtime carry an
// entry; every other CB-Pxx has no ST dependency.
var CBRequiresST = map[string][]string{
	"CB-P04": {"ST-P01", "ST-P02", "ST-P03", "ST-P04", "ST-P05"}, // acquisition dispatch touches all five strategies
	"CB-P05": {"ST-P02"},                                        // crafting subsolver delegation
	"CB-P06": {"ST-P01"},                                        // mining route planning
}

// GetEngineDependencies returns the strategy primitives id's engine
// depends on, or an empty slice if it has none.
func GetEngineDependencies(id string) []string {
	deps, ok := CBRequiresST[id]
	if !ok {
		return nil
	}
	return append([]string(nil), deps...)
}
