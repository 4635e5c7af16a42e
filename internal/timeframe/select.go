package timeframe

import (
	"fmt"
	"sort"
	"strings"
)

// SelectBucket chooses a bucket for req, applying constraints and
// recording the reasoning trail that led to the choice. It follows
// spec §4.I's four-rule algorithm: an explicit required-bucket
// constraint short-circuits everything else (rule 1); exclusions are
// removed before the shortest-sufficient search (rule 2); the shortest
// bucket that fits, or the longest as a fallback, is picked (rule 3);
// complex or heavily-dependent work is then biased toward the next
// longer bucket (rule 4).
func SelectBucket(buckets []TimeBucket, req BucketSelectionRequest) (BucketSelection, error) {
	var reasoning []string
	constraints := req.Constraints

	if constraints.RequiredBucket != "" {
		for _, b := range buckets {
			if b.Name == constraints.RequiredBucket {
				reasoning = append(reasoning, fmt.Sprintf("Required bucket constraint: %s", b.Name))
				return BucketSelection{BucketName: b.Name, Reasoning: reasoning}, nil
			}
		}
		return BucketSelection{}, &UnknownBucketError{BucketName: constraints.RequiredBucket}
	}

	remaining := make([]TimeBucket, 0, len(buckets))
	excluded := map[string]struct{}{}
	for _, name := range constraints.ExcludedBuckets {
		excluded[name] = struct{}{}
	}
	for _, b := range buckets {
		if _, skip := excluded[b.Name]; skip {
			continue
		}
		remaining = append(remaining, b)
	}
	if len(constraints.ExcludedBuckets) > 0 {
		reasoning = append(reasoning, fmt.Sprintf("Excluded buckets: %s", strings.Join(constraints.ExcludedBuckets, ", ")))
	}

	if len(remaining) == 0 {
		return BucketSelection{}, fmt.Errorf("no bucket remains after exclusions")
	}

	sorted := append([]TimeBucket(nil), remaining...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MaxDurationMs < sorted[j].MaxDurationMs })

	chosen := -1
	for i, b := range sorted {
		if b.MaxDurationMs >= req.EstimatedDurationMs {
			chosen = i
			reasoning = append(reasoning, fmt.Sprintf("Selected shortest sufficient bucket: %s", b.Name))
			break
		}
	}
	if chosen == -1 {
		chosen = len(sorted) - 1
		reasoning = append(reasoning, fmt.Sprintf("Using fallback bucket: %s", sorted[chosen].Name))
	}

	if reason, ok := biasReason(req); ok && chosen < len(sorted)-1 {
		chosen++
		reasoning = append(reasoning, fmt.Sprintf("Biased to longer bucket %s: %s", sorted[chosen].Name, reason))
	}

	return BucketSelection{BucketName: sorted[chosen].Name, Reasoning: reasoning}, nil
}

// biasReason reports whether req's complexity or dependency count
// should lean bucket selection toward the next longer window, per
// spec §4.I rule 4, and names which signal triggered it.
func biasReason(req BucketSelectionRequest) (string, bool) {
	switch {
	case req.Complexity == ComplexityHigh:
		return "complexity high", true
	case len(req.Dependencies) >= dependencyBiasThreshold:
		return fmt.Sprintf("%d dependencies", len(req.Dependencies)), true
	default:
		return "", false
	}
}
