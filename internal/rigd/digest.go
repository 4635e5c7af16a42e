package rigd

import "github.com/antigravity-dev/ember/internal/canon"

// computeCandidateSetDigest hashes the sorted strategy-tag multiset
// produced before ranking, so the digest is stable for identical world
// states regardless of enumeration order.
func computeCandidateSetDigest(candidates []enumeratedCandidate) (canon.Hash, error) {
	tags := sortedStrategyTags(candidates)
	out := make([]any, len(tags))
	for i, t := range tags {
		out[i] = t
	}
	return canon.HashValue(map[string]any{"candidateTags": out})
}
