// Package p03 implements the resource-slot temporal adapter: discrete
// bucketed time, slot availability search, immutable slot reservation,
// deadlock detection, and batch-operator preference. Every operation is
// a pure function over value types — no slot array is ever mutated in
// place.
package p03

import (
	"sort"

	"github.com/antigravity-dev/ember/internal/canon"
)

// TemporalState defines discrete time for one planning session.
type TemporalState struct {
	CurrentBucket   int
	HorizonBucket   int
	BucketSizeTicks int
}

// Slot is a reservable resource slot.
type Slot struct {
	ID            string
	Type          string
	ReadyAtBucket int
}

// Need is one outstanding resource requirement checked by CheckDeadlock.
type Need struct {
	Type string
}

// BlockedNeed names a Need that cannot be satisfied within the horizon.
type BlockedNeed struct {
	Type   string
	Detail string
}

// BatchOp is a static batch-operator table entry.
type BatchOp struct {
	ItemType string
	OpID     string
}

// ScheduleEntry is one entry in a computed schedule, used only for
// makespan computation here.
type ScheduleEntry struct {
	EndBucket int
}

// SortSlots returns a copy of slots ordered by (type asc, readyAtBucket
// asc, id asc) — the canonical form every identity hash is computed
// over.
func SortSlots(slots []Slot) []Slot {
	sorted := make([]Slot, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool { return slotLess(sorted[i], sorted[j]) })
	return sorted
}

func slotLess(a, b Slot) bool {
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	if a.ReadyAtBucket != b.ReadyAtBucket {
		return a.ReadyAtBucket < b.ReadyAtBucket
	}
	return a.ID < b.ID
}

// SlotSnapshotHash hashes the canonical (sorted) slot array, giving a
// stable identity for a point-in-time slot table.
func SlotSnapshotHash(slots []Slot) (canon.Hash, error) {
	sorted := SortSlots(slots)
	out := make([]any, len(sorted))
	for i, s := range sorted {
		out[i] = map[string]any{"id": s.ID, "type": s.Type, "readyAtBucket": s.ReadyAtBucket}
	}
	return canon.HashValue(out)
}

// OperatorSnapshotHash hashes a canonicalized batch-operator table.
func OperatorSnapshotHash(ops []BatchOp) (canon.Hash, error) {
	out := make([]any, len(ops))
	for i, op := range ops {
		out[i] = map[string]any{"itemType": op.ItemType, "opId": op.OpID}
	}
	return canon.HashValue(out)
}
