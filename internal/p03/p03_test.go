package p03

import "testing"

func TestFindAvailableSlotTieBreakByID(t *testing.T) {
	slots := []Slot{
		{ID: "b", Type: "furnace", ReadyAtBucket: 5},
		{ID: "a", Type: "furnace", ReadyAtBucket: 5},
		{ID: "c", Type: "furnace", ReadyAtBucket: 10},
	}
	slot, ok := FindAvailableSlot(slots, "furnace", 0, 20)
	if !ok {
		t.Fatal("expected a slot")
	}
	if slot.ID != "a" {
		t.Errorf("expected tie-break to pick lowest id, got %s", slot.ID)
	}
}

func TestFindAvailableSlotOutsideWaitWindow(t *testing.T) {
	slots := []Slot{{ID: "a", Type: "furnace", ReadyAtBucket: 50}}
	_, ok := FindAvailableSlot(slots, "furnace", 0, 10)
	if ok {
		t.Fatal("expected no slot within wait window")
	}
}

func TestReserveSlotDoesNotMutateOriginal(t *testing.T) {
	original := []Slot{{ID: "a", Type: "furnace", ReadyAtBucket: 5}}
	updated := ReserveSlot(original, "a", 20, 0)
	if original[0].ReadyAtBucket != 5 {
		t.Fatal("expected original slots untouched")
	}
	if updated[0].ReadyAtBucket != 20 {
		t.Fatal("expected updated slot to carry new readiness")
	}
}

func TestCheckDeadlockNoSlotOfType(t *testing.T) {
	state := TemporalState{CurrentBucket: 0, HorizonBucket: 10}
	needs := []Need{{Type: "anvil"}}
	blocked := CheckDeadlock(needs, state, nil)
	if len(blocked) != 1 || blocked[0].Type != "anvil" {
		t.Fatalf("expected anvil to be blocked, got %v", blocked)
	}
}

func TestCheckDeadlockSlotBeyondHorizon(t *testing.T) {
	state := TemporalState{CurrentBucket: 0, HorizonBucket: 5}
	needs := []Need{{Type: "furnace"}}
	slots := []Slot{{ID: "a", Type: "furnace", ReadyAtBucket: 100}}
	blocked := CheckDeadlock(needs, state, slots)
	if len(blocked) != 1 {
		t.Fatalf("expected blocked, got %v", blocked)
	}
}

func TestCheckDeadlockSatisfiable(t *testing.T) {
	state := TemporalState{CurrentBucket: 0, HorizonBucket: 10}
	needs := []Need{{Type: "furnace"}}
	slots := []Slot{{ID: "a", Type: "furnace", ReadyAtBucket: 8}}
	blocked := CheckDeadlock(needs, state, slots)
	if len(blocked) != 0 {
		t.Fatalf("expected no deadlock, got %v", blocked)
	}
}

func TestPreferBatchAboveThreshold(t *testing.T) {
	ops := []BatchOp{{ItemType: "cobblestone", OpID: "batch_smelt"}}
	op, ok := PreferBatch("cobblestone", 10, ops, 5)
	if !ok || op.OpID != "batch_smelt" {
		t.Fatalf("expected batch op selected, got %v %v", op, ok)
	}
}

func TestPreferBatchBelowThreshold(t *testing.T) {
	ops := []BatchOp{{ItemType: "cobblestone", OpID: "batch_smelt"}}
	_, ok := PreferBatch("cobblestone", 2, ops, 5)
	if ok {
		t.Fatal("expected no batch op below threshold")
	}
}

func TestComputeMakespanEmpty(t *testing.T) {
	if ComputeMakespan(nil) != 0 {
		t.Fatal("expected 0 for empty schedule")
	}
}

func TestComputeMakespanMax(t *testing.T) {
	schedule := []ScheduleEntry{{EndBucket: 3}, {EndBucket: 9}, {EndBucket: 5}}
	if ComputeMakespan(schedule) != 9 {
		t.Fatal("expected max endBucket")
	}
}

func TestSortSlotsCanonicalOrder(t *testing.T) {
	slots := []Slot{
		{ID: "z", Type: "furnace", ReadyAtBucket: 1},
		{ID: "a", Type: "anvil", ReadyAtBucket: 9},
		{ID: "b", Type: "anvil", ReadyAtBucket: 3},
	}
	sorted := SortSlots(slots)
	if sorted[0].Type != "anvil" || sorted[0].ID != "b" {
		t.Errorf("expected anvil/b first, got %+v", sorted[0])
	}
	if sorted[1].Type != "anvil" || sorted[1].ID != "a" {
		t.Errorf("expected anvil/a second, got %+v", sorted[1])
	}
	if sorted[2].Type != "furnace" {
		t.Errorf("expected furnace last, got %+v", sorted[2])
	}
}

func TestSlotSnapshotHashStable(t *testing.T) {
	slots := []Slot{{ID: "a", Type: "furnace", ReadyAtBucket: 5}}
	h1, err := SlotSnapshotHash(slots)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := SlotSnapshotHash(slots)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatal("expected stable snapshot hash")
	}
}
