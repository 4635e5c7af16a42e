package timeframe

import (
	"regexp"
	"testing"
	"time"
)

func withFrozenClock(t *testing.T, start time.Time) *time.Time {
	t.Helper()
	cur := start
	orig := timeNow
	timeNow = func() time.Time { return cur }
	t.Cleanup(func() { timeNow = orig })
	return &cur
}

func TestSelectBucketRequiredConstraint(t *testing.T) {
	sel, err := SelectBucket(DefaultBuckets(), BucketSelectionRequest{
		EstimatedDurationMs: 1_000_000,
		Constraints:         Constraints{RequiredBucket: "long"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.BucketName != "long" {
		t.Fatalf("expected long, got %s", sel.BucketName)
	}
	if sel.Reasoning[0] != "Required bucket constraint: long" {
		t.Fatalf("unexpected reasoning: %v", sel.Reasoning)
	}
}

func TestSelectBucketExcludedBuckets(t *testing.T) {
	sel, err := SelectBucket(DefaultBuckets(), BucketSelectionRequest{
		EstimatedDurationMs: 20_000,
		Constraints:         Constraints{ExcludedBuckets: []string{"tactical"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.BucketName != "short" {
		t.Fatalf("expected short after excluding tactical, got %s", sel.BucketName)
	}
}

func TestSelectBucketShortestSufficient(t *testing.T) {
	sel, err := SelectBucket(DefaultBuckets(), BucketSelectionRequest{EstimatedDurationMs: 10_000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.BucketName != "tactical" {
		t.Fatalf("expected tactical, got %s", sel.BucketName)
	}
}

func TestSelectBucketBiasedByComplexity(t *testing.T) {
	sel, err := SelectBucket(DefaultBuckets(), BucketSelectionRequest{
		EstimatedDurationMs: 10_000,
		Complexity:          ComplexityHigh,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.BucketName != "short" {
		t.Fatalf("expected bias to short given high complexity, got %s", sel.BucketName)
	}
	if sel.Reasoning[len(sel.Reasoning)-1] != "Biased to longer bucket short: complexity high" {
		t.Fatalf("expected bias reasoning, got %v", sel.Reasoning)
	}
}

func TestSelectBucketBiasedByDependencyCount(t *testing.T) {
	sel, err := SelectBucket(DefaultBuckets(), BucketSelectionRequest{
		EstimatedDurationMs: 10_000,
		Dependencies:        []string{"a", "b", "c"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.BucketName != "short" {
		t.Fatalf("expected bias to short given 3 dependencies, got %s", sel.BucketName)
	}
}

func TestSelectBucketBiasNeverExceedsLongestBucket(t *testing.T) {
	sel, err := SelectBucket(DefaultBuckets(), BucketSelectionRequest{
		EstimatedDurationMs: 999_999_999,
		Complexity:          ComplexityHigh,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.BucketName != "expedition" {
		t.Fatalf("expected expedition to remain the ceiling, got %s", sel.BucketName)
	}
}

func TestSelectBucketFallsBackToLongest(t *testing.T) {
	sel, err := SelectBucket(DefaultBuckets(), BucketSelectionRequest{EstimatedDurationMs: 999_999_999})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.BucketName != "expedition" {
		t.Fatalf("expected expedition fallback, got %s", sel.BucketName)
	}
	if sel.Reasoning[len(sel.Reasoning)-1] != "Using fallback bucket: expedition" {
		t.Fatalf("expected fallback reasoning, got %v", sel.Reasoning)
	}
}

func TestStartTaskUnknownBucket(t *testing.T) {
	m := NewManager()
	_, err := m.StartTask("t1", "nonexistent", nil)
	if err == nil || err.Error() != "Unknown bucket: nonexistent" {
		t.Fatalf("expected unknown bucket error, got %v", err)
	}
}

func TestStartTaskAndComplete(t *testing.T) {
	m := NewManager()
	_, err := m.StartTask("t1", "tactical", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.GetActiveTasks()) != 1 {
		t.Fatal("expected one active task")
	}
	if err := m.CompleteTask("t1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.GetActiveTasks()) != 0 {
		t.Fatal("expected task removed after completion")
	}
	stats := m.GetBucketStatistics()
	if stats["tactical"].Completed != 1 {
		t.Fatalf("expected one completed in tactical, got %+v", stats["tactical"])
	}
}

func TestPauseResumeTicketLifecycle(t *testing.T) {
	cur := withFrozenClock(t, time.Unix(1000, 0))
	m := NewManager()

	if _, err := m.StartTask("t", "short", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ticket, err := m.PauseTask("t", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pattern := regexp.MustCompile(`^t-\d+-[a-z0-9]+$`)
	if !pattern.MatchString(ticket.ID) {
		t.Fatalf("ticket id %q does not match t-\\d+-[a-z0-9]+", ticket.ID)
	}

	active := m.GetActiveTasks()
	if len(active) != 1 || active[0].Status != StatusPaused {
		t.Fatalf("expected task paused, got %+v", active)
	}

	*cur = cur.Add(time.Second)
	resumed, err := m.ResumeTask(ticket.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resumed.Status != StatusRunning {
		t.Fatalf("expected running after resume, got %s", resumed.Status)
	}
	if resumed.StartTime.Before(*cur) {
		t.Fatal("expected startTime to advance on resume")
	}

	for _, vt := range m.GetValidResumeTickets() {
		if vt.ID == ticket.ID {
			t.Fatal("expected consumed ticket to no longer be valid")
		}
	}

	_, err = m.ResumeTask(ticket.ID)
	if err == nil || err.Error() != "Resume ticket not found" {
		t.Fatalf("expected 'Resume ticket not found', got %v", err)
	}
}

func TestResumeExpiredTicket(t *testing.T) {
	cur := withFrozenClock(t, time.Unix(1000, 0))
	m := NewManager(TimeBucket{Name: "tactical", MaxDurationMs: 1000, Priority: 5})

	if _, err := m.StartTask("t2", "tactical", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ticket, err := m.PauseTask("t2", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	*cur = cur.Add(2 * time.Second)
	_, err = m.ResumeTask(ticket.ID)
	if err == nil || err.Error() != "Resume ticket expired" {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestTimeoutEdgeTriggeredOnNextTouch(t *testing.T) {
	cur := withFrozenClock(t, time.Unix(1000, 0))
	m := NewManager(TimeBucket{Name: "tactical", MaxDurationMs: 500, Priority: 5})

	if _, err := m.StartTask("t3", "tactical", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	*cur = cur.Add(time.Second)
	// No background reaper: the task only flips to timeout when touched.
	active := m.GetActiveTasks()
	if len(active) != 0 {
		t.Fatal("expected overrun task removed from active set on touch")
	}
	stats := m.GetBucketStatistics()
	if stats["tactical"].Timeout != 1 {
		t.Fatalf("expected one timeout recorded, got %+v", stats["tactical"])
	}
}

func TestCleanupExpiredTickets(t *testing.T) {
	cur := withFrozenClock(t, time.Unix(1000, 0))
	m := NewManager(TimeBucket{Name: "tactical", MaxDurationMs: 1000, Priority: 5})

	m.StartTask("t4", "tactical", nil)
	ticket, _ := m.PauseTask("t4", nil)

	*cur = cur.Add(2 * time.Second)
	removed := m.CleanupExpiredTickets()
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	for _, vt := range m.GetValidResumeTickets() {
		if vt.ID == ticket.ID {
			t.Fatal("expected ticket gone after cleanup")
		}
	}
}

func TestPauseRequiresRunningStatus(t *testing.T) {
	m := NewManager()
	m.StartTask("t5", "tactical", nil)
	m.CompleteTask("t5")

	_, err := m.PauseTask("t5", nil)
	if err == nil {
		t.Fatal("expected error pausing a task that is not tracked anymore")
	}
}
