package timeframe

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var timeNow = time.Now

// Manager is a single-session, single-threaded-by-contract task
// scheduler: all mutations happen through its methods, which serialize
// on an internal mutex so it is also safe to drive from multiple
// goroutines within one process.
type Manager struct {
	mu            sync.Mutex
	buckets       map[string]TimeBucket
	bucketList    []TimeBucket
	activeTasks   map[string]TaskState
	resumeTickets map[string]ResumeTicket
	terminal      map[string]*BucketStatistics
	ticketSeq     uint64
}

// NewManager constructs a Manager over the given buckets, or the
// standard five if none are supplied.
func NewManager(buckets ...TimeBucket) *Manager {
	if len(buckets) == 0 {
		buckets = DefaultBuckets()
	}
	m := &Manager{
		buckets:       make(map[string]TimeBucket, len(buckets)),
		bucketList:    append([]TimeBucket(nil), buckets...),
		activeTasks:   make(map[string]TaskState),
		resumeTickets: make(map[string]ResumeTicket),
		terminal:      make(map[string]*BucketStatistics, len(buckets)),
	}
	for _, b := range buckets {
		m.buckets[b.Name] = b
		m.terminal[b.Name] = &BucketStatistics{}
	}
	return m
}

// SelectBucket picks a bucket for req using this manager's configured
// bucket set.
func (m *Manager) SelectBucket(req BucketSelectionRequest) (BucketSelection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return SelectBucket(m.bucketList, req)
}

// StartTask begins tracking taskId in bucketName, returning its initial
// state.
func (m *Manager) StartTask(taskID, bucketName string, metadata map[string]any) (TaskState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.buckets[bucketName]; !ok {
		return TaskState{}, &UnknownBucketError{BucketName: bucketName}
	}

	state := TaskState{
		TaskID:      taskID,
		BucketName:  bucketName,
		Status:      StatusRunning,
		StartTime:   timeNow(),
		Checkpoints: nil,
		Metadata:    metadata,
	}
	m.activeTasks[taskID] = state
	return state, nil
}

// applyTimeout checks whether state has overrun its bucket's window and,
// if so, marks it timed out. Must be called with m.mu held.
func (m *Manager) applyTimeout(state TaskState) TaskState {
	bucket := m.buckets[state.BucketName]
	if state.Status == StatusRunning && timeNow().Sub(state.StartTime).Milliseconds() > bucket.MaxDurationMs {
		state.Status = StatusTimeout
		m.recordTerminal(state.BucketName, StatusTimeout)
		delete(m.activeTasks, state.TaskID)
		return state
	}
	return state
}

func (m *Manager) recordTerminal(bucketName string, status TaskStatus) {
	stats, ok := m.terminal[bucketName]
	if !ok {
		stats = &BucketStatistics{}
		m.terminal[bucketName] = stats
	}
	switch status {
	case StatusCompleted:
		stats.Completed++
	case StatusFailed:
		stats.Failed++
	case StatusTimeout:
		stats.Timeout++
	}
}

// touch loads taskId's state, applying edge-triggered timeout detection,
// and reports whether it is still tracked. Must be called with m.mu held.
func (m *Manager) touch(taskID string) (TaskState, bool) {
	state, ok := m.activeTasks[taskID]
	if !ok {
		return TaskState{}, false
	}
	state = m.applyTimeout(state)
	if state.Status == StatusTimeout {
		return state, false
	}
	m.activeTasks[taskID] = state
	return state, true
}

// CompleteTask marks taskId completed and removes its tracked state.
func (m *Manager) CompleteTask(taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.touch(taskID)
	if !ok {
		return fmt.Errorf("task %q not found or timed out", taskID)
	}
	state.Status = StatusCompleted
	m.recordTerminal(state.BucketName, StatusCompleted)
	delete(m.activeTasks, taskID)
	return nil
}

// FailTask marks taskId failed and counts it in its bucket's statistics.
// The task's state itself is removed, not kept.
func (m *Manager) FailTask(taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.touch(taskID)
	if !ok {
		return fmt.Errorf("task %q not found or timed out", taskID)
	}
	state.Status = StatusFailed
	m.recordTerminal(state.BucketName, StatusFailed)
	delete(m.activeTasks, taskID)
	return nil
}

// PauseTask suspends a running task and issues a single-use resume
// ticket.
func (m *Manager) PauseTask(taskID string, trailerOptionID *string) (ResumeTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.touch(taskID)
	if !ok {
		return ResumeTicket{}, fmt.Errorf("task %q not found or timed out", taskID)
	}
	if state.Status != StatusRunning {
		return ResumeTicket{}, fmt.Errorf("task %q is not running", taskID)
	}

	bucket := m.buckets[state.BucketName]
	now := timeNow()
	m.ticketSeq++
	ticket := ResumeTicket{
		ID:              fmt.Sprintf("%s-%d-%s", taskID, m.ticketSeq, shortRandomSuffix()),
		TaskID:          taskID,
		BucketName:      state.BucketName,
		TrailerOptionID: trailerOptionID,
		CreatedAt:       now,
		ExpiresAt:       now.Add(time.Duration(bucket.MaxDurationMs) * time.Millisecond),
	}

	state.Status = StatusPaused
	m.activeTasks[taskID] = state
	m.resumeTickets[ticket.ID] = ticket
	return ticket, nil
}

// ResumeTask consumes ticketId, putting its task back into the running
// state with a fresh start time.
func (m *Manager) ResumeTask(ticketID string) (TaskState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ticket, ok := m.resumeTickets[ticketID]
	if !ok {
		return TaskState{}, &TicketError{TicketID: ticketID, Reason: "Resume ticket not found"}
	}
	if timeNow().After(ticket.ExpiresAt) {
		delete(m.resumeTickets, ticketID)
		return TaskState{}, &TicketError{TicketID: ticketID, Reason: "Resume ticket expired"}
	}

	state, ok := m.activeTasks[ticket.TaskID]
	if !ok {
		delete(m.resumeTickets, ticketID)
		return TaskState{}, &TicketError{TicketID: ticketID, Reason: "Resume ticket not found"}
	}

	state.Status = StatusRunning
	state.StartTime = timeNow()
	m.activeTasks[ticket.TaskID] = state
	delete(m.resumeTickets, ticketID)
	return state, nil
}

// GetActiveTasks returns the current in-flight task states.
func (m *Manager) GetActiveTasks() []TaskState {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]TaskState, 0, len(m.activeTasks))
	for taskID := range m.activeTasks {
		state, ok := m.touch(taskID)
		if ok {
			out = append(out, state)
		}
	}
	return out
}

// GetBucketStatistics reports per-bucket active/completed/failed/timeout
// counts.
func (m *Manager) GetBucketStatistics() map[string]BucketStatistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]BucketStatistics, len(m.buckets))
	for name, stats := range m.terminal {
		out[name] = *stats
	}
	for taskID := range m.activeTasks {
		touched, ok := m.touch(taskID)
		if !ok {
			continue
		}
		s := out[touched.BucketName]
		s.Active++
		out[touched.BucketName] = s
	}
	return out
}

// GetValidResumeTickets returns tickets that have not yet expired.
func (m *Manager) GetValidResumeTickets() []ResumeTicket {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := timeNow()
	out := make([]ResumeTicket, 0, len(m.resumeTickets))
	for _, t := range m.resumeTickets {
		if !now.After(t.ExpiresAt) {
			out = append(out, t)
		}
	}
	return out
}

// CleanupExpiredTickets removes every ticket past its expiry and returns
// how many were removed.
func (m *Manager) CleanupExpiredTickets() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := timeNow()
	removed := 0
	for id, t := range m.resumeTickets {
		if now.After(t.ExpiresAt) {
			delete(m.resumeTickets, id)
			removed++
		}
	}
	return removed
}

// shortRandomSuffix yields a lowercase alphanumeric tail for ticket IDs,
// derived from a UUID so the corpus's id-generation library does the
// randomness instead of a hand-rolled generator.
func shortRandomSuffix() string {
	id := uuid.New().String()
	return strings.ToLower(strings.ReplaceAll(id, "-", ""))[:8]
}
