package service

import (
	"sync"
	"time"
)

// DeletionScheduler holds deferred deletions keyed by message index. Arming
// is idempotent per index, due entries stay armed until explicitly cleared,
// and all operations are safe under concurrent poll and command activity.
// Deletion is at-least-once: a failed router call simply leaves the entry
// armed for a later tick.
type DeletionScheduler struct {
	mu      sync.Mutex
	pending map[string]time.Time
}

// NewDeletionScheduler creates an empty scheduler.
func NewDeletionScheduler() *DeletionScheduler {
	return &DeletionScheduler{pending: make(map[string]time.Time)}
}

// Arm schedules deletion of index at due. A second Arm for an index that is
// already pending is a no-op, so re-sighting a message never extends its
// retention.
func (s *DeletionScheduler) Arm(index string, due time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[index]; ok {
		return
	}
	s.pending[index] = due
}

// Due returns every index whose due time is at or before now. The entries
// stay armed; the caller clears each one after the router confirms the
// deletion.
func (s *DeletionScheduler) Due(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []string
	for index, at := range s.pending {
		if !at.After(now) {
			due = append(due, index)
		}
	}
	return due
}

// Clear removes a pending deletion, typically after the router confirmed
// it. Clearing an unknown index is a no-op, which makes the race between an
// immediate delete command and a scheduler firing harmless.
func (s *DeletionScheduler) Clear(index string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, index)
}

// Pending reports whether a deletion is armed for index.
func (s *DeletionScheduler) Pending(index string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.pending[index]
	return ok
}

// Len returns the number of armed deletions.
func (s *DeletionScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending)
}
