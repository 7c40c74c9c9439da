package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeletionScheduler_DueNotBefore(t *testing.T) {
	s := NewDeletionScheduler()
	base := time.Date(2023, 1, 5, 12, 0, 0, 0, time.UTC)

	s.Arm("4", base.Add(300*time.Second))

	assert.Empty(t, s.Due(base))
	assert.Empty(t, s.Due(base.Add(299*time.Second)))
	assert.Equal(t, []string{"4"}, s.Due(base.Add(300*time.Second)))
	assert.Equal(t, []string{"4"}, s.Due(base.Add(time.Hour)))
}

func TestDeletionScheduler_ArmIsIdempotent(t *testing.T) {
	s := NewDeletionScheduler()
	base := time.Now()

	s.Arm("4", base.Add(time.Minute))
	// Re-arming must not extend the retention window.
	s.Arm("4", base.Add(time.Hour))

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []string{"4"}, s.Due(base.Add(time.Minute)))
}

func TestDeletionScheduler_DueLeavesEntriesArmed(t *testing.T) {
	s := NewDeletionScheduler()
	base := time.Now()

	s.Arm("4", base)

	// A failed deletion attempt means the entry must still be there on the
	// next tick.
	assert.Equal(t, []string{"4"}, s.Due(base))
	assert.Equal(t, []string{"4"}, s.Due(base))
	assert.True(t, s.Pending("4"))
}

func TestDeletionScheduler_Clear(t *testing.T) {
	s := NewDeletionScheduler()
	base := time.Now()

	s.Arm("4", base)
	s.Clear("4")

	assert.Empty(t, s.Due(base))
	assert.False(t, s.Pending("4"))

	// Clearing an index that was already cleared (or never armed) is safe:
	// this is the immediate-delete-command vs scheduler race.
	s.Clear("4")
	s.Clear("never-armed")
}

func TestDeletionScheduler_MultipleDue(t *testing.T) {
	s := NewDeletionScheduler()
	base := time.Now()

	s.Arm("1", base.Add(-time.Minute))
	s.Arm("2", base.Add(-time.Second))
	s.Arm("3", base.Add(time.Hour))

	due := s.Due(base)
	assert.ElementsMatch(t, []string{"1", "2"}, due)
}

func TestDeletionScheduler_ConcurrentAccess(t *testing.T) {
	s := NewDeletionScheduler()
	base := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Arm("shared", base)
			s.Due(base)
			if n%2 == 0 {
				s.Clear("shared")
			}
		}(i)
	}
	wg.Wait()
}
