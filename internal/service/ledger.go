package service

import "sync"

// Ledger tracks which message indices have already been republished during
// this process lifetime. Membership is permanent for the run: the router may
// keep reporting a message (or even reuse its index after deletion), but a
// marked index is never republished until the process restarts. The ledger
// is deliberately not persisted; a restart republishes every message the
// router still holds, exactly once.
type Ledger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// MarkIfNew atomically checks and marks an index. It returns true exactly
// once per index: the caller that gets true owns the republish. The
// check-and-mark is per record, so overlapping poll ticks and concurrent
// command activity can never double-publish.
func (l *Ledger) MarkIfNew(index string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[index]; ok {
		return false
	}
	l.seen[index] = struct{}{}
	return true
}

// Seen reports whether an index has been marked.
func (l *Ledger) Seen(index string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.seen[index]
	return ok
}

// Len returns the number of marked indices.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.seen)
}
