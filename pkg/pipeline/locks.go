package pipeline

import "sync"

// lockTable serializes stage execution per workflow ID. Acquisition is
// fail-fast: a second caller gets false instead of queuing, which is
// surfaced as ErrBusy. At most one stage runs per workflow at any time.
type lockTable struct {
	mu   sync.Mutex
	busy map[string]bool
}

func newLockTable() *lockTable {
	return &lockTable{busy: make(map[string]bool)}
}

func (l *lockTable) tryAcquire(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy[id] {
		return false
	}
	l.busy[id] = true
	return true
}

func (l *lockTable) release(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.busy, id)
}
