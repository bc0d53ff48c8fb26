// Package lockmanager implements the participant-side source file lock
// manager: the two maps and single coarse lock spec.md §3/§5 describe.
// Grounded on original_source/src/UserNode.java's activeTransactions /
// lockedImages maps; the teacher's TPCParticipant additionally shards by
// per-key mutexes, which spec.md §5 explicitly calls unnecessary here
// ("participant traffic for one node is not highly concurrent").
package lockmanager

import "sync"

// Manager owns a participant's activeTransactions and lockedImages
// tables under one exclusive lock.
//
// Invariants (spec.md §3):
//  6. A filename appears in lockedImages iff it appears in some list in
//     activeTransactions, and the transaction id matches.
//  7. A filename is locked by at most one transaction.
//  8. A source file deleted as part of a committed transaction is
//     removed from both maps.
type Manager struct {
	mu                 sync.Mutex
	activeTransactions map[string][]string // txnId -> filenames promised
	lockedImages       map[string]string   // filename -> txnId holding it
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{
		activeTransactions: make(map[string][]string),
		lockedImages:       make(map[string]string),
	}
}

// Snapshot is the JSON-serializable shape persisted by the durable log.
type Snapshot struct {
	ActiveTransactions map[string][]string `json:"active_transactions"`
	LockedImages       map[string]string   `json:"locked_images"`
}

// Export captures the current state for a log flush.
func (m *Manager) Export() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := make(map[string][]string, len(m.activeTransactions))
	for k, v := range m.activeTransactions {
		active[k] = append([]string(nil), v...)
	}
	locked := make(map[string]string, len(m.lockedImages))
	for k, v := range m.lockedImages {
		locked[k] = v
	}
	return Snapshot{ActiveTransactions: active, LockedImages: locked}
}

// Restore replaces the current state with a recovered snapshot.
func (m *Manager) Restore(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ActiveTransactions == nil {
		s.ActiveTransactions = make(map[string][]string)
	}
	if s.LockedImages == nil {
		s.LockedImages = make(map[string]string)
	}
	m.activeTransactions = s.ActiveTransactions
	m.lockedImages = s.LockedImages
}

// Conflict reports the first requested filename that is already locked
// by a different transaction, if any. A filename locked by txnId
// itself is not a conflict: re-delivery of PREPARE is idempotent
// (spec.md §4.2).
func (m *Manager) Conflict(txnId string, filenames []string) (conflict string, locked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range filenames {
		if holder, ok := m.lockedImages[f]; ok && holder != txnId {
			return f, true
		}
	}
	return "", false
}

// Acquire records txnId as the owner of every filename and the promised
// filename list for the transaction. Invariant 6/7 preserving: callers
// must have checked Conflict first.
func (m *Manager) Acquire(txnId string, filenames []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeTransactions[txnId] = append([]string(nil), filenames...)
	for _, f := range filenames {
		m.lockedImages[f] = txnId
	}
}

// Active reports whether txnId currently has a promised-filename entry,
// and returns the filenames if so.
func (m *Manager) Active(txnId string) (filenames []string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.activeTransactions[txnId]
	return f, ok
}

// Release drops txnId's entry and every lock it still holds (a lock is
// released only if it still maps to txnId, per spec.md §4.2 abort
// routine). Used by both COMMIT (after deleting files) and ABORT.
func (m *Manager) Release(txnId string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.activeTransactions[txnId] {
		if m.lockedImages[f] == txnId {
			delete(m.lockedImages, f)
		}
	}
	delete(m.activeTransactions, txnId)
}

// HasLock reports whether txnId still holds any lock, used by tests to
// check for lock leakage after a transaction reaches a terminal state.
func (m *Manager) HasLock(txnId string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, holder := range m.lockedImages {
		if holder == txnId {
			return true
		}
	}
	return false
}
