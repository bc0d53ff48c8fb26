// Package txn defines the coordinator's transaction record: the unit of
// state the coordinator's durable log persists and the retry engine
// scans. Grounded on original_source/src/CoordinatorTransaction.java,
// translated from a Java Serializable bean into a JSON-tagged Go struct
// with its own exclusive lock (spec.md §5: every read-modify-write of a
// single transaction record, including the associated log flush, must
// hold an exclusive per-transaction lock).
package txn

import (
	"sync"

	"github.com/elenmora/collagecommit/domain"
)

// Transaction is one coordinator-side collage commit.
//
// Invariants (spec.md §3):
//  1. VotesReceived ⊆ participants; AckPending ⊆ participants.
//  2. State progresses one-way: INIT -> PREPARING -> {COMMITTING|ABORTING}
//     -> {COMMITTED|ABORTED}.
//  3. The composite file is written exactly once, on entry to COMMITTING.
//  4. COMMITTING is entered only once |VotesReceived| == |participants|.
//  5. A single NO vote during PREPARING is final: state -> ABORTING.
type Transaction struct {
	mu sync.Mutex

	ID                string              `json:"id"`
	Filename          string              `json:"filename"`
	ImageBytes        []byte              `json:"image_bytes"`
	ParticipantImages map[string][]string `json:"participant_images"`
	State             domain.State        `json:"state"`
	VotesReceived     map[string]struct{} `json:"votes_received"`
	AckPending        map[string]struct{} `json:"ack_pending"`
}

// New creates a transaction in state INIT. participantImages' key set is
// the participant set for this transaction.
func New(id, filename string, imageBytes []byte, participantImages map[string][]string) *Transaction {
	ackPending := make(map[string]struct{}, len(participantImages))
	for p := range participantImages {
		ackPending[p] = struct{}{}
	}
	return &Transaction{
		ID:                id,
		Filename:          filename,
		ImageBytes:        imageBytes,
		ParticipantImages: participantImages,
		State:             domain.StateInit,
		VotesReceived:      make(map[string]struct{}),
		AckPending:        ackPending,
	}
}

// Lock acquires the transaction's exclusive lock. Callers must Unlock.
// The caller holds this lock across both the state mutation and its log
// flush, never across the blocking user-approval oracle (that call lives
// on the participant, which has no analog of this lock) and never across
// a network send, so a slow peer cannot stall progress on unrelated
// transactions.
func (t *Transaction) Lock()   { t.mu.Lock() }
func (t *Transaction) Unlock() { t.mu.Unlock() }

// Participants returns the participant set: the key set of
// ParticipantImages. Caller must hold the lock.
func (t *Transaction) Participants() []string {
	out := make([]string, 0, len(t.ParticipantImages))
	for p := range t.ParticipantImages {
		out = append(out, p)
	}
	return out
}

// ReceiveVote applies a VOTE while PREPARING. Votes received outside
// PREPARING (including a late YES after an abort decision, or a
// duplicate NO after the first) are no-ops, per spec.md §4.1, as is a YES
// from an address outside the participant set (invariant 1). The two
// return values report whether this specific call is the one that just
// drove the transaction into COMMITTING or ABORTING respectively — a
// no-op call (already decided, or still PREPARING but not tipping the
// vote count) returns false, false. Caller must hold the lock.
func (t *Transaction) ReceiveVote(from string, vote bool) (enteredCommitting, enteredAborting bool) {
	if t.State != domain.StatePreparing {
		return false, false
	}
	if !vote {
		t.State = domain.StateAborting
		return false, true
	}
	if _, ok := t.ParticipantImages[from]; !ok {
		return false, false
	}
	t.VotesReceived[from] = struct{}{}
	if len(t.VotesReceived) == len(t.ParticipantImages) {
		t.State = domain.StateCommitting
		return true, false
	}
	return false, false
}

// ReceiveAck removes from from AckPending and, once it is empty, moves
// COMMITTING -> COMMITTED or ABORTING -> ABORTED. Caller must hold the
// lock.
func (t *Transaction) ReceiveAck(from string) {
	delete(t.AckPending, from)
	if len(t.AckPending) > 0 {
		return
	}
	switch t.State {
	case domain.StateCommitting:
		t.State = domain.StateCommitted
	case domain.StateAborting:
		t.State = domain.StateAborted
	}
}

// AckRemaining returns the participants still to acknowledge, or nil if
// the transaction isn't in a decided-but-not-terminal state. Caller must
// hold the lock.
func (t *Transaction) AckRemaining() []string {
	if t.State != domain.StateCommitting && t.State != domain.StateAborting {
		return nil
	}
	out := make([]string, 0, len(t.AckPending))
	for p := range t.AckPending {
		out = append(out, p)
	}
	return out
}

// BeginPreparing moves a freshly created transaction from INIT to
// PREPARING. Caller must hold the lock.
func (t *Transaction) BeginPreparing() {
	if t.State == domain.StateInit {
		t.State = domain.StatePreparing
	}
}

// ForceAborting is used only during recovery: a transaction found in
// PREPARING after a coordinator crash is conservatively assumed to have
// possibly lost in-flight votes, and is forced to ABORTING (spec.md
// §4.1). Caller must hold the lock.
func (t *Transaction) ForceAborting() {
	if t.State == domain.StatePreparing {
		t.State = domain.StateAborting
	}
}

// ExpirePreparing forces PREPARING -> ABORTING when the PREPARE deadline
// elapses (spec.md §4.4). Returns true if it fired. Caller must hold the
// lock.
func (t *Transaction) ExpirePreparing() bool {
	if t.State != domain.StatePreparing {
		return false
	}
	t.State = domain.StateAborting
	return true
}

// View is the JSON-serializable snapshot of a Transaction, used by the
// durable log so the mutex never has to survive a marshal/unmarshal
// round trip.
type View struct {
	ID                string              `json:"id"`
	Filename          string              `json:"filename"`
	ImageBytes        []byte              `json:"image_bytes"`
	ParticipantImages map[string][]string `json:"participant_images"`
	State             domain.State        `json:"state"`
	VotesReceived     []string            `json:"votes_received"`
	AckPending        []string            `json:"ack_pending"`
}

// View captures the transaction's current fields. Caller must hold the
// lock.
func (t *Transaction) View() View {
	votes := make([]string, 0, len(t.VotesReceived))
	for p := range t.VotesReceived {
		votes = append(votes, p)
	}
	ack := make([]string, 0, len(t.AckPending))
	for p := range t.AckPending {
		ack = append(ack, p)
	}
	images := make(map[string][]string, len(t.ParticipantImages))
	for p, files := range t.ParticipantImages {
		images[p] = append([]string(nil), files...)
	}
	return View{
		ID:                t.ID,
		Filename:          t.Filename,
		ImageBytes:        append([]byte(nil), t.ImageBytes...),
		ParticipantImages: images,
		State:             t.State,
		VotesReceived:     votes,
		AckPending:        ack,
	}
}

// SafeView locks, views, and unlocks. Callers must NOT already hold the
// lock.
func (t *Transaction) SafeView() View {
	t.Lock()
	defer t.Unlock()
	return t.View()
}

// FromView reconstructs a Transaction from a recovered View.
func FromView(v View) *Transaction {
	votes := make(map[string]struct{}, len(v.VotesReceived))
	for _, p := range v.VotesReceived {
		votes[p] = struct{}{}
	}
	ack := make(map[string]struct{}, len(v.AckPending))
	for _, p := range v.AckPending {
		ack[p] = struct{}{}
	}
	return &Transaction{
		ID:                v.ID,
		Filename:          v.Filename,
		ImageBytes:        v.ImageBytes,
		ParticipantImages: v.ParticipantImages,
		State:             v.State,
		VotesReceived:     votes,
		AckPending:        ack,
	}
}
