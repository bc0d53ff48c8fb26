package participant

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeCoordinator struct {
	mu    sync.Mutex
	votes []voteCall
	acks  []string
}

type voteCall struct {
	txnId string
	vote  bool
	from  string
}

func (f *fakeCoordinator) Vote(ctx context.Context, txnId string, vote bool, from string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes = append(f.votes, voteCall{txnId, vote, from})
	return nil
}

func (f *fakeCoordinator) Ack(ctx context.Context, txnId string, from string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, txnId)
	return nil
}

func (f *fakeCoordinator) lastVote() (voteCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.votes) == 0 {
		return voteCall{}, false
	}
	return f.votes[len(f.votes)-1], true
}

// waitForVote polls for a VOTE on txnId to arrive: Participant sends it
// on its own goroutine (the same "reliability is the retry engine's job,
// not the send's" pattern used on the coordinator side), not
// synchronously from the handler call.
func waitForVote(t *testing.T, coord *fakeCoordinator, txnId string) voteCall {
	t.Helper()
	var found voteCall
	require.Eventually(t, func() bool {
		coord.mu.Lock()
		defer coord.mu.Unlock()
		for i := len(coord.votes) - 1; i >= 0; i-- {
			if coord.votes[i].txnId == txnId {
				found = coord.votes[i]
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	return found
}

func waitForAck(t *testing.T, coord *fakeCoordinator, txnId string) {
	t.Helper()
	require.Eventually(t, func() bool {
		coord.mu.Lock()
		defer coord.mu.Unlock()
		for _, id := range coord.acks {
			if id == txnId {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

type fixedOracle struct{ approve bool }

func (o fixedOracle) Ask(ctx context.Context, imageBytes []byte, filenames []string) bool {
	return o.approve
}

func newTestParticipant(t *testing.T, coord CoordinatorClient, oracle UserOracle, root string) *Participant {
	t.Helper()
	dir := t.TempDir()
	return New(Config{
		Address:     "A",
		LogPath:     filepath.Join(dir, "usernode_A_log.dat"),
		Coordinator: coord,
		Oracle:      oracle,
		Files:       NewFileStore(root),
	})
}

func writeSourceFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("image bytes"), 0o644))
}

func TestHandlePrepareVotesNoOnMissingFile(t *testing.T) {
	root := t.TempDir()
	coord := &fakeCoordinator{}
	p := newTestParticipant(t, coord, fixedOracle{approve: true}, root)

	err := p.HandlePrepare(context.Background(), "txn-1", []byte("composite"), []string{"missing.jpg"})
	require.Error(t, err)

	vote := waitForVote(t, coord, "txn-1")
	require.False(t, vote.vote)
	require.False(t, p.HasLock("txn-1"))
}

func TestHandlePrepareVotesNoOnUserRejection(t *testing.T) {
	root := t.TempDir()
	writeSourceFile(t, root, "a.jpg")
	coord := &fakeCoordinator{}
	p := newTestParticipant(t, coord, fixedOracle{approve: false}, root)

	err := p.HandlePrepare(context.Background(), "txn-1", []byte("composite"), []string{"a.jpg"})
	require.Error(t, err)

	vote := waitForVote(t, coord, "txn-1")
	require.False(t, vote.vote)
	require.False(t, p.HasLock("txn-1"))
}

func TestHandlePrepareVotesYesAndLocksOnApproval(t *testing.T) {
	root := t.TempDir()
	writeSourceFile(t, root, "a.jpg")
	coord := &fakeCoordinator{}
	p := newTestParticipant(t, coord, fixedOracle{approve: true}, root)

	err := p.HandlePrepare(context.Background(), "txn-1", []byte("composite"), []string{"a.jpg"})
	require.NoError(t, err)

	vote := waitForVote(t, coord, "txn-1")
	require.True(t, vote.vote)
	require.True(t, p.HasLock("txn-1"))
}

func TestHandlePrepareVotesNoOnConflictingLock(t *testing.T) {
	root := t.TempDir()
	writeSourceFile(t, root, "a.jpg")
	coord := &fakeCoordinator{}
	p := newTestParticipant(t, coord, fixedOracle{approve: true}, root)

	require.NoError(t, p.HandlePrepare(context.Background(), "txn-1", []byte("c1"), []string{"a.jpg"}))
	waitForVote(t, coord, "txn-1")

	err := p.HandlePrepare(context.Background(), "txn-2", []byte("c2"), []string{"a.jpg"})
	require.Error(t, err)

	vote := waitForVote(t, coord, "txn-2")
	require.Equal(t, "txn-2", vote.txnId)
	require.False(t, vote.vote)
}

func TestHandleCommitDeletesFilesAndReleasesLock(t *testing.T) {
	root := t.TempDir()
	writeSourceFile(t, root, "a.jpg")
	coord := &fakeCoordinator{}
	p := newTestParticipant(t, coord, fixedOracle{approve: true}, root)
	require.NoError(t, p.HandlePrepare(context.Background(), "txn-1", []byte("c1"), []string{"a.jpg"}))

	require.NoError(t, p.HandleCommit(context.Background(), "txn-1"))

	require.False(t, p.HasLock("txn-1"), "lock must be released after commit")
	_, err := os.Stat(filepath.Join(root, "a.jpg"))
	require.True(t, os.IsNotExist(err), "committed source file must be deleted")

	waitForAck(t, coord, "txn-1")
}

func TestHandleCommitOnUnknownTransactionStillAcks(t *testing.T) {
	coord := &fakeCoordinator{}
	p := newTestParticipant(t, coord, fixedOracle{approve: true}, t.TempDir())

	require.NoError(t, p.HandleCommit(context.Background(), "never-prepared"))
	waitForAck(t, coord, "never-prepared")
}

func TestHandleAbortReleasesLockWithoutDeletingFile(t *testing.T) {
	root := t.TempDir()
	writeSourceFile(t, root, "a.jpg")
	coord := &fakeCoordinator{}
	p := newTestParticipant(t, coord, fixedOracle{approve: true}, root)
	require.NoError(t, p.HandlePrepare(context.Background(), "txn-1", []byte("c1"), []string{"a.jpg"}))

	require.NoError(t, p.HandleAbort(context.Background(), "txn-1"))

	require.False(t, p.HasLock("txn-1"))
	_, err := os.Stat(filepath.Join(root, "a.jpg"))
	require.NoError(t, err, "aborted transaction must not delete its source file")
	waitForAck(t, coord, "txn-1")
}

func TestHandleAbortOnUnknownTransactionIsIdempotent(t *testing.T) {
	coord := &fakeCoordinator{}
	p := newTestParticipant(t, coord, fixedOracle{approve: true}, t.TempDir())

	require.NoError(t, p.HandleAbort(context.Background(), "never-prepared"))
	waitForAck(t, coord, "never-prepared")
}

func TestRecoverRestoresLocksAcrossRestart(t *testing.T) {
	root := t.TempDir()
	writeSourceFile(t, root, "a.jpg")
	logPath := filepath.Join(t.TempDir(), "usernode_A_log.dat")
	coord := &fakeCoordinator{}

	first := New(Config{Address: "A", LogPath: logPath, Coordinator: coord,
		Oracle: fixedOracle{approve: true}, Files: NewFileStore(root)})
	require.NoError(t, first.HandlePrepare(context.Background(), "txn-1", []byte("c"), []string{"a.jpg"}))
	require.True(t, first.HasLock("txn-1"))

	second := New(Config{Address: "A", LogPath: logPath, Coordinator: coord,
		Oracle: fixedOracle{approve: true}, Files: NewFileStore(root)})
	require.NoError(t, second.Recover())
	require.True(t, second.HasLock("txn-1"), "a lock held before a crash must survive recovery")
}
