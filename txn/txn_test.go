package txn

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elenmora/collagecommit/domain"
)

func newPreparing(participants ...string) *Transaction {
	images := make(map[string][]string, len(participants))
	for _, p := range participants {
		images[p] = []string{p + "-source.jpg"}
	}
	tx := New("txn-1", "composite.jpg", []byte("bytes"), images)
	tx.BeginPreparing()
	return tx
}

func TestReceiveVoteEntersCommittingOnLastYes(t *testing.T) {
	tx := newPreparing("A", "B")

	entCommit, entAbort := tx.ReceiveVote("A", true)
	require.False(t, entCommit)
	require.False(t, entAbort)
	require.Equal(t, domain.StatePreparing, tx.State)

	entCommit, entAbort = tx.ReceiveVote("B", true)
	require.True(t, entCommit)
	require.False(t, entAbort)
	require.Equal(t, domain.StateCommitting, tx.State)
}

func TestReceiveVoteEntersAbortingOnFirstNo(t *testing.T) {
	tx := newPreparing("A", "B")

	entCommit, entAbort := tx.ReceiveVote("A", false)
	require.False(t, entCommit)
	require.True(t, entAbort)
	require.Equal(t, domain.StateAborting, tx.State)
}

func TestReceiveVoteIsNoopOutsidePreparing(t *testing.T) {
	tx := newPreparing("A", "B")
	tx.ReceiveVote("A", false) // -> ABORTING

	// A duplicate/late vote of either polarity, after the decision, must
	// not re-trigger a transition or report one.
	entCommit, entAbort := tx.ReceiveVote("B", true)
	require.False(t, entCommit)
	require.False(t, entAbort)
	require.Equal(t, domain.StateAborting, tx.State)

	entCommit, entAbort = tx.ReceiveVote("A", false)
	require.False(t, entCommit)
	require.False(t, entAbort)
}

func TestReceiveAckDrainsToTerminalState(t *testing.T) {
	tx := newPreparing("A", "B")
	tx.ReceiveVote("A", true)
	tx.ReceiveVote("B", true)
	require.Equal(t, domain.StateCommitting, tx.State)

	tx.ReceiveAck("A")
	require.Equal(t, domain.StateCommitting, tx.State, "still waiting on B")

	tx.ReceiveAck("B")
	require.Equal(t, domain.StateCommitted, tx.State)
}

func TestAckRemainingEmptyOutsideDecidedStates(t *testing.T) {
	tx := newPreparing("A", "B")
	require.Nil(t, tx.AckRemaining())

	tx.ReceiveVote("A", true)
	tx.ReceiveVote("B", true)
	require.ElementsMatch(t, []string{"A", "B"}, tx.AckRemaining())

	tx.ReceiveAck("A")
	require.ElementsMatch(t, []string{"B"}, tx.AckRemaining())
}

func TestExpirePreparingOnlyFiresWhilePreparing(t *testing.T) {
	tx := newPreparing("A")
	require.True(t, tx.ExpirePreparing())
	require.Equal(t, domain.StateAborting, tx.State)

	// Already decided: a second expiry call must be a no-op.
	require.False(t, tx.ExpirePreparing())
}

func TestForceAbortingOnlyAffectsPreparing(t *testing.T) {
	committing := newPreparing("A")
	committing.ReceiveVote("A", true)
	committing.ForceAborting()
	require.Equal(t, domain.StateCommitting, committing.State, "ForceAborting must not downgrade a decided transaction")

	preparing := newPreparing("A")
	preparing.ForceAborting()
	require.Equal(t, domain.StateAborting, preparing.State)
}

func TestViewRoundTripsThroughFromView(t *testing.T) {
	tx := newPreparing("A", "B")
	tx.ReceiveVote("A", true)

	view := tx.View()
	restored := FromView(view)

	require.Equal(t, tx.ID, restored.ID)
	require.Equal(t, tx.Filename, restored.Filename)
	require.Equal(t, tx.State, restored.State)
	_, voted := restored.VotesReceived["A"]
	require.True(t, voted)
}

func TestViewCopiesImageBytesDefensively(t *testing.T) {
	tx := newPreparing("A")
	view := tx.View()
	view.ImageBytes[0] = 0xFF

	require.NotEqual(t, view.ImageBytes[0], tx.ImageBytes[0], "View must return an independent copy of ImageBytes")
}
