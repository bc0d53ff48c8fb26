package collagepb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONCodecRoundTripsPrepareRequest(t *testing.T) {
	codec := jsonCodec{}
	want := &PrepareRequest{TxnId: "txn-1", ImageBytes: []byte{1, 2, 3}, Filenames: []string{"a.jpg", "b.jpg"}}

	data, err := codec.Marshal(want)
	require.NoError(t, err)

	got := &PrepareRequest{}
	require.NoError(t, codec.Unmarshal(data, got))
	require.Equal(t, want, got)
}

func TestJSONCodecNameMatchesRegisteredSubtype(t *testing.T) {
	require.Equal(t, "collagejson", jsonCodec{}.Name())
	require.Equal(t, jsonCodec{}.Name(), CallContentSubtype())
}

func TestMessageGetters(t *testing.T) {
	prep := &PrepareRequest{TxnId: "t1", ImageBytes: []byte("x"), Filenames: []string{"f"}}
	require.Equal(t, "t1", prep.GetTxnId())
	require.Equal(t, []byte("x"), prep.GetImageBytes())
	require.Equal(t, []string{"f"}, prep.GetFilenames())

	vote := &VoteRequest{TxnId: "t2", Vote: true, From: "A"}
	require.Equal(t, "t2", vote.GetTxnId())
	require.True(t, vote.GetVote())
	require.Equal(t, "A", vote.GetFrom())

	commit := &CommitRequest{TxnId: "t3"}
	require.Equal(t, "t3", commit.GetTxnId())

	abort := &AbortRequest{TxnId: "t4"}
	require.Equal(t, "t4", abort.GetTxnId())

	ack := &AckRequest{TxnId: "t5", From: "B"}
	require.Equal(t, "t5", ack.GetTxnId())
	require.Equal(t, "B", ack.GetFrom())
}
