package rpc

import (
	"context"
	"time"

	"github.com/elenmora/collagecommit/rpc/collagepb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// CoordinatorRemote is a participant's handle on the coordinator, used to
// send VOTE and ACK.
type CoordinatorRemote struct {
	dialTarget string
	conn       *grpc.ClientConn
	client     collagepb.CoordinatorClient
}

// NewCoordinatorRemote builds an unconnected remote; call Connect before
// use.
func NewCoordinatorRemote(dialTarget string) *CoordinatorRemote {
	return &CoordinatorRemote{dialTarget: dialTarget}
}

// Connect dials the coordinator.
func (r *CoordinatorRemote) Connect(ctx context.Context) error {
	conn, err := grpc.DialContext(ctx, r.dialTarget,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return err
	}
	r.conn = conn
	r.client = collagepb.NewCoordinatorClient(conn)
	return nil
}

// Vote sends the VOTE message.
func (r *CoordinatorRemote) Vote(ctx context.Context, txnId string, vote bool, from string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := r.client.Vote(ctx, &collagepb.VoteRequest{TxnId: txnId, Vote: vote, From: from})
	return err
}

// Ack sends the ACK message.
func (r *CoordinatorRemote) Ack(ctx context.Context, txnId string, from string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := r.client.Ack(ctx, &collagepb.AckRequest{TxnId: txnId, From: from})
	return err
}

// Close tears down the connection.
func (r *CoordinatorRemote) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}
