// Package rpc wires the collagepb service descriptors onto real gRPC
// connections: a ParticipantRemote lets the coordinator talk to one
// participant, a CoordinatorRemote lets a participant talk back to the
// coordinator, and the two server adapters translate inbound RPCs into
// calls on the role handlers in package coordinator / participant.
//
// Grounded on repository/messaging/client.go (the teacher's CommitClient)
// and controller/server.go (the teacher's CommitServer), generalized from
// one client direction to the protocol's two.
package rpc

import (
	"context"
	"time"

	"github.com/elenmora/collagecommit/rpc/collagepb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ParticipantRemoteConfig names a participant the way a source reference
// does (Address, e.g. "A") and where to dial it.
type ParticipantRemoteConfig struct {
	Address    string // logical participant address, as used in source refs
	DialTarget string // host:port to dial
}

// ParticipantRemote is the coordinator's handle on one participant.
type ParticipantRemote struct {
	Address    string
	dialTarget string
	conn       *grpc.ClientConn
	client     collagepb.ParticipantClient
}

// NewParticipantRemote builds an unconnected remote; call Connect before
// use.
func NewParticipantRemote(cfg ParticipantRemoteConfig) *ParticipantRemote {
	return &ParticipantRemote{Address: cfg.Address, dialTarget: cfg.DialTarget}
}

// Connect dials the participant. Blocking, like the teacher's Connect.
func (r *ParticipantRemote) Connect(ctx context.Context) error {
	conn, err := grpc.DialContext(ctx, r.dialTarget,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return err
	}
	r.conn = conn
	r.client = collagepb.NewParticipantClient(conn)
	return nil
}

// Prepare sends the PREPARE message. Send failures are swallowed by the
// caller (the retry engine, not this call, provides reliability); this
// method only returns the error for logging.
func (r *ParticipantRemote) Prepare(ctx context.Context, txnId string, imageBytes []byte, filenames []string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := r.client.Prepare(ctx, &collagepb.PrepareRequest{
		TxnId:      txnId,
		ImageBytes: imageBytes,
		Filenames:  filenames,
	})
	return err
}

// Commit sends the COMMIT message.
func (r *ParticipantRemote) Commit(ctx context.Context, txnId string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := r.client.Commit(ctx, &collagepb.CommitRequest{TxnId: txnId})
	return err
}

// Abort sends the ABORT message.
func (r *ParticipantRemote) Abort(ctx context.Context, txnId string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := r.client.Abort(ctx, &collagepb.AbortRequest{TxnId: txnId})
	return err
}

// Close tears down the connection.
func (r *ParticipantRemote) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}
