package rpc

import (
	"context"

	"github.com/elenmora/collagecommit/rpc/collagepb"
)

// ParticipantHandlers is the subset of the participant role's behaviour
// the wire adapter needs. Declared here (not imported from package
// participant) so this package never depends on either role package —
// main wiring passes the concrete role struct, which satisfies this
// interface structurally.
type ParticipantHandlers interface {
	HandlePrepare(ctx context.Context, txnId string, imageBytes []byte, filenames []string) error
	HandleCommit(ctx context.Context, txnId string) error
	HandleAbort(ctx context.Context, txnId string) error
}

// ParticipantServerAdapter implements collagepb.ParticipantServer by
// delegating to a ParticipantHandlers. Grounded on controller/server.go's
// CommitServer, split from one combined service into the participant
// half.
type ParticipantServerAdapter struct {
	collagepb.UnimplementedParticipantServer
	Handlers ParticipantHandlers
}

func (a *ParticipantServerAdapter) Prepare(ctx context.Context, req *collagepb.PrepareRequest) (*collagepb.Ack, error) {
	// Errors never cross the wire (§7): HandlePrepare expresses every
	// failure as a NO vote, and the reason it returns is dropped here.
	_ = a.Handlers.HandlePrepare(ctx, req.GetTxnId(), req.GetImageBytes(), req.GetFilenames())
	return &collagepb.Ack{}, nil
}

func (a *ParticipantServerAdapter) Commit(ctx context.Context, req *collagepb.CommitRequest) (*collagepb.Ack, error) {
	_ = a.Handlers.HandleCommit(ctx, req.GetTxnId())
	return &collagepb.Ack{}, nil
}

func (a *ParticipantServerAdapter) Abort(ctx context.Context, req *collagepb.AbortRequest) (*collagepb.Ack, error) {
	_ = a.Handlers.HandleAbort(ctx, req.GetTxnId())
	return &collagepb.Ack{}, nil
}

// CoordinatorHandlers is the subset of the coordinator role's behaviour
// the wire adapter needs.
type CoordinatorHandlers interface {
	HandleVote(ctx context.Context, txnId string, vote bool, from string) error
	HandleAck(ctx context.Context, txnId string, from string) error
}

// CoordinatorServerAdapter implements collagepb.CoordinatorServer.
type CoordinatorServerAdapter struct {
	collagepb.UnimplementedCoordinatorServer
	Handlers CoordinatorHandlers
}

func (a *CoordinatorServerAdapter) Vote(ctx context.Context, req *collagepb.VoteRequest) (*collagepb.Ack, error) {
	_ = a.Handlers.HandleVote(ctx, req.GetTxnId(), req.GetVote(), req.GetFrom())
	return &collagepb.Ack{}, nil
}

func (a *CoordinatorServerAdapter) Ack(ctx context.Context, req *collagepb.AckRequest) (*collagepb.Ack, error) {
	_ = a.Handlers.HandleAck(ctx, req.GetTxnId(), req.GetFrom())
	return &collagepb.Ack{}, nil
}
