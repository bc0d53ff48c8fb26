package collagepb

import (
	"context"

	"google.golang.org/grpc"
)

// ParticipantServer is implemented by the participant role: the three
// coordinator -> participant tags (PREPARE, COMMIT, ABORT).
type ParticipantServer interface {
	Prepare(context.Context, *PrepareRequest) (*Ack, error)
	Commit(context.Context, *CommitRequest) (*Ack, error)
	Abort(context.Context, *AbortRequest) (*Ack, error)
}

// UnimplementedParticipantServer can be embedded to satisfy
// ParticipantServer for methods not overridden, the same forward
// compatibility convention protoc-gen-go-grpc emits.
type UnimplementedParticipantServer struct{}

func (UnimplementedParticipantServer) Prepare(context.Context, *PrepareRequest) (*Ack, error) {
	return nil, grpcUnimplemented("Prepare")
}
func (UnimplementedParticipantServer) Commit(context.Context, *CommitRequest) (*Ack, error) {
	return nil, grpcUnimplemented("Commit")
}
func (UnimplementedParticipantServer) Abort(context.Context, *AbortRequest) (*Ack, error) {
	return nil, grpcUnimplemented("Abort")
}

// RegisterParticipantServer wires a ParticipantServer implementation into
// a grpc.Server.
func RegisterParticipantServer(s grpc.ServiceRegistrar, srv ParticipantServer) {
	s.RegisterService(&participantServiceDesc, srv)
}

func _Participant_Prepare_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PrepareRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ParticipantServer).Prepare(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/collagecommit.Participant/Prepare"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ParticipantServer).Prepare(ctx, req.(*PrepareRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Participant_Commit_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CommitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ParticipantServer).Commit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/collagecommit.Participant/Commit"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ParticipantServer).Commit(ctx, req.(*CommitRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Participant_Abort_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AbortRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ParticipantServer).Abort(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/collagecommit.Participant/Abort"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ParticipantServer).Abort(ctx, req.(*AbortRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var participantServiceDesc = grpc.ServiceDesc{
	ServiceName: "collagecommit.Participant",
	HandlerType: (*ParticipantServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Prepare", Handler: _Participant_Prepare_Handler},
		{MethodName: "Commit", Handler: _Participant_Commit_Handler},
		{MethodName: "Abort", Handler: _Participant_Abort_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "collage.proto",
}

// ParticipantClient is implemented by the coordinator's connection to a
// single participant.
type ParticipantClient interface {
	Prepare(ctx context.Context, in *PrepareRequest, opts ...grpc.CallOption) (*Ack, error)
	Commit(ctx context.Context, in *CommitRequest, opts ...grpc.CallOption) (*Ack, error)
	Abort(ctx context.Context, in *AbortRequest, opts ...grpc.CallOption) (*Ack, error)
}

type participantClient struct {
	cc grpc.ClientConnInterface
}

// NewParticipantClient wraps a ClientConn as a ParticipantClient.
func NewParticipantClient(cc grpc.ClientConnInterface) ParticipantClient {
	return &participantClient{cc}
}

func (c *participantClient) Prepare(ctx context.Context, in *PrepareRequest, opts ...grpc.CallOption) (*Ack, error) {
	out := new(Ack)
	if err := c.cc.Invoke(ctx, "/collagecommit.Participant/Prepare", in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *participantClient) Commit(ctx context.Context, in *CommitRequest, opts ...grpc.CallOption) (*Ack, error) {
	out := new(Ack)
	if err := c.cc.Invoke(ctx, "/collagecommit.Participant/Commit", in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *participantClient) Abort(ctx context.Context, in *AbortRequest, opts ...grpc.CallOption) (*Ack, error) {
	out := new(Ack)
	if err := c.cc.Invoke(ctx, "/collagecommit.Participant/Abort", in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}
