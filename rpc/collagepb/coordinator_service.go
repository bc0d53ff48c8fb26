package collagepb

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CoordinatorServer is implemented by the coordinator role: the two
// participant -> coordinator tags (VOTE, ACK).
type CoordinatorServer interface {
	Vote(context.Context, *VoteRequest) (*Ack, error)
	Ack(context.Context, *AckRequest) (*Ack, error)
}

// UnimplementedCoordinatorServer can be embedded to satisfy
// CoordinatorServer for methods not overridden.
type UnimplementedCoordinatorServer struct{}

func (UnimplementedCoordinatorServer) Vote(context.Context, *VoteRequest) (*Ack, error) {
	return nil, grpcUnimplemented("Vote")
}
func (UnimplementedCoordinatorServer) Ack(context.Context, *AckRequest) (*Ack, error) {
	return nil, grpcUnimplemented("Ack")
}

// RegisterCoordinatorServer wires a CoordinatorServer implementation into
// a grpc.Server.
func RegisterCoordinatorServer(s grpc.ServiceRegistrar, srv CoordinatorServer) {
	s.RegisterService(&coordinatorServiceDesc, srv)
}

func _Coordinator_Vote_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(VoteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CoordinatorServer).Vote(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/collagecommit.Coordinator/Vote"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CoordinatorServer).Vote(ctx, req.(*VoteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Coordinator_Ack_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AckRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CoordinatorServer).Ack(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/collagecommit.Coordinator/Ack"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CoordinatorServer).Ack(ctx, req.(*AckRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var coordinatorServiceDesc = grpc.ServiceDesc{
	ServiceName: "collagecommit.Coordinator",
	HandlerType: (*CoordinatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Vote", Handler: _Coordinator_Vote_Handler},
		{MethodName: "Ack", Handler: _Coordinator_Ack_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "collage.proto",
}

// CoordinatorClient is implemented by a participant's connection back to
// the coordinator.
type CoordinatorClient interface {
	Vote(ctx context.Context, in *VoteRequest, opts ...grpc.CallOption) (*Ack, error)
	Ack(ctx context.Context, in *AckRequest, opts ...grpc.CallOption) (*Ack, error)
}

type coordinatorClient struct {
	cc grpc.ClientConnInterface
}

// NewCoordinatorClient wraps a ClientConn as a CoordinatorClient.
func NewCoordinatorClient(cc grpc.ClientConnInterface) CoordinatorClient {
	return &coordinatorClient{cc}
}

func (c *coordinatorClient) Vote(ctx context.Context, in *VoteRequest, opts ...grpc.CallOption) (*Ack, error) {
	out := new(Ack)
	if err := c.cc.Invoke(ctx, "/collagecommit.Coordinator/Vote", in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *coordinatorClient) Ack(ctx context.Context, in *AckRequest, opts ...grpc.CallOption) (*Ack, error) {
	out := new(Ack)
	if err := c.cc.Invoke(ctx, "/collagecommit.Coordinator/Ack", in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
}

func grpcUnimplemented(method string) error {
	return status.Error(codes.Unimplemented, fmt.Sprintf("method %s not implemented", method))
}
