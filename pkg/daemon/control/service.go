// Package control defines the daemon's control-plane gRPC service: the
// minimal local transport that lets cmd/dhive query daemon version
// information and request shutdown. It intentionally does not expose
// archive CRUD operations — that richer surface belongs to the out-of-scope
// web/RPC layer; this service only gives that layer (and the CLI) somewhere
// to dial into.
package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ControlServer is the server API for the Control service.
type ControlServer interface {
	Version(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	Terminate(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

// ControlClient is the client API for the Control service.
type ControlClient interface {
	Version(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Terminate(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type controlClient struct {
	cc grpc.ClientConnInterface
}

// NewControlClient builds a ControlClient on top of an established
// connection (typically one dialed over the daemon's IPC socket).
func NewControlClient(cc grpc.ClientConnInterface) ControlClient {
	return &controlClient{cc: cc}
}

func (c *controlClient) Version(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, "/dhive.control.v1.Control/Version", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controlClient) Terminate(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/dhive.control.v1.Control/Terminate", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterControlServer registers srv as the implementation of the Control
// service on s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&controlServiceDesc, srv)
}

func controlVersionHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Version(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/dhive.control.v1.Control/Version"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).Version(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func controlTerminateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Terminate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/dhive.control.v1.Control/Terminate"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).Terminate(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var controlServiceDesc = grpc.ServiceDesc{
	ServiceName: "dhive.control.v1.Control",
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Version", Handler: controlVersionHandler},
		{MethodName: "Terminate", Handler: controlTerminateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pkg/daemon/control/control.proto",
}
