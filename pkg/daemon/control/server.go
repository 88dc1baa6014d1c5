package control

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dhive/dhive/pkg/dhive"
)

// Server implements ControlServer.
type Server struct {
	// Termination is populated when a client requests daemon shutdown over
	// RPC. It is buffered and non-blocking: a host process that doesn't
	// service it just ignores further termination requests once full.
	Termination chan struct{}
}

// New creates a daemon control server.
func New() *Server {
	return &Server{
		Termination: make(chan struct{}, 1),
	}
}

// Version reports the daemon's version.
func (s *Server) Version(_ context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String(dhive.Version), nil
}

// Terminate requests daemon shutdown.
func (s *Server) Terminate(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	select {
	case s.Termination <- struct{}{}:
	default:
	}
	return &emptypb.Empty{}, nil
}

var _ ControlServer = (*Server)(nil)
