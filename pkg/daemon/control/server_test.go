package control

import (
	"context"
	"testing"

	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/dhive/dhive/pkg/dhive"
)

func TestVersionReportsRuntimeVersion(t *testing.T) {
	server := New()
	resp, err := server.Version(context.Background(), &emptypb.Empty{})
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if resp.Value != dhive.Version {
		t.Errorf("Version = %q, want %q", resp.Value, dhive.Version)
	}
}

func TestTerminateSignalsOnceNonBlocking(t *testing.T) {
	server := New()

	if _, err := server.Terminate(context.Background(), &emptypb.Empty{}); err != nil {
		t.Fatalf("first Terminate failed: %v", err)
	}
	// A second request must not block even though the channel is full.
	if _, err := server.Terminate(context.Background(), &emptypb.Empty{}); err != nil {
		t.Fatalf("second Terminate failed: %v", err)
	}

	select {
	case <-server.Termination:
	default:
		t.Fatal("expected a termination signal to be queued")
	}
}
