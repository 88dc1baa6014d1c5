package swarm

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dhive/dhive/pkg/archive"
	"github.com/dhive/dhive/pkg/keys"
)

func TestJoinLeaveTracksSwarmingFlag(t *testing.T) {
	hub := New(nil, nil)
	a := archive.New(testKey(1), true)

	hub.Join(a)
	if !a.IsSwarming() {
		t.Error("expected IsSwarming() to be true after Join")
	}

	hub.Join(a) // idempotent
	hub.Leave(a)
	if a.IsSwarming() {
		t.Error("expected IsSwarming() to be false after Leave")
	}
}

func TestHandleConnectionOpensFeedOnMatchingDiscoveryKey(t *testing.T) {
	serverHub := New(nil, nil)
	clientHub := New(nil, nil)

	a := archive.New(testKey(2), true)
	serverHub.Join(a)
	// handleOutbound only opens a feed for an archive the client hub has
	// joined, so the client joins the same key before driving the handshake
	// through handleOutbound directly.
	clientArchive := archive.New(testKey(2), false)
	clientHub.Join(clientArchive)

	serverConn, clientConn := net.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go serverHub.HandleConnection(ctx, serverConn, false)

	peerConn := &pipePeerConn{conn: clientConn, key: clientArchive.DiscoveryKey}
	clientHub.handleOutbound(ctx, peerConn)

	deadline := time.After(2 * time.Second)
	for {
		if len(a.Streams()) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for server-side feed to register")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

type pipePeerConn struct {
	conn net.Conn
	key  keys.DiscoveryKey
}

func (p *pipePeerConn) Conn() NetConnCloser             { return p.conn }
func (p *pipePeerConn) DiscoveryKey() keys.DiscoveryKey { return p.key }

func testKey(b byte) archive.Key {
	var k archive.Key
	k[0] = b
	return k
}
