package swarm

import (
	"context"

	"github.com/dhive/dhive/pkg/keys"
)

// PeerConn is an established, not-yet-multiplexed connection to a peer,
// delivered by a Discovery implementation's Connections channel.
type PeerConn interface {
	Conn() NetConnCloser
	DiscoveryKey() keys.DiscoveryKey
}

// NetConnCloser is the minimal transport surface SwarmHub needs from a raw
// peer connection before it wraps it in a multiplexing.Carrier.
type NetConnCloser interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Discovery announces and looks up archives by DiscoveryKey. The actual
// wire-level announce/lookup protocol (DHT, mDNS, or a tracker) is an
// external dependency per the runtime's non-goals; this interface is the
// seam a concrete implementation plugs into. This package provides no
// implementation of it.
type Discovery interface {
	Announce(ctx context.Context, key keys.DiscoveryKey) error
	Unannounce(ctx context.Context, key keys.DiscoveryKey) error
	// Connections returns a channel of inbound peer connections discovered
	// for any announced key. The channel is closed when ctx is cancelled.
	Connections(ctx context.Context) <-chan PeerConn
}
