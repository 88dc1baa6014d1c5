// Package swarm implements discovery-key announcement, inbound/outbound
// stream acceptance, and per-peer archive multiplexing: one Multiplexer per
// peer connection, one Stream ("feed") per archive replicated with that
// peer, built on pkg/multiplexing.
package swarm

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/dhive/dhive/pkg/archive"
	"github.com/dhive/dhive/pkg/keys"
	"github.com/dhive/dhive/pkg/logging"
	"github.com/dhive/dhive/pkg/multiplexing"
)

// feedHeaderSize is the length, in bytes, of the handshake header written
// at the start of every feed stream: the archive's DiscoveryKey, so the
// remote end can route the stream to the right archive without announcing
// the archive's public key on the wire.
const feedHeaderSize = keys.Size

// ErrUnknownDiscoveryKey is logged, never propagated to Registry, when an
// inbound feed's header doesn't match any archive this hub currently has
// joined.
var ErrUnknownDiscoveryKey = errors.New("no joined archive matches discovery key")

// feed is the ReplicationStream implementation tracked on an Archive.
type feed struct {
	stream *multiplexing.Stream
	peerID string
}

func (f *feed) PeerID() string { return f.peerID }
func (f *feed) Close() error   { return f.stream.Close() }

// Hub is the swarm's per-process state: joined archives, a listener for
// inbound connections, and the active multiplexers for each connected peer.
type Hub struct {
	logger    *logging.Logger
	discovery Discovery
	muxConfig *multiplexing.Configuration

	mu                  sync.Mutex
	archivesByDiscovery map[keys.DiscoveryKey]*archive.Archive

	limiterMu  sync.Mutex
	upLimiter  *rate.Limiter
	downLimiter *rate.Limiter

	listener net.Listener
}

// New constructs a Hub. discovery may be nil, in which case Join/Leave still
// track local state but no inbound connections will ever be discovered
// (useful for single-process tests exercising the multiplexing path
// directly via HandleConnection).
func New(discovery Discovery, logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.RootLogger.Sublogger("swarm")
	}
	return &Hub{
		logger:              logger,
		discovery:           discovery,
		muxConfig:           multiplexing.DefaultConfiguration(),
		archivesByDiscovery: make(map[keys.DiscoveryKey]*archive.Archive),
	}
}

// SetBandwidthLimits installs new aggregate upload/download byte-rate
// limits. A zero limit disables throttling in that direction. The change
// affects only streams created after the call.
func (h *Hub) SetBandwidthLimits(uploadBytesPerSecond, downloadBytesPerSecond float64) {
	h.limiterMu.Lock()
	defer h.limiterMu.Unlock()
	if uploadBytesPerSecond > 0 {
		h.upLimiter = rate.NewLimiter(rate.Limit(uploadBytesPerSecond), int(uploadBytesPerSecond))
	} else {
		h.upLimiter = nil
	}
	if downloadBytesPerSecond > 0 {
		h.downLimiter = rate.NewLimiter(rate.Limit(downloadBytesPerSecond), int(downloadBytesPerSecond))
	} else {
		h.downLimiter = nil
	}
}

func (h *Hub) currentLimiters() (up, down *rate.Limiter) {
	h.limiterMu.Lock()
	defer h.limiterMu.Unlock()
	return h.upLimiter, h.downLimiter
}

// Listen binds a TCP listener at address, falling back once to an
// OS-assigned port on bind failure.
func (h *Hub) Listen(address string) (net.Addr, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		h.logger.Warnf("bind to %s failed, falling back to an OS-assigned port: %v", address, err)
		listener, err = net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, errors.Wrap(err, "unable to bind fallback listener")
		}
	}
	h.listener = listener
	return listener.Addr(), nil
}

// Serve accepts inbound connections until ctx is cancelled. It must be
// called after Listen.
func (h *Hub) Serve(ctx context.Context) error {
	if h.listener == nil {
		return errors.New("swarm hub is not listening")
	}
	go func() {
		<-ctx.Done()
		h.listener.Close()
	}()
	for {
		conn, err := h.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			h.logger.Errorf("accept failed: %v", err)
			continue
		}
		go h.HandleConnection(ctx, conn, false)
	}
}

// ServeDiscovery drains discovery-surfaced outbound peer connections until
// ctx is cancelled. It must be called after a Discovery was supplied to New.
func (h *Hub) ServeDiscovery(ctx context.Context) {
	if h.discovery == nil {
		return
	}
	for peerConn := range h.discovery.Connections(ctx) {
		go h.handleOutbound(ctx, peerConn)
	}
}

// Join announces a, idempotently.
func (h *Hub) Join(a *archive.Archive) {
	if a.IsSwarming() {
		return
	}
	h.mu.Lock()
	h.archivesByDiscovery[a.DiscoveryKey] = a
	h.mu.Unlock()

	if h.discovery != nil {
		if err := h.discovery.Announce(context.Background(), a.DiscoveryKey); err != nil {
			h.logger.Warnf("unable to announce archive %s: %v", a.Key.Hex(), err)
		}
	}
	a.SetSwarming(true)
	h.logger.Infof("joined archive %s", a.Key.Hex())
}

// Leave destroys all replication streams attached to a and deregisters its
// announcement.
func (h *Hub) Leave(a *archive.Archive) {
	h.mu.Lock()
	delete(h.archivesByDiscovery, a.DiscoveryKey)
	h.mu.Unlock()

	for _, stream := range a.Streams() {
		stream.Close()
		a.RemoveStream(stream)
	}

	if h.discovery != nil {
		if err := h.discovery.Unannounce(context.Background(), a.DiscoveryKey); err != nil {
			h.logger.Warnf("unable to unannounce archive %s: %v", a.Key.Hex(), err)
		}
	}
	a.SetSwarming(false)
	h.logger.Infof("left archive %s", a.Key.Hex())
}

func (h *Hub) archiveForDiscoveryKey(key keys.DiscoveryKey) *archive.Archive {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.archivesByDiscovery[key]
}

// HandleConnection multiplexes a raw connection and services inbound feed
// streams until the connection closes. even selects this side's outbound
// stream-identifier parity, per pkg/multiplexing's requirement that the two
// ends of a connection disagree.
func (h *Hub) HandleConnection(ctx context.Context, conn net.Conn, even bool) {
	peerID := conn.RemoteAddr().String()
	carrier := multiplexing.NewCarrierFromStream(conn)
	m := multiplexing.Multiplex(carrier, even, h.muxConfig)
	defer m.Close()

	for {
		stream, err := m.AcceptStream(ctx)
		if err != nil {
			if err != io.EOF && errors.Cause(err) != multiplexing.ErrMultiplexerClosed {
				h.logger.Debugf("peer %s: accept stream failed: %v", peerID, err)
			}
			return
		}
		go h.serviceFeed(stream, peerID)
	}
}

func (h *Hub) serviceFeed(stream *multiplexing.Stream, peerID string) {
	var header [feedHeaderSize]byte
	if _, err := io.ReadFull(stream, header[:]); err != nil {
		h.logger.Debugf("peer %s: failed to read feed header: %v", peerID, err)
		stream.Close()
		return
	}
	var discoveryKey keys.DiscoveryKey
	copy(discoveryKey[:], header[:])

	a := h.archiveForDiscoveryKey(discoveryKey)
	if a == nil {
		h.logger.Debugf("peer %s: %v", peerID, ErrUnknownDiscoveryKey)
		stream.Close()
		return
	}

	f := &feed{stream: stream, peerID: peerID}
	a.AddStream(f)
	h.logger.Infof("peer %s: opened feed for archive %s", peerID, a.Key.Hex())
}

// ThrottledReader wraps r with the hub's current aggregate download limit.
// A feed's Stream has no byte-rate concept of its own; no package in this
// module wraps a feed with ThrottledReader or ThrottledWriter.
func (h *Hub) ThrottledReader(r io.Reader) io.Reader {
	_, down := h.currentLimiters()
	return ThrottleReader(r, down)
}

// ThrottledWriter wraps w with the hub's current aggregate upload limit.
func (h *Hub) ThrottledWriter(w io.Writer) io.Writer {
	up, _ := h.currentLimiters()
	return ThrottleWriter(w, up)
}

// handleOutbound multiplexes a peer connection surfaced by Discovery and
// opens a feed for the archive that triggered the lookup.
func (h *Hub) handleOutbound(ctx context.Context, peerConn PeerConn) {
	a := h.archiveForDiscoveryKey(peerConn.DiscoveryKey())
	if a == nil {
		return
	}

	carrier := multiplexing.NewCarrierFromStream(peerConn.Conn())
	m := multiplexing.Multiplex(carrier, true, h.muxConfig)

	stream, err := m.OpenStream(ctx)
	if err != nil {
		h.logger.Warnf("unable to open feed stream to peer for archive %s: %v", a.Key.Hex(), err)
		m.Close()
		return
	}

	if _, err := stream.Write(a.DiscoveryKey[:]); err != nil {
		h.logger.Warnf("unable to write feed header for archive %s: %v", a.Key.Hex(), err)
		stream.Close()
		m.Close()
		return
	}

	peerID := fmt.Sprintf("%x", peerConn.DiscoveryKey())
	f := &feed{stream: stream, peerID: peerID}
	a.AddStream(f)
	h.logger.Infof("opened outbound feed to peer %s for archive %s", peerID, a.Key.Hex())
}

