// Package extbus implements per-archive peer messaging: ephemeral
// broadcast/point-to-point messages and small per-peer session data,
// delivered over the feed streams SwarmHub already has open for each
// archive. This is the concrete shape of the Dat ecosystem's
// `ephemeral`/`session-data` extension messages.
package extbus

import (
	"errors"
	"sync"

	"github.com/dhive/dhive/pkg/archive"
	"github.com/dhive/dhive/pkg/logging"
)

// errSessionDataTooLarge is returned by SetLocalSessionData when the
// payload exceeds maxSessionDataSize.
var errSessionDataTooLarge = errors.New("session data exceeds maximum size")

// ContentType distinguishes the two payload encodings an ephemeral message
// may carry.
type ContentType string

const (
	ContentTypeOctetStream ContentType = "application/octet-stream"
	ContentTypeJSON        ContentType = "application/json"
)

// maxSessionDataSize is the per-peer session data size cap.
const maxSessionDataSize = 256

// Message is an ephemeral, fire-and-forget payload.
type Message struct {
	ContentType ContentType
	Payload     []byte
}

// Event is one of the four event kinds a Bus consumer receives, named by
// Kind.
type Event struct {
	Kind        EventKind
	PeerID      string
	SessionData []byte
	Message     Message
}

// EventKind enumerates the ExtensionBus's event kinds.
type EventKind int

const (
	EventConnect EventKind = iota
	EventDisconnect
	EventMessage
	EventSessionData
)

// peerState tracks what a Bus knows about one connected peer.
type peerState struct {
	sessionData []byte
}

// Bus is the per-archive extension bus. One Bus is created per archive when
// Registry loads it.
type Bus struct {
	archiveKey string
	logger     *logging.Logger

	mu          sync.Mutex
	localData   []byte
	peers       map[string]*peerState
	subscribers []chan Event
}

// New constructs a Bus for the given archive.
func New(a *archive.Archive, logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.RootLogger.Sublogger("extbus")
	}
	return &Bus{
		archiveKey: a.Key.Hex(),
		logger:     logger,
		peers:      make(map[string]*peerState),
	}
}

// Subscribe registers a new event consumer. The returned channel is closed
// when unsubscribe is called.
func (b *Bus) Subscribe() (events <-chan Event, unsubscribe func()) {
	ch := make(chan Event, 32)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.subscribers {
			if sub == ch {
				b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
				close(ch)
				return
			}
		}
	}
}

func (b *Bus) emit(event Event) {
	b.mu.Lock()
	subscribers := append([]chan Event{}, b.subscribers...)
	b.mu.Unlock()

	for _, sub := range subscribers {
		select {
		case sub <- event:
		default:
			b.logger.Warnf("dropping event for archive %s: subscriber channel full", b.archiveKey)
		}
	}
}

// HandlePeerConnect is called by SwarmHub when a peer's handshake
// completes. It records the peer and emits a connect event, then sends our
// local session data to the peer via send.
func (b *Bus) HandlePeerConnect(peerID string, send func(sessionData []byte) error) {
	b.mu.Lock()
	b.peers[peerID] = &peerState{}
	local := b.localData
	b.mu.Unlock()

	b.emit(Event{Kind: EventConnect, PeerID: peerID})

	if send != nil {
		if err := send(local); err != nil {
			b.logger.Debugf("unable to send session data to peer %s: %v", peerID, err)
		}
	}
}

// HandlePeerDisconnect is called by SwarmHub when a feed to peerID closes.
func (b *Bus) HandlePeerDisconnect(peerID string) {
	b.mu.Lock()
	state, ok := b.peers[peerID]
	delete(b.peers, peerID)
	b.mu.Unlock()

	var sessionData []byte
	if ok {
		sessionData = state.sessionData
	}
	b.emit(Event{Kind: EventDisconnect, PeerID: peerID, SessionData: sessionData})
}

// HandleSessionData is called when a session-data update arrives from a
// peer. Oversized payloads are truncated to maxSessionDataSize rather than
// rejected outright, since session data is advisory state.
func (b *Bus) HandleSessionData(peerID string, data []byte) {
	if len(data) > maxSessionDataSize {
		data = data[:maxSessionDataSize]
	}

	b.mu.Lock()
	state, ok := b.peers[peerID]
	if !ok {
		state = &peerState{}
		b.peers[peerID] = state
	}
	state.sessionData = data
	b.mu.Unlock()

	b.emit(Event{Kind: EventSessionData, PeerID: peerID, SessionData: data})
}

// HandleMessage is called when an ephemeral message arrives from a peer.
func (b *Bus) HandleMessage(peerID string, message Message) {
	b.mu.Lock()
	var sessionData []byte
	if state, ok := b.peers[peerID]; ok {
		sessionData = state.sessionData
	}
	b.mu.Unlock()

	b.emit(Event{Kind: EventMessage, PeerID: peerID, SessionData: sessionData, Message: message})
}

// SetLocalSessionData updates this process's own session data and
// broadcasts it to every connected peer via broadcast.
func (b *Bus) SetLocalSessionData(data []byte, broadcast func(sessionData []byte) error) error {
	if len(data) > maxSessionDataSize {
		return errSessionDataTooLarge
	}
	b.mu.Lock()
	b.localData = data
	b.mu.Unlock()

	if broadcast != nil {
		return broadcast(data)
	}
	return nil
}
