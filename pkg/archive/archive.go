package archive

import (
	"sync"
	"time"

	"github.com/dhive/dhive/pkg/keys"
)

// PeerSample is one point-in-time reading of an archive's swarm peer count,
// retained for the runtime state's peer-count history.
type PeerSample struct {
	Time  time.Time
	Count int
}

// ReplicationStream is the minimal handle SwarmHub exposes back to an
// Archive for bookkeeping; the stream's transport details live in
// pkg/swarm, not here, to avoid a swarm→archive import cycle.
type ReplicationStream interface {
	PeerID() string
	Close() error
}

// Archive is a handle to a single append-only archive log. The Registry is
// the sole owner: it constructs, mutates, and destroys Archive values. Every
// other subsystem holds a reference obtained through the Registry and must
// not retain it past an unload.
type Archive struct {
	Key          Key
	DiscoveryKey DiscoveryKey

	// Writable is true iff this process holds the archive's secret key. It
	// is fixed for the lifetime of the handle.
	Writable bool

	mu sync.Mutex

	version  uint64
	size     int64
	manifest *Manifest

	isSwarming bool
	streams    []ReplicationStream
	peerStats  []PeerSample

	binding *LocalSyncBinding

	autodownloading bool
}

// New constructs an Archive handle for an already-resolved key pair.
func New(key Key, writable bool) *Archive {
	return &Archive{
		Key:          key,
		DiscoveryKey: keys.Discovery(key),
		Writable:     writable,
		manifest:     &Manifest{},
	}
}

// Version returns the archive's current sequence number.
func (a *Archive) Version() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.version
}

// SetVersion advances the archive's version. It never moves backward, per
// the data model's invariant.
func (a *Archive) SetVersion(v uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v > a.version {
		a.version = v
	}
}

// Size returns the archive's current content size in bytes.
func (a *Archive) Size() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.size
}

// SetSize updates the archive's recorded content size.
func (a *Archive) SetSize(size int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.size = size
}

// Manifest returns a copy of the archive's current manifest.
func (a *Archive) Manifest() Manifest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return *a.manifest
}

// SetManifest replaces the archive's manifest.
func (a *Archive) SetManifest(m *Manifest) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.manifest = m
}

// IsSwarming reports whether SwarmHub currently has this archive joined.
func (a *Archive) IsSwarming() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isSwarming
}

// SetSwarming updates the swarming flag; called by SwarmHub on join/leave.
func (a *Archive) SetSwarming(swarming bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.isSwarming = swarming
}

// AddStream records a newly-established replication stream.
func (a *Archive) AddStream(stream ReplicationStream) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.streams = append(a.streams, stream)
}

// RemoveStream drops a replication stream from tracking, e.g. on
// error/end/finish/close.
func (a *Archive) RemoveStream(stream ReplicationStream) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, s := range a.streams {
		if s == stream {
			a.streams = append(a.streams[:i], a.streams[i+1:]...)
			return
		}
	}
}

// Streams returns a snapshot of the archive's active replication streams.
func (a *Archive) Streams() []ReplicationStream {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ReplicationStream, len(a.streams))
	copy(out, a.streams)
	return out
}

// RecordPeerSample appends a peer-count history sample, capping history at
// the most recent 288 samples (a day at 5-minute resolution) by dropping the
// oldest samples.
func (a *Archive) RecordPeerSample(t time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.peerStats = append(a.peerStats, PeerSample{Time: t, Count: len(a.streams)})
	const maxSamples = 288
	if len(a.peerStats) > maxSamples {
		a.peerStats = a.peerStats[len(a.peerStats)-maxSamples:]
	}
}

// PeerHistory returns a copy of the archive's peer-count samples.
func (a *Archive) PeerHistory() []PeerSample {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]PeerSample, len(a.peerStats))
	copy(out, a.peerStats)
	return out
}

// Binding returns the archive's current local-sync binding, or nil if
// unbound.
func (a *Archive) Binding() *LocalSyncBinding {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.binding
}

// SetBinding installs or clears the archive's local-sync binding.
func (a *Archive) SetBinding(binding *LocalSyncBinding) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.binding = binding
}
