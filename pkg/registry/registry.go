// Package registry implements the archive cache: loading, caching, and
// unloading Archive handles, coalescing concurrent loads for the same key,
// and dispatching the side effects of a settings change to the swarm, sync,
// and autodownload subsystems.
package registry

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/dhive/dhive/pkg/archive"
	"github.com/dhive/dhive/pkg/archiveurl"
	"github.com/dhive/dhive/pkg/dherrors"
	"github.com/dhive/dhive/pkg/extbus"
	"github.com/dhive/dhive/pkg/keys"
	"github.com/dhive/dhive/pkg/logging"
	"github.com/dhive/dhive/pkg/metastore"
)

// NameResolver resolves a DNS host label to an archive key. Implemented by
// pkg/nameresolver; declared here, narrowly, so Registry doesn't import a
// concrete resolver.
type NameResolver interface {
	ResolveName(ctx context.Context, name string) (keys.Key, error)
}

// SwarmController is the subset of SwarmHub that Registry drives directly.
// Implemented by pkg/swarm.
type SwarmController interface {
	Join(a *archive.Archive)
	Leave(a *archive.Archive)
}

// SyncController is the subset of SyncEngine that Registry drives directly.
// Implemented by pkg/syncengine.
type SyncController interface {
	ConfigureBinding(ctx context.Context, a *archive.Archive)
}

// Autodownloader is the subset of the autodownload subsystem that Registry
// starts and stops based on UserSettings.
type Autodownloader interface {
	Start(a *archive.Archive)
	Stop(a *archive.Archive)
}

// loadFuture coalesces concurrent loadArchive calls for the same key.
type loadFuture struct {
	done    chan struct{}
	archive *archive.Archive
	err     error
}

// Registry materialises and caches Archive handles.
type Registry struct {
	datPath string

	store    metastore.ArchiveStore
	resolver NameResolver

	swarm        SwarmController
	sync         SyncController
	autodownload Autodownloader

	logger *logging.Logger

	mu          sync.Mutex
	byKey       map[keys.Key]*archive.Archive
	byDiscovery map[keys.DiscoveryKey]*archive.Archive
	inflight    map[keys.Key]*loadFuture
	extBuses    map[keys.Key]*extbus.Bus
}

// Config bundles Registry's dependencies as an explicit dependency struct
// rather than a long constructor argument list.
type Config struct {
	DatPath      string
	Store        metastore.ArchiveStore
	Resolver     NameResolver
	Swarm        SwarmController
	Sync         SyncController
	Autodownload Autodownloader
	Logger       *logging.Logger
}

// New constructs a Registry from cfg.
func New(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.RootLogger.Sublogger("registry")
	}
	return &Registry{
		datPath:      cfg.DatPath,
		store:        cfg.Store,
		resolver:     cfg.Resolver,
		swarm:        cfg.Swarm,
		sync:         cfg.Sync,
		autodownload: cfg.Autodownload,
		logger:       logger,
		byKey:        make(map[keys.Key]*archive.Archive),
		byDiscovery:  make(map[keys.DiscoveryKey]*archive.Archive),
		inflight:     make(map[keys.Key]*loadFuture),
		extBuses:     make(map[keys.Key]*extbus.Bus),
	}
}

// ExtensionBus returns the per-archive peer-messaging bus for key, creating
// it on first use. A Bus exists independent of whether the archive is
// currently joined to the swarm; HandlePeerConnect/Disconnect are simply
// never called for an unjoined archive.
func (r *Registry) ExtensionBus(a *archive.Archive) *extbus.Bus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bus, ok := r.extBuses[a.Key]; ok {
		return bus
	}
	bus := extbus.New(a, r.logger.Sublogger("extbus"))
	r.extBuses[a.Key] = bus
	return bus
}

// normalizeKey accepts a raw key, a 64-hex string, or a dat:// URL and
// returns the canonical Key plus a known/new flag. An empty keyOrURL
// requests a brand-new archive.
func (r *Registry) normalizeKey(keyOrURL string) (keys.Key, bool, error) {
	if keyOrURL == "" {
		return keys.Key{}, false, nil
	}
	if len(keyOrURL) == keys.Size*2 {
		if key, err := keys.ParseKey(keyOrURL); err == nil {
			return key, true, nil
		}
	}
	parsed, err := archiveurl.Parse(keyOrURL)
	if err != nil {
		return keys.Key{}, false, errors.Wrap(dherrors.ErrInvalidURL, err.Error())
	}
	if !parsed.IsHexKey() {
		if r.resolver == nil {
			return keys.Key{}, false, errors.Wrap(dherrors.ErrInvalidURL, "no name resolver configured for DNS host")
		}
		key, err := r.resolver.ResolveName(context.Background(), parsed.Host)
		if err != nil {
			return keys.Key{}, false, err
		}
		return key, true, nil
	}
	key, err := keys.ParseKey(parsed.Host)
	if err != nil {
		return keys.Key{}, false, errors.Wrap(dherrors.ErrInvalidURL, err.Error())
	}
	return key, true, nil
}

// LoadArchive materialises an Archive handle for keyOrURL, generating a new
// keypair if keyOrURL is empty. Concurrent calls for the same key are
// coalesced onto a single in-flight load.
func (r *Registry) LoadArchive(ctx context.Context, keyOrURL string, settings *archive.UserSettings) (*archive.Archive, error) {
	key, known, err := r.normalizeKey(keyOrURL)
	if err != nil {
		return nil, err
	}

	if known {
		if existing := r.GetArchive(key); existing != nil {
			return existing, nil
		}
	}

	if known {
		r.mu.Lock()
		if future, ok := r.inflight[key]; ok {
			r.mu.Unlock()
			<-future.done
			return future.archive, future.err
		}
		future := &loadFuture{done: make(chan struct{})}
		r.inflight[key] = future
		r.mu.Unlock()

		future.archive, future.err = r.doLoad(ctx, key, true, settings)

		r.mu.Lock()
		delete(r.inflight, key)
		r.mu.Unlock()
		close(future.done)
		return future.archive, future.err
	}

	// A brand-new archive: generate a keypair inline, no coalescing needed
	// since no other caller can possibly be racing on an unborn key.
	pair, err := keys.Generate()
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate archive keypair")
	}
	return r.doLoad(ctx, pair.Public, true, settings)
}

// doLoad performs the actual materialisation: inserting the Archive into
// both caches and persisting initial settings and metadata. It returns
// without waiting for any remote data.
func (r *Registry) doLoad(ctx context.Context, key keys.Key, writable bool, settings *archive.UserSettings) (*archive.Archive, error) {
	a := archive.New(key, writable)

	r.mu.Lock()
	r.byKey[a.Key] = a
	r.byDiscovery[a.DiscoveryKey] = a
	r.mu.Unlock()

	if settings != nil && r.store != nil {
		normalized := settings.Normalize()
		if err := r.store.SetUserSettings(ctx, key, normalized); err != nil {
			r.logger.Warnf("unable to persist user settings for %s: %v", key.Hex(), err)
		}
	}

	if r.store != nil {
		meta := archive.Meta{
			Key:            key,
			IsOwner:        writable,
			LastAccessTime: time.Now().Unix(),
		}
		if err := r.store.SetMeta(ctx, meta); err != nil {
			r.logger.Warnf("unable to persist meta for %s: %v", key.Hex(), err)
		}
	}

	r.logger.Infof("loaded archive %s (writable=%v)", key.Hex(), writable)
	return a, nil
}

// GetArchive looks up an already-loaded archive by key without any I/O.
// GetArchiveByURL takes a hex key or dat:// URL instead.
func (r *Registry) GetArchive(key keys.Key) *archive.Archive {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byKey[key]
}

// GetArchiveByURL resolves keyOrURL without loading, returning nil if not
// cached.
func (r *Registry) GetArchiveByURL(keyOrURL string) (*archive.Archive, error) {
	key, known, err := r.normalizeKey(keyOrURL)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, nil
	}
	return r.GetArchive(key), nil
}

// GetOrLoadArchive combines GetArchiveByURL and LoadArchive.
func (r *Registry) GetOrLoadArchive(ctx context.Context, keyOrURL string) (*archive.Archive, error) {
	if existing, err := r.GetArchiveByURL(keyOrURL); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}
	return r.LoadArchive(ctx, keyOrURL, nil)
}

// UnloadArchive detaches an archive from every subsystem and removes it from
// both caches. It's idempotent.
func (r *Registry) UnloadArchive(key keys.Key) {
	r.mu.Lock()
	a, ok := r.byKey[key]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.byKey, key)
	delete(r.byDiscovery, a.DiscoveryKey)
	delete(r.extBuses, key)
	r.mu.Unlock()

	if r.swarm != nil {
		r.swarm.Leave(a)
	}
	if r.autodownload != nil {
		r.autodownload.Stop(a)
	}
	r.logger.Infof("unloaded archive %s", key.Hex())
}

// GetArchiveCheckout returns a read-only view selector for version, which is
// "latest", "preview", or a decimal string representing a historical
// version. The concrete checkout filesystem is constructed by the caller
// (pkg/syncengine or the RPC surface) against the resolved version; Registry
// only validates the selector against the archive's bounds.
func (r *Registry) GetArchiveCheckout(a *archive.Archive, version string) (string, error) {
	switch version {
	case "", archiveurl.VersionLatest:
		return archiveurl.VersionLatest, nil
	case archiveurl.VersionPreview:
		if a.Binding() == nil {
			return "", dherrors.ErrNoPreview
		}
		return archiveurl.VersionPreview, nil
	default:
		requested, err := parseVersion(version)
		if err != nil {
			return "", errors.Wrap(dherrors.ErrVersionOutOfRange, err.Error())
		}
		if requested > a.Version() {
			return "", dherrors.ErrVersionOutOfRange
		}
		return version, nil
	}
}

func parseVersion(version string) (uint64, error) {
	return strconv.ParseUint(version, 10, 64)
}

// ConfigureArchive persists new settings, diffs them against the previous
// settings, and dispatches the resulting side effects.
func (r *Registry) ConfigureArchive(ctx context.Context, a *archive.Archive, settings archive.UserSettings) error {
	if !a.Writable {
		return dherrors.ErrNotWritable
	}
	settings = settings.Normalize()

	var previous archive.UserSettings
	if r.store != nil {
		if existing, ok, err := r.store.GetUserSettings(ctx, a.Key); err == nil && ok {
			previous = existing
		}
		if err := r.store.SetUserSettings(ctx, a.Key, settings); err != nil {
			return errors.Wrap(err, "unable to persist user settings")
		}
	}

	binding := archive.DeriveBinding(settings, a.Writable, r.datPath, a.Key.Hex())
	a.SetBinding(binding)

	if settings.Networked != previous.Networked {
		if settings.Networked && r.swarm != nil {
			r.swarm.Join(a)
		} else if !settings.Networked && r.swarm != nil {
			r.swarm.Leave(a)
		}
	}

	if settings.AutoDownload != previous.AutoDownload && r.autodownload != nil {
		if settings.AutoDownload {
			r.autodownload.Start(a)
		} else {
			r.autodownload.Stop(a)
		}
	}

	if r.sync != nil {
		r.sync.ConfigureBinding(ctx, a)
	}

	return nil
}

// Close unloads every cached archive. Used by cmd/dhived on shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	keysToUnload := make([]keys.Key, 0, len(r.byKey))
	for key := range r.byKey {
		keysToUnload = append(keysToUnload, key)
	}
	r.mu.Unlock()

	for _, key := range keysToUnload {
		r.UnloadArchive(key)
	}
}
