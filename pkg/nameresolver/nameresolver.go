// Package nameresolver resolves a host label to an archive key: either a
// pass-through of an already-canonical hex key, or a DNS-over-HTTPS lookup
// against one of a set of pluggable providers (randomly chosen with
// fallback on failure), backed by a persistent cache.
package nameresolver

import (
	"context"
	"math/rand"
	"sync"

	"github.com/pkg/errors"

	"github.com/dhive/dhive/pkg/dherrors"
	"github.com/dhive/dhive/pkg/encoding"
	"github.com/dhive/dhive/pkg/keys"
	"github.com/dhive/dhive/pkg/logging"
)

// Provider performs a single DoH lookup for name, returning the resolved
// archive key.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, name string) (keys.Key, error)
}

// cacheEntry is one persisted resolution outcome. A Miss entry records
// that every provider failed for name, so Resolve can skip the
// network round-trip on repeat lookups unless the caller opts out via
// ResolveOptions.IgnoreCachedMiss.
type cacheEntry struct {
	Key  string `json:"key,omitempty"`
	Miss bool   `json:"miss,omitempty"`
}

// Resolver resolves host labels to archive keys.
type Resolver struct {
	providers []Provider
	cachePath string
	logger    *logging.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// Config constructs a Resolver.
type Config struct {
	Providers []Provider
	CachePath string
	Logger    *logging.Logger
}

func New(cfg Config) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.RootLogger.Sublogger("nameresolver")
	}
	providers := cfg.Providers
	if providers == nil {
		providers = []Provider{NewCloudflareProvider(), NewGoogleProvider()}
	}
	r := &Resolver{
		providers: providers,
		cachePath: cfg.CachePath,
		logger:    logger,
		cache:     make(map[string]cacheEntry),
	}
	if r.cachePath != "" {
		loaded := make(map[string]cacheEntry)
		if err := encoding.LoadAndUnmarshalJSON(r.cachePath, &loaded); err == nil {
			r.cache = loaded
		}
	}
	return r
}

// ResolveOptions configures a single Resolve call.
type ResolveOptions struct {
	// IgnoreCachedMiss skips step 1's miss-caching logic, forcing a fresh
	// provider query even if the last lookup for this name failed.
	IgnoreCachedMiss bool
}

// ResolveName resolves name to an archive key using default options,
// satisfying the narrow NameResolver interface pkg/registry and
// pkg/crawler each declare.
func (r *Resolver) ResolveName(ctx context.Context, name string) (keys.Key, error) {
	return r.Resolve(ctx, name, ResolveOptions{})
}

// Resolve resolves name to an archive key. A 64-character hex string is
// treated as an already-canonical key and returned unchanged without
// touching the cache or providers.
func (r *Resolver) Resolve(ctx context.Context, name string, opts ResolveOptions) (keys.Key, error) {
	if key, err := keys.ParseKey(name); err == nil {
		return key, nil
	}

	r.mu.Lock()
	entry, hit := r.cache[name]
	r.mu.Unlock()
	if hit {
		if entry.Miss && !opts.IgnoreCachedMiss {
			return keys.Key{}, dherrors.ErrInvalidDomainName
		}
		if !entry.Miss {
			if key, err := keys.ParseKey(entry.Key); err == nil {
				return key, nil
			}
		}
	}

	key, err := r.queryProviders(ctx, name)
	if err != nil {
		r.recordMiss(name)
		return keys.Key{}, dherrors.ErrInvalidDomainName
	}

	r.recordHit(name, key)
	return key, nil
}

// queryProviders tries one randomly chosen provider, falling back to the
// others in a random order on failure.
func (r *Resolver) queryProviders(ctx context.Context, name string) (keys.Key, error) {
	if len(r.providers) == 0 {
		return keys.Key{}, errors.New("no name resolution providers configured")
	}

	order := rand.Perm(len(r.providers))
	var lastErr error
	for _, i := range order {
		provider := r.providers[i]
		key, err := provider.Resolve(ctx, name)
		if err == nil {
			return key, nil
		}
		r.logger.Warnf("provider %s: resolution of %q failed: %v", provider.Name(), name, err)
		lastErr = err
	}
	return keys.Key{}, errors.Wrap(lastErr, "all name resolution providers failed")
}

func (r *Resolver) recordHit(name string, key keys.Key) {
	r.mu.Lock()
	r.cache[name] = cacheEntry{Key: key.Hex()}
	r.mu.Unlock()
	r.persist()
}

func (r *Resolver) recordMiss(name string) {
	r.mu.Lock()
	r.cache[name] = cacheEntry{Miss: true}
	r.mu.Unlock()
	r.persist()
}

func (r *Resolver) persist() {
	if r.cachePath == "" {
		return
	}
	r.mu.Lock()
	snapshot := make(map[string]cacheEntry, len(r.cache))
	for k, v := range r.cache {
		snapshot[k] = v
	}
	r.mu.Unlock()
	if err := encoding.MarshalAndSaveJSON(r.cachePath, snapshot); err != nil {
		r.logger.Warnf("unable to persist name resolution cache: %v", err)
	}
}

// FlushCache discards every cached resolution, forcing the next call for
// any name to hit the providers again.
func (r *Resolver) FlushCache() {
	r.mu.Lock()
	r.cache = make(map[string]cacheEntry)
	r.mu.Unlock()
	r.persist()
}
