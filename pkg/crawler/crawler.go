// Package crawler indexes the structured JSON datasets archives expose
// (status posts, comments, bookmarks, follows, reactions, votes, site
// descriptions, and followed-archive lists) into queryable rows, resuming
// from a per-archive-per-dataset checkpoint so a crash mid-pass picks back
// up at the last successfully applied file, fanning out independent passes
// over one archive's changes across a worker pool, one per indexer.
package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dhive/dhive/pkg/archive"
	"github.com/dhive/dhive/pkg/logging"
	"github.com/dhive/dhive/pkg/metastore"
	"github.com/dhive/dhive/pkg/parallelism"
)

// watchDebounce is the fixed debounce window between a watched archive
// change and the next crawlSite pass.
const watchDebounce = 5 * time.Second

// Change describes one entry in an archive's version history, as consumed
// by the crawler. Deleted changes carry no content.
type Change struct {
	Version uint64
	Path    string
	Deleted bool
}

// ChangeSource is the crawler's view into an archive's append-only log:
// enumerate changes since a checkpoint, and read a path's current content.
// Implemented against the real storage layer; pkg/crawler only depends on
// this narrow interface.
type ChangeSource interface {
	Changes(ctx context.Context, a *archive.Archive, since uint64) ([]Change, error)
	ReadFile(ctx context.Context, a *archive.Archive, path string) ([]byte, error)
}

// DNSChecker resolves a host to its currently-bound archive key, used to
// detect a DNS binding change for a crawl source. Implemented by
// pkg/nameresolver.
type DNSChecker interface {
	ResolveName(ctx context.Context, host string) (archive.Key, error)
}

// EventSink receives the crawler's lifecycle and per-dataset events (spec
// §6's "Emitted events"). A nil sink is simply not called.
type EventSink interface {
	CrawlStart(archiveKey string)
	CrawlDNSChange(archiveKey string)
	CrawlError(archiveKey, dataset string, err error)
	CrawlFinish(archiveKey string)
	RowChanged(dataset, kind, sourceID, pathname string) // kind: added|updated|removed
}

// Crawler runs crawl passes for archives against a fixed set of Indexers.
type Crawler struct {
	store    metastore.CrawlStore
	changes  ChangeSource
	resolver DNSChecker
	sink     EventSink
	logger   *logging.Logger
	pool     *parallelism.Pool
	indexers []Indexer

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	timers map[string]*time.Timer
}

// Config constructs a Crawler.
type Config struct {
	Store    metastore.CrawlStore
	Changes  ChangeSource
	Resolver DNSChecker
	Sink     EventSink
	Logger   *logging.Logger
	Indexers []Indexer
}

func New(cfg Config) *Crawler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.RootLogger.Sublogger("crawler")
	}
	indexers := cfg.Indexers
	if indexers == nil {
		indexers = DefaultIndexers()
	}
	return &Crawler{
		store:    cfg.Store,
		changes:  cfg.Changes,
		resolver: cfg.Resolver,
		sink:     cfg.Sink,
		logger:   logger,
		pool:     parallelism.NewPool(len(indexers)),
		indexers: indexers,
		locks:    make(map[string]*sync.Mutex),
		timers:   make(map[string]*time.Timer),
	}
}

func (c *Crawler) lockFor(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	return l
}

// CrawlSite runs one full crawl pass for a: ensures its CrawlSource row,
// detects a DNS binding change, fans each indexer out in parallel, and
// persists any binding change once all indexers have finished.
func (c *Crawler) CrawlSite(ctx context.Context, a *archive.Archive, hostLabel string, isPrivate bool) error {
	lock := c.lockFor(a.Key.Hex())
	lock.Lock()
	defer lock.Unlock()

	if c.sink != nil {
		c.sink.CrawlStart(a.Key.Hex())
	}

	source, err := c.store.EnsureSource(ctx, hostLabel, isPrivate)
	if err != nil {
		return err
	}

	globalReset := false
	resolvedBinding := ""
	if c.resolver != nil && hostLabel != "" {
		resolved, resolveErr := c.resolver.ResolveName(ctx, hostLabel)
		if resolveErr == nil && resolved.Hex() != source.DNSBindingID {
			resolvedBinding = resolved.Hex()
			if source.DNSBindingID != "" {
				globalReset = true
				if c.sink != nil {
					c.sink.CrawlDNSChange(a.Key.Hex())
				}
			}
		}
	}

	tasks := make([]parallelism.Task, len(c.indexers))
	for i, indexer := range c.indexers {
		indexer := indexer
		tasks[i] = func() error {
			err := c.runIndexer(ctx, a, source, indexer, globalReset)
			if err != nil && c.sink != nil {
				c.sink.CrawlError(a.Key.Hex(), indexer.Dataset(), err)
			}
			return err
		}
	}
	runErr := c.pool.Run(tasks)

	if resolvedBinding != "" {
		if err := c.store.UpdateSourceBinding(ctx, source.ID, resolvedBinding); err != nil {
			c.logger.Warnf("archive %s: unable to persist DNS binding: %v", a.Key.Hex(), err)
		}
	}

	if c.sink != nil {
		c.sink.CrawlFinish(a.Key.Hex())
	}
	return runErr
}

// runIndexer performs one indexer's crawl pass for one archive: apply any
// required dataset reset, then walk changes since the last checkpoint.
func (c *Crawler) runIndexer(ctx context.Context, a *archive.Archive, source metastore.CrawlSource, indexer Indexer, globalReset bool) error {
	checkpoint, ok, err := c.store.GetCheckpoint(ctx, source.ID, indexer.Dataset())
	if err != nil {
		return err
	}
	if !ok {
		checkpoint = metastore.CrawlCheckpoint{SourceID: source.ID, Dataset: indexer.Dataset()}
	}

	resetRequired := globalReset || checkpoint.TableVersion < indexer.TableVersion()
	if resetRequired {
		if err := c.store.ResetDataset(ctx, source.ID, indexer.Dataset()); err != nil {
			return err
		}
		checkpoint.LastSeenVersion = 0
		checkpoint.TableVersion = indexer.TableVersion()
	}

	changes, err := c.changes.Changes(ctx, a, checkpoint.LastSeenVersion)
	if err != nil {
		return err
	}

	for _, change := range changes {
		if !indexer.Matches(change.Path) {
			continue
		}

		if change.Deleted {
			if err := c.store.DeleteRow(ctx, indexer.Dataset(), source.ID, change.Path); err != nil {
				return err
			}
			if c.sink != nil {
				c.sink.RowChanged(indexer.Dataset(), "removed", source.ID, change.Path)
			}
		} else {
			data, err := c.changes.ReadFile(ctx, a, change.Path)
			if err != nil {
				// Read failures abort this indexer's pass without advancing
				// the checkpoint, so the file is retried on the next pass.
				return err
			}
			row, decodeErr := indexer.Decode(data)
			if decodeErr != nil {
				c.logger.Warnf("archive %s: %s: skipping %s: %v", a.Key.Hex(), indexer.Dataset(), change.Path, decodeErr)
				checkpoint.LastSeenVersion = change.Version
				if err := c.store.SetCheckpoint(ctx, checkpoint); err != nil {
					return err
				}
				continue
			}
			if err := c.store.UpsertRow(ctx, indexer.Dataset(), source.ID, change.Path, row); err != nil {
				return err
			}
			if c.sink != nil {
				c.sink.RowChanged(indexer.Dataset(), "updated", source.ID, change.Path)
			}
		}

		checkpoint.LastSeenVersion = change.Version
		if err := c.store.SetCheckpoint(ctx, checkpoint); err != nil {
			return err
		}
	}

	return nil
}

// WatchSite installs a debounced change listener that re-crawls a after
// watchDebounce of inactivity, returning an unwatch function. Installing a
// second watch for the same archive is a no-op; call unwatch first.
func (c *Crawler) WatchSite(ctx context.Context, a *archive.Archive, hostLabel string, isPrivate bool, notify <-chan struct{}) (unwatch func()) {
	key := a.Key.Hex()
	watchCtx, cancel := context.WithCancel(ctx)

	go func() {
		for {
			select {
			case <-watchCtx.Done():
				return
			case _, ok := <-notify:
				if !ok {
					return
				}
				c.mu.Lock()
				if timer, exists := c.timers[key]; exists {
					timer.Stop()
				}
				c.timers[key] = time.AfterFunc(watchDebounce, func() {
					if err := c.CrawlSite(watchCtx, a, hostLabel, isPrivate); err != nil {
						c.logger.Warnf("archive %s: watched crawl failed: %v", key, err)
					}
				})
				c.mu.Unlock()
			}
		}
	}()

	return func() {
		cancel()
		c.mu.Lock()
		if timer, exists := c.timers[key]; exists {
			timer.Stop()
			delete(c.timers, key)
		}
		c.mu.Unlock()
	}
}

// unmarshalStrict decodes data into v, rejecting unknown fields so an
// indexer's schema check catches malformed documents rather than silently
// ignoring extra data.
func unmarshalStrict(data []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
