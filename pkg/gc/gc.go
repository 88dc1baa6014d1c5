// Package gc implements garbage collection over the archive registry: an
// age-based eviction pass over stored archives, plus a trash sweep, run on
// a timer using a "clear any pending timer, run, reschedule even on error"
// background-loop shape over the archive and trash targets.
package gc

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/dhive/dhive/pkg/archive"
	"github.com/dhive/dhive/pkg/logging"
	"github.com/dhive/dhive/pkg/metastore"
)

const (
	// initialDelay is the delay before the first collection after process
	// start.
	initialDelay = 30 * time.Second
	// interval is the steady-state period between collections.
	interval = 15 * time.Minute
	// unusedAge is how long an archive must sit with isSaved=false and no
	// access before it becomes garbage-collectable.
	unusedAge = 7 * 24 * time.Hour
	// trashAge is how long a trash entry survives before being swept.
	trashAge = 7 * 24 * time.Hour
)

// Unloader removes an archive from the live registry cache. Implemented by
// pkg/registry.Registry; declared narrowly here so this package doesn't
// import pkg/registry.
type Unloader interface {
	UnloadArchive(key archive.Key)
}

// Result is the outcome of one collection pass.
type Result struct {
	TotalBytes      int64
	TotalArchives   int
	SkippedArchives int
}

// Collector runs garbage collection passes against an ArchiveStore, a
// registry Unloader, and an on-disk trash directory.
type Collector struct {
	store     metastore.ArchiveStore
	registry  Unloader
	trashPath string
	logger    *logging.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// Config constructs a Collector.
type Config struct {
	Store     metastore.ArchiveStore
	Registry  Unloader
	TrashPath string
	Logger    *logging.Logger
}

func New(cfg Config) *Collector {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.RootLogger.Sublogger("gc")
	}
	return &Collector{
		store:     cfg.Store,
		registry:  cfg.Registry,
		trashPath: cfg.TrashPath,
		logger:    logger,
	}
}

// RunRegularly performs an initial collection initialDelay after being
// called, then a collection every interval, until ctx is cancelled. Any
// pending timer is cleared before each run and a new one scheduled on
// completion, even if the run errored.
func (c *Collector) RunRegularly(ctx context.Context) {
	c.scheduleNext(ctx, initialDelay)
	<-ctx.Done()
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()
}

func (c *Collector) scheduleNext(ctx context.Context, delay time.Duration) {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(delay, func() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		result, err := c.Run(ctx)
		if err != nil {
			c.logger.Warnf("garbage collection pass failed: %v", err)
		} else {
			c.logger.Infof("garbage collection freed %s across %d archives (%d skipped)",
				humanize.Bytes(uint64(result.TotalBytes)), result.TotalArchives, result.SkippedArchives)
		}
		c.scheduleNext(ctx, interval)
	})
	c.mu.Unlock()
}

// Run performs one collection pass: expire archives past their expiresAt,
// unload+delete unused archives, and sweep the trash directory.
func (c *Collector) Run(ctx context.Context) (Result, error) {
	var result Result

	if err := c.expireArchives(ctx); err != nil {
		return result, err
	}

	bytesFreed, archivesFreed, skipped, err := c.collectUnusedArchives(ctx)
	if err != nil {
		return result, err
	}
	result.TotalBytes += bytesFreed
	result.TotalArchives += archivesFreed
	result.SkippedArchives += skipped

	trashBytes, err := c.sweepTrash()
	if err != nil {
		return result, err
	}
	result.TotalBytes += trashBytes

	return result, nil
}

// expireArchives sets isSaved=false on every archive whose expiresAt has
// passed.
func (c *Collector) expireArchives(ctx context.Context) error {
	expired, err := c.store.ListExpiredArchives(ctx, time.Now().Unix())
	if err != nil {
		return err
	}
	for _, key := range expired {
		settings, ok, err := c.store.GetUserSettings(ctx, key)
		if err != nil || !ok {
			continue
		}
		settings.IsSaved = false
		settings = settings.Normalize()
		if err := c.store.SetUserSettings(ctx, key, settings); err != nil {
			c.logger.Warnf("archive %s: unable to persist expiry: %v", key.Hex(), err)
		}
	}
	return nil
}

// collectUnusedArchives unloads and deletes every archive that is unsaved
// and has gone unaccessed for longer than unusedAge.
func (c *Collector) collectUnusedArchives(ctx context.Context) (bytesFreed int64, archivesFreed, skipped int, err error) {
	candidates, err := c.store.ListGarbageCollectableArchives(ctx, time.Now().Add(-unusedAge).Unix())
	if err != nil {
		return 0, 0, 0, err
	}

	for _, meta := range candidates {
		key := meta.Key

		// Belt-and-braces invariant check: never delete a saved archive
		// regardless of what the store query returned.
		settings, ok, settingsErr := c.store.GetUserSettings(ctx, key)
		if settingsErr == nil && ok && settings.IsSaved {
			skipped++
			continue
		}

		if c.registry != nil {
			c.registry.UnloadArchive(key)
		}
		if err := c.store.DeleteArchive(ctx, key); err != nil {
			c.logger.Warnf("archive %s: unable to delete metadata: %v", key.Hex(), err)
			skipped++
			continue
		}
		bytesFreed += meta.Size
		archivesFreed++
	}

	return bytesFreed, archivesFreed, skipped, nil
}

// sweepTrash deletes trash directory entries older than trashAge, summing
// the bytes freed. Files and directories are removed recursively; it does
// not attempt to unmount bind mounts (no-op on this platform set).
func (c *Collector) sweepTrash() (int64, error) {
	if c.trashPath == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(c.trashPath)
	if os.IsNotExist(err) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}

	var freed int64
	cutoff := time.Now().Add(-trashAge)
	for _, entry := range entries {
		fullPath := filepath.Join(c.trashPath, entry.Name())
		info, err := os.Stat(fullPath)
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		size, _ := dirSize(fullPath)
		if err := os.RemoveAll(fullPath); err != nil {
			c.logger.Warnf("trash entry %s: unable to remove: %v", entry.Name(), err)
			continue
		}
		freed += size
	}
	return freed, nil
}

func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total, err
}
