package syncengine

import (
	"context"
	"time"

	"github.com/dhive/dhive/pkg/archive"
	"github.com/dhive/dhive/pkg/fsutil"
)

// ConfigureBinding implements registry.SyncController: it is invoked every
// time an archive's UserSettings change. It is guarded by a monotonic
// generation counter so an in-flight call started by a now-superseded
// settings change self-aborts at its next checkpoint rather than racing a
// newer call.
func (e *Engine) ConfigureBinding(ctx context.Context, a *archive.Archive) {
	state := e.stateFor(a)
	state.mu.Lock()
	state.generation++
	generation := state.generation
	state.mu.Unlock()

	go e.runConfigureBinding(ctx, a, state, generation)
}

func (e *Engine) superseded(state *archiveState, generation uint64) bool {
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.generation != generation
}

func (e *Engine) runConfigureBinding(ctx context.Context, a *archive.Archive, state *archiveState, generation uint64) {
	e.teardownWatchers(state)

	binding := a.Binding()
	if binding == nil {
		return
	}

	if binding.IsUsingInternal {
		archiveFS, err := e.fs.ArchiveFS(a)
		if err == nil {
			_ = archiveFS.Mkdir(ctx, "")
		}
	}

	folderFS, err := e.fs.FolderFS(a, binding.Path)
	if err != nil {
		e.logger.Warnf("archive %s: local sync folder %q is unavailable: %v", a.Key.Hex(), binding.Path, err)
		return
	}
	if _, err := folderFS.Stat(ctx, ""); err != nil {
		e.logger.Warnf("archive %s: local sync folder %q does not exist, not installing watcher", a.Key.Hex(), binding.Path)
		return
	}
	if e.superseded(state, generation) {
		return
	}

	e.watchIgnoreFile(ctx, a, state, generation, folderFS)
	if e.superseded(state, generation) {
		return
	}

	if binding.AutoPublish {
		if err := e.MergeArchiveAndFolder(ctx, a); err != nil {
			e.logger.Warnf("archive %s: initial merge failed: %v", a.Key.Hex(), err)
		}
		if e.superseded(state, generation) {
			return
		}
		e.watchFolderRoot(ctx, a, state, generation, folderFS)
	} else {
		if err := e.SyncArchiveToFolder(ctx, a, true, false); err != nil {
			e.logger.Warnf("archive %s: initial preview sync failed: %v", a.Key.Hex(), err)
		}
	}
}

func (e *Engine) teardownWatchers(state *archiveState) {
	state.queueMu.Lock()
	defer state.queueMu.Unlock()
	if state.cancelRoot != nil {
		state.cancelRoot()
		state.cancelRoot = nil
	}
	if state.cancelIg != nil {
		state.cancelIg()
		state.cancelIg = nil
	}
}

func (e *Engine) watchIgnoreFile(ctx context.Context, a *archive.Archive, state *archiveState, generation uint64, folderFS fsutil.FS) {
	watchCtx, cancel := context.WithCancel(ctx)
	state.queueMu.Lock()
	state.cancelIg = cancel
	state.queueMu.Unlock()

	events, err := folderFS.Watch(watchCtx)
	if err != nil {
		e.logger.Warnf("archive %s: unable to watch .datignore: %v", a.Key.Hex(), err)
		return
	}
	go func() {
		for ev := range events {
			if ev.Path == ".datignore" && !e.superseded(state, generation) {
				e.logger.Debugf("archive %s: .datignore changed", a.Key.Hex())
			}
		}
	}()
}

func (e *Engine) watchFolderRoot(ctx context.Context, a *archive.Archive, state *archiveState, generation uint64, folderFS fsutil.FS) {
	watchCtx, cancel := context.WithCancel(ctx)
	state.queueMu.Lock()
	state.cancelRoot = cancel
	state.queueMu.Unlock()

	events, err := folderFS.Watch(watchCtx)
	if err != nil {
		e.logger.Warnf("archive %s: unable to watch local sync folder: %v", a.Key.Hex(), err)
		return
	}
	go func() {
		for range events {
			if e.superseded(state, generation) {
				return
			}
			e.QueueSyncEvent(ctx, a, SyncEventRequest{ToArchive: true})
		}
	}()
}

// SyncEventRequest names which direction(s) a watcher observed activity
// suggesting a sync is needed.
type SyncEventRequest struct {
	ToFolder  bool
	ToArchive bool
}

// QueueSyncEvent coalesces watcher-driven sync requests behind a 500ms
// debounce. If a sync is already running for this archive, the event is
// dropped, not queued, favoring freshness over exhaustive coverage of every
// intermediate state. If both directions are requested by the time the
// timer fires, toArchive wins (local folder is authoritative).
func (e *Engine) QueueSyncEvent(ctx context.Context, a *archive.Archive, req SyncEventRequest) {
	state := e.stateFor(a)

	state.queueMu.Lock()
	defer state.queueMu.Unlock()

	if state.isSyncing {
		return
	}

	if state.queue == nil {
		q := &pendingEvent{}
		state.queue = q
		q.timer = time.AfterFunc(debounceInterval, func() { e.fireQueuedSync(ctx, a, state, q) })
	}
	state.queue.toFolder = state.queue.toFolder || req.ToFolder
	state.queue.toArchive = state.queue.toArchive || req.ToArchive
}

func (e *Engine) fireQueuedSync(ctx context.Context, a *archive.Archive, state *archiveState, fired *pendingEvent) {
	state.queueMu.Lock()
	if state.queue != fired {
		state.queueMu.Unlock()
		return
	}
	toArchive := fired.toArchive
	toFolder := fired.toFolder && !fired.toArchive
	state.isSyncing = true
	state.queue = nil // replaced, not mutated: in-flight handlers keep their own closed queue
	state.queueMu.Unlock()

	defer func() {
		state.queueMu.Lock()
		state.isSyncing = false
		state.queueMu.Unlock()
	}()

	binding := a.Binding()
	if binding == nil {
		return
	}
	folderFS, err := e.fs.FolderFS(a, binding.Path)
	if err != nil {
		e.teardownWatchers(state)
		return
	}
	if _, statErr := folderFS.Stat(ctx, ""); statErr != nil {
		e.teardownWatchers(state)
		return
	}

	switch {
	case toArchive:
		err = e.SyncFolderToArchive(ctx, a, false, false)
	case toFolder:
		err = e.SyncArchiveToFolder(ctx, a, false, false)
	}
	if err != nil && e.sink != nil {
		e.sink.SyncError(a.Key.Hex(), err)
	}
}
