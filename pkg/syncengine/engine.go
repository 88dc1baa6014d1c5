// Package syncengine maintains eventual equivalence between an archive's
// tree and its bound local folder: a per-archive serialized lock around
// diff/apply work (pkg/syncengine/core), a debounced watcher-driven event
// queue, and a monotonic generation counter guarding configureBinding
// against overlapping settings changes, all built around a two-filesystem
// archive<->folder reconciliation model rather than three-way session sync.
package syncengine

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/dhive/dhive/pkg/archive"
	"github.com/dhive/dhive/pkg/dherrors"
	"github.com/dhive/dhive/pkg/fsutil"
	"github.com/dhive/dhive/pkg/logging"
	"github.com/dhive/dhive/pkg/syncengine/core"
)

// debounceInterval is the fixed coalescing window for queued sync events.
const debounceInterval = 500 * time.Millisecond

// defaultIgnoreFile is used when a folder has no .datignore of its own.
const defaultIgnoreFile = ""

// FSProvider resolves the two filesystem-like views an Engine operates
// against for a given archive: its replicated tree, and the local folder
// bound to it (nil if unbound).
type FSProvider interface {
	ArchiveFS(a *archive.Archive) (fsutil.FS, error)
	FolderFS(a *archive.Archive, path string) (fsutil.FS, error)
}

// archiveState is the Engine's per-archive bookkeeping: the serializing
// lock, the active configureBinding generation, the debounce queue, and the
// watcher cancellation functions installed by the current binding.
type archiveState struct {
	mu          sync.Mutex // serializes diff-and-apply work for this archive
	generation  uint64
	activeSyncs int

	queueMu    sync.Mutex
	queue      *pendingEvent
	isSyncing  bool
	cancelRoot context.CancelFunc
	cancelIg   context.CancelFunc
}

type pendingEvent struct {
	toFolder  bool
	toArchive bool
	timer     *time.Timer
}

// EventSink receives sync errors (including a CycleError, surfaced as a
// named failure rather than thrown) and folder-synced notifications.
// Registry wires its own event bus in here; nil is valid and simply drops
// events.
type EventSink interface {
	SyncError(archiveKey string, err error)
	FolderSynced(archiveKey string, toArchive bool)
}

// Engine is the SyncEngine. One Engine serves every loaded archive; a
// per-archive archiveState is created lazily.
type Engine struct {
	datPath string
	fs      FSProvider
	sink    EventSink
	logger  *logging.Logger

	mu     sync.Mutex
	states map[string]*archiveState
}

// Config constructs an Engine.
type Config struct {
	DatPath string
	FS      FSProvider
	Sink    EventSink
	Logger  *logging.Logger
}

func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.RootLogger.Sublogger("syncengine")
	}
	return &Engine{
		datPath: cfg.DatPath,
		fs:      cfg.FS,
		sink:    cfg.Sink,
		logger:  logger,
		states:  make(map[string]*archiveState),
	}
}

func (e *Engine) stateFor(a *archive.Archive) *archiveState {
	key := a.Key.Hex()
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.states[key]
	if !ok {
		s = &archiveState{}
		e.states[key] = s
	}
	return s
}

// SyncArchiveToFolder applies the archive's tree onto its bound folder. No
// writability requirement.
func (e *Engine) SyncArchiveToFolder(ctx context.Context, a *archive.Archive, addOnly, shallow bool) error {
	binding := a.Binding()
	if binding == nil {
		return nil
	}
	archiveFS, folderFS, err := e.openBoth(ctx, a, binding.Path)
	if err != nil {
		return err
	}
	return e.sync(ctx, a, archiveFS, folderFS, addOnly, shallow, false)
}

// SyncFolderToArchive applies the folder's tree onto the archive. Fails
// ErrNotWritable unless the archive is writable.
func (e *Engine) SyncFolderToArchive(ctx context.Context, a *archive.Archive, addOnly, shallow bool) error {
	if !a.Writable {
		return dherrors.ErrNotWritable
	}
	binding := a.Binding()
	if binding == nil {
		return nil
	}
	archiveFS, folderFS, err := e.openBoth(ctx, a, binding.Path)
	if err != nil {
		return err
	}
	return e.sync(ctx, a, folderFS, archiveFS, addOnly, shallow, true)
}

func (e *Engine) openBoth(ctx context.Context, a *archive.Archive, folderPath string) (archiveFS, folderFS fsutil.FS, err error) {
	archiveFS, err = e.fs.ArchiveFS(a)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to open archive filesystem")
	}
	folderFS, err = e.fs.FolderFS(a, folderPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to open folder filesystem")
	}
	return archiveFS, folderFS, nil
}

// sync performs one directional diff+apply, serialized behind the archive's
// lock. toArchive labels the direction for the FolderSynced event.
func (e *Engine) sync(ctx context.Context, a *archive.Archive, left, right fsutil.FS, addOnly, shallow, toArchive bool) error {
	state := e.stateFor(a)
	state.mu.Lock()
	state.activeSyncs++
	defer func() {
		state.activeSyncs--
		state.mu.Unlock()
	}()

	folderSide, otherSide := left, right
	if !toArchive {
		folderSide, otherSide = right, left
	}
	ignorer, err := e.loadIgnorer(ctx, folderSide, otherSide)
	if err != nil {
		return err
	}

	changes, err := core.Diff(ctx, left, right, core.DiffOptions{Shallow: shallow, Ignore: ignorer})
	if err != nil {
		return err
	}
	if err := core.Apply(ctx, left, right, changes, core.ApplyOptions{AddOnly: addOnly}); err != nil {
		if e.sink != nil {
			e.sink.SyncError(a.Key.Hex(), err)
		}
		return err
	}

	if e.sink != nil {
		e.sink.FolderSynced(a.Key.Hex(), toArchive)
	}
	return nil
}

// loadIgnorer reads .datignore from whichever side has it (folder side
// takes priority, since the rules are meant to be user-editable there), and
// falls back to the built-in default set when absent.
func (e *Engine) loadIgnorer(ctx context.Context, sides ...fsutil.FS) (*core.Ignorer, error) {
	for _, side := range sides {
		contents, err := side.ReadFile(ctx, ".datignore")
		if err == nil {
			return core.ParseIgnoreFile(contents)
		}
	}
	return core.ParseIgnoreFile([]byte(defaultIgnoreFile))
}

// MergeArchiveAndFolder performs the initial reconciliation when a folder
// is first bound to an archive: merge manifests with the folder winning
// conflicts, then archive->folder addOnly, then folder->archive, both
// non-shallow.
func (e *Engine) MergeArchiveAndFolder(ctx context.Context, a *archive.Archive) error {
	binding := a.Binding()
	if binding == nil {
		return nil
	}
	archiveFS, folderFS, err := e.openBoth(ctx, a, binding.Path)
	if err != nil {
		return err
	}

	archiveManifest, err := archive.ReadManifest(ctx, archiveFS)
	if err != nil {
		return err
	}
	folderManifest, err := archive.ReadManifest(ctx, folderFS)
	if err != nil {
		return err
	}
	merged := archive.MergeManifests(archiveManifest, folderManifest)
	if err := archive.WriteManifest(ctx, folderFS, merged); err != nil {
		return err
	}

	if err := e.sync(ctx, a, archiveFS, folderFS, true, false, false); err != nil {
		return err
	}
	return e.sync(ctx, a, folderFS, archiveFS, false, false, true)
}

// EnsureSyncFinished blocks until no diff-and-apply work is active for a.
func (e *Engine) EnsureSyncFinished(ctx context.Context, a *archive.Archive) {
	state := e.stateFor(a)
	for {
		state.mu.Lock()
		active := state.activeSyncs
		state.mu.Unlock()
		if active == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}
