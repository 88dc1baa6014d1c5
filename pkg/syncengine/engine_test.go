package syncengine

import (
	"context"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dhive/dhive/pkg/archive"
	"github.com/dhive/dhive/pkg/fsutil"
)

// fakeFS is a minimal in-memory fsutil.FS double, mirroring
// pkg/syncengine/core's test double but independently defined since Go test
// doubles aren't shared across package boundaries.
type fakeFS struct {
	mu    sync.Mutex
	files map[string]string
}

func newFakeFS() *fakeFS { return &fakeFS{files: make(map[string]string)} }

func (f *fakeFS) set(p, contents string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[p] = contents
}

func (f *fakeFS) Stat(ctx context.Context, p string) (*fsutil.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p == "" {
		return &fsutil.Info{IsDir: true}, nil
	}
	if contents, ok := f.files[p]; ok {
		return &fsutil.Info{Name: path.Base(p), Size: int64(len(contents)), ContentID: contents}, nil
	}
	prefix := p + "/"
	for name := range f.files {
		if strings.HasPrefix(name, prefix) {
			return &fsutil.Info{Name: path.Base(p), IsDir: true}, nil
		}
	}
	return nil, os.ErrNotExist
}

func (f *fakeFS) ReadFile(ctx context.Context, p string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	contents, ok := f.files[p]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(contents), nil
}

func (f *fakeFS) CreateReadStream(ctx context.Context, p string) (io.ReadCloser, error) {
	return nil, os.ErrInvalid
}

func (f *fakeFS) Readdir(ctx context.Context, p string) ([]*fsutil.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := p
	if prefix != "" {
		prefix += "/"
	}
	seen := make(map[string]bool)
	var infos []*fsutil.Info
	for name := range f.files {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		segment := strings.SplitN(rest, "/", 2)[0]
		if seen[segment] {
			continue
		}
		seen[segment] = true
		info, _ := f.Stat(ctx, path.Join(p, segment))
		infos = append(infos, info)
	}
	return infos, nil
}

func (f *fakeFS) WriteFile(ctx context.Context, p string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[p] = string(data)
	return nil
}

func (f *fakeFS) Mkdir(ctx context.Context, p string) error { return nil }

func (f *fakeFS) Unlink(ctx context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, p)
	return nil
}

func (f *fakeFS) Rmdir(ctx context.Context, p string) error { return nil }

func (f *fakeFS) Watch(ctx context.Context) (<-chan fsutil.WatchEvent, error) {
	ch := make(chan fsutil.WatchEvent)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (f *fakeFS) ReadManifest(ctx context.Context) ([]byte, error) {
	return f.ReadFile(ctx, "dat.json")
}

func (f *fakeFS) WriteManifest(ctx context.Context, data []byte) error {
	return f.WriteFile(ctx, "dat.json", data)
}

func (f *fakeFS) ReadSize(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, contents := range f.files {
		total += int64(len(contents))
	}
	return total, nil
}

type fakeProvider struct {
	archiveFS *fakeFS
	folderFS  *fakeFS
}

func (p *fakeProvider) ArchiveFS(a *archive.Archive) (fsutil.FS, error) { return p.archiveFS, nil }
func (p *fakeProvider) FolderFS(a *archive.Archive, path string) (fsutil.FS, error) {
	return p.folderFS, nil
}

type fakeSink struct {
	mu       sync.Mutex
	errs     []error
	syncedTo []bool
}

func (s *fakeSink) SyncError(archiveKey string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *fakeSink) FolderSynced(archiveKey string, toArchive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncedTo = append(s.syncedTo, toArchive)
}

func testArchiveWithBinding(writable bool) *archive.Archive {
	var k archive.Key
	k[0] = 3
	a := archive.New(k, writable)
	a.SetBinding(&archive.LocalSyncBinding{Path: "/local", AutoPublish: true})
	return a
}

func TestSyncArchiveToFolderCopiesContent(t *testing.T) {
	archiveFS := newFakeFS()
	archiveFS.set("hello.txt", "world")
	folderFS := newFakeFS()

	engine := New(Config{FS: &fakeProvider{archiveFS: archiveFS, folderFS: folderFS}, Sink: &fakeSink{}})
	a := testArchiveWithBinding(false)

	if err := engine.SyncArchiveToFolder(context.Background(), a, false, false); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if got, _ := folderFS.ReadFile(context.Background(), "hello.txt"); string(got) != "world" {
		t.Errorf("expected folder to receive hello.txt, got %q", got)
	}
}

func TestSyncFolderToArchiveRequiresWritable(t *testing.T) {
	engine := New(Config{FS: &fakeProvider{archiveFS: newFakeFS(), folderFS: newFakeFS()}})
	a := testArchiveWithBinding(false)

	err := engine.SyncFolderToArchive(context.Background(), a, false, false)
	if err == nil {
		t.Fatal("expected error for non-writable archive")
	}
}

func TestQueueSyncEventDropsWhileSyncing(t *testing.T) {
	archiveFS := newFakeFS()
	folderFS := newFakeFS()
	engine := New(Config{FS: &fakeProvider{archiveFS: archiveFS, folderFS: folderFS}})
	a := testArchiveWithBinding(true)

	state := engine.stateFor(a)
	state.queueMu.Lock()
	state.isSyncing = true
	state.queueMu.Unlock()

	engine.QueueSyncEvent(context.Background(), a, SyncEventRequest{ToArchive: true})

	state.queueMu.Lock()
	queued := state.queue
	state.queueMu.Unlock()
	if queued != nil {
		t.Fatal("expected event to be dropped while isSyncing")
	}
}

func TestQueueSyncEventToArchiveWinsOnConflict(t *testing.T) {
	archiveFS := newFakeFS()
	folderFS := newFakeFS()
	folderFS.set("from-folder.txt", "f")
	archiveFS.set("from-archive.txt", "a")

	sink := &fakeSink{}
	engine := New(Config{FS: &fakeProvider{archiveFS: archiveFS, folderFS: folderFS}, Sink: sink})
	a := testArchiveWithBinding(true)

	engine.QueueSyncEvent(context.Background(), a, SyncEventRequest{ToFolder: true})
	engine.QueueSyncEvent(context.Background(), a, SyncEventRequest{ToArchive: true})

	deadline := time.After(2 * time.Second)
	for {
		if got, _ := archiveFS.ReadFile(context.Background(), "from-folder.txt"); string(got) == "f" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for folder->archive sync to apply")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestEnsureSyncFinishedWaitsForActiveSync(t *testing.T) {
	engine := New(Config{FS: &fakeProvider{archiveFS: newFakeFS(), folderFS: newFakeFS()}})
	a := testArchiveWithBinding(false)

	state := engine.stateFor(a)
	state.mu.Lock()
	state.activeSyncs = 1
	state.mu.Unlock()

	done := make(chan struct{})
	go func() {
		engine.EnsureSyncFinished(context.Background(), a)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected EnsureSyncFinished to block while activeSyncs > 0")
	case <-time.After(50 * time.Millisecond):
	}

	state.mu.Lock()
	state.activeSyncs = 0
	state.mu.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected EnsureSyncFinished to return once activeSyncs reaches 0")
	}
}
