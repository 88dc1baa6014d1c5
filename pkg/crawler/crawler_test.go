package crawler

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/dhive/dhive/pkg/archive"
	"github.com/dhive/dhive/pkg/metastore"
)

type memFile struct {
	path    string
	content []byte
	deleted bool
}

// fakeChangeSource is an in-memory, version-ordered append log keyed by
// archive, used to drive the crawler without a real storage layer.
type fakeChangeSource struct {
	mu      sync.Mutex
	history map[archive.Key][]memFile
	version uint64
}

func newFakeChangeSource() *fakeChangeSource {
	return &fakeChangeSource{history: make(map[archive.Key][]memFile)}
}

func (f *fakeChangeSource) write(key archive.Key, path string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.version++
	f.history[key] = append(f.history[key], memFile{path: path, content: content})
}

func (f *fakeChangeSource) delete(key archive.Key, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.version++
	f.history[key] = append(f.history[key], memFile{path: path, deleted: true})
}

func (f *fakeChangeSource) Changes(_ context.Context, a *archive.Archive, since uint64) ([]Change, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.history[a.Key]
	var out []Change
	for i, entry := range all {
		version := uint64(i + 1)
		if version <= since {
			continue
		}
		out = append(out, Change{Version: version, Path: entry.path, Deleted: entry.deleted})
	}
	return out, nil
}

func (f *fakeChangeSource) ReadFile(_ context.Context, a *archive.Archive, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.history[a.Key]
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].path == path && !all[i].deleted {
			return all[i].content, nil
		}
	}
	return nil, fmt.Errorf("no such file: %s", path)
}

func testArchive(b byte) *archive.Archive {
	var key archive.Key
	key[0] = b
	return archive.New(key, true)
}

func TestCrawlSiteIndexesMatchingFiles(t *testing.T) {
	ctx := context.Background()
	store := metastore.NewMemCrawlStore()
	changes := newFakeChangeSource()
	a := testArchive(1)

	changes.write(a.Key, "/.data/statuses/1.json", []byte(`{"text":"hello","createdAt":"2026-01-01"}`))
	changes.write(a.Key, "/dat.json", []byte(`{"title":"My Site"}`))

	crawler := New(Config{Store: store, Changes: changes})
	if err := crawler.CrawlSite(ctx, a, "example.com", false); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	rows := store.Rows("statuses")
	if len(rows) != 1 {
		t.Fatalf("expected 1 status row, got %d", len(rows))
	}
	descRows := store.Rows("site-descriptions")
	if len(descRows) != 1 {
		t.Fatalf("expected 1 site-description row, got %d", len(descRows))
	}
}

func TestCrawlSiteSkipsInvalidDocumentsWithoutAborting(t *testing.T) {
	ctx := context.Background()
	store := metastore.NewMemCrawlStore()
	changes := newFakeChangeSource()
	a := testArchive(2)

	changes.write(a.Key, "/.data/statuses/bad.json", []byte(`{"text":""}`))
	changes.write(a.Key, "/.data/statuses/good.json", []byte(`{"text":"ok","createdAt":"2026-01-01"}`))

	crawler := New(Config{Store: store, Changes: changes})
	if err := crawler.CrawlSite(ctx, a, "", false); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	rows := store.Rows("statuses")
	if len(rows) != 1 {
		t.Fatalf("expected 1 status row (bad one skipped), got %d", len(rows))
	}
}

func TestCrawlSiteDeleteRemovesRow(t *testing.T) {
	ctx := context.Background()
	store := metastore.NewMemCrawlStore()
	changes := newFakeChangeSource()
	a := testArchive(3)

	changes.write(a.Key, "/.data/bookmarks/x.json", []byte(`{"href":"https://example.com"}`))
	crawler := New(Config{Store: store, Changes: changes})
	if err := crawler.CrawlSite(ctx, a, "", false); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if len(store.Rows("bookmarks")) != 1 {
		t.Fatalf("expected 1 bookmark row")
	}

	changes.delete(a.Key, "/.data/bookmarks/x.json")
	if err := crawler.CrawlSite(ctx, a, "", false); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if len(store.Rows("bookmarks")) != 0 {
		t.Fatalf("expected bookmark row to be removed after delete")
	}
}

func TestCrawlSiteResumesFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := metastore.NewMemCrawlStore()
	changes := newFakeChangeSource()
	a := testArchive(4)

	changes.write(a.Key, "/.data/statuses/1.json", []byte(`{"text":"one","createdAt":"2026-01-01"}`))
	crawler := New(Config{Store: store, Changes: changes})
	if err := crawler.CrawlSite(ctx, a, "", false); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	checkpoint, ok, err := store.GetCheckpoint(ctx, "", "statuses")
	if err != nil || !ok {
		t.Fatalf("expected checkpoint to exist, ok=%v err=%v", ok, err)
	}
	if checkpoint.LastSeenVersion != 1 {
		t.Fatalf("expected checkpoint at version 1, got %d", checkpoint.LastSeenVersion)
	}

	changes.write(a.Key, "/.data/statuses/2.json", []byte(`{"text":"two","createdAt":"2026-01-02"}`))
	if err := crawler.CrawlSite(ctx, a, "", false); err != nil {
		t.Fatalf("second crawl failed: %v", err)
	}
	if len(store.Rows("statuses")) != 2 {
		t.Fatalf("expected 2 status rows after resuming, got %d", len(store.Rows("statuses")))
	}
}

type fakeDNSChecker struct {
	key archive.Key
	err error
}

func (f *fakeDNSChecker) ResolveName(_ context.Context, _ string) (archive.Key, error) {
	return f.key, f.err
}

func TestCrawlSiteResetsDatasetsOnDNSBindingChange(t *testing.T) {
	ctx := context.Background()
	store := metastore.NewMemCrawlStore()
	changes := newFakeChangeSource()
	a := testArchive(5)

	changes.write(a.Key, "/.data/statuses/1.json", []byte(`{"text":"one","createdAt":"2026-01-01"}`))

	oldKey := testArchive(9).Key
	crawler := New(Config{Store: store, Changes: changes, Resolver: &fakeDNSChecker{key: oldKey}})
	if err := crawler.CrawlSite(ctx, a, "example.com", false); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if len(store.Rows("statuses")) != 1 {
		t.Fatalf("expected 1 row after first crawl")
	}

	newKey := testArchive(7).Key
	crawler2 := New(Config{Store: store, Changes: changes, Resolver: &fakeDNSChecker{key: newKey}})
	if err := crawler2.CrawlSite(ctx, a, "example.com", false); err != nil {
		t.Fatalf("second crawl failed: %v", err)
	}
	// Dataset was reset then reprocessed from scratch; the row should still
	// exist (it's the same file, reprocessed), but the checkpoint advanced
	// from zero again.
	if len(store.Rows("statuses")) != 1 {
		t.Fatalf("expected 1 row after reset+reprocess, got %d", len(store.Rows("statuses")))
	}
}
