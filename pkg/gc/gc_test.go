package gc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dhive/dhive/pkg/archive"
	"github.com/dhive/dhive/pkg/metastore"
)

func testKey(b byte) archive.Key {
	var k archive.Key
	k[0] = b
	return k
}

type fakeUnloader struct {
	unloaded []archive.Key
}

func (f *fakeUnloader) UnloadArchive(key archive.Key) {
	f.unloaded = append(f.unloaded, key)
}

func TestRunExpiresThenCollectsUnusedArchives(t *testing.T) {
	store := metastore.NewMemArchiveStore()
	ctx := context.Background()

	expiredKey := testKey(1)
	store.SetMeta(ctx, archive.Meta{Key: expiredKey, Size: 100, LastAccessTime: time.Now().Add(-10 * 24 * time.Hour).Unix()})
	store.SetUserSettings(ctx, expiredKey, archive.UserSettings{IsSaved: true, ExpiresAt: time.Now().Add(-time.Hour).Unix()})

	savedKey := testKey(2)
	store.SetMeta(ctx, archive.Meta{Key: savedKey, Size: 50, LastAccessTime: time.Now().Add(-10 * 24 * time.Hour).Unix()})
	store.SetUserSettings(ctx, savedKey, archive.UserSettings{IsSaved: true})

	unloader := &fakeUnloader{}
	collector := New(Config{Store: store, Registry: unloader})

	result, err := collector.Run(ctx)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.TotalArchives != 1 || result.TotalBytes != 100 {
		t.Fatalf("expected 1 archive / 100 bytes freed, got %+v", result)
	}
	if len(unloader.unloaded) != 1 || unloader.unloaded[0] != expiredKey {
		t.Fatalf("expected expiredKey to be unloaded, got %+v", unloader.unloaded)
	}
	if _, ok, _ := store.GetMeta(ctx, expiredKey); ok {
		t.Error("expected expired archive's meta to be deleted")
	}
	if _, ok, _ := store.GetMeta(ctx, savedKey); !ok {
		t.Error("expected saved archive's meta to survive")
	}
}

func TestRunNeverDeletesSavedArchive(t *testing.T) {
	store := metastore.NewMemArchiveStore()
	ctx := context.Background()

	key := testKey(3)
	store.SetMeta(ctx, archive.Meta{Key: key, Size: 10, LastAccessTime: time.Now().Add(-30 * 24 * time.Hour).Unix()})
	store.SetUserSettings(ctx, key, archive.UserSettings{IsSaved: true})

	collector := New(Config{Store: store})
	result, err := collector.Run(ctx)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.TotalArchives != 0 {
		t.Fatalf("expected no archives collected, got %+v", result)
	}
	if _, ok, _ := store.GetMeta(ctx, key); !ok {
		t.Error("expected saved archive to survive")
	}
}

func TestSweepTrashRemovesOldEntries(t *testing.T) {
	trashDir := t.TempDir()
	oldEntry := filepath.Join(trashDir, "old")
	newEntry := filepath.Join(trashDir, "new")

	if err := os.WriteFile(oldEntry, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newEntry, []byte("fresh"), 0o644); err != nil {
		t.Fatal(err)
	}
	oldTime := time.Now().Add(-trashAge - time.Hour)
	if err := os.Chtimes(oldEntry, oldTime, oldTime); err != nil {
		t.Fatal(err)
	}

	collector := New(Config{Store: metastore.NewMemArchiveStore(), TrashPath: trashDir})
	freed, err := collector.sweepTrash()
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if freed != int64(len("stale")) {
		t.Errorf("expected %d bytes freed, got %d", len("stale"), freed)
	}
	if _, err := os.Stat(oldEntry); !os.IsNotExist(err) {
		t.Error("expected old trash entry to be removed")
	}
	if _, err := os.Stat(newEntry); err != nil {
		t.Error("expected new trash entry to survive")
	}
}

func TestRunRegularlyReturnsAfterCancellation(t *testing.T) {
	store := metastore.NewMemArchiveStore()
	collector := New(Config{Store: store})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		collector.RunRegularly(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected RunRegularly to return after context cancellation")
	}
}
