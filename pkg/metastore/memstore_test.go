package metastore

import (
	"context"
	"testing"

	"github.com/dhive/dhive/pkg/archive"
)

func TestMemArchiveStoreRoundTrip(t *testing.T) {
	store := NewMemArchiveStore()
	ctx := context.Background()

	var key archive.Key
	key[0] = 1
	meta := archive.Meta{Key: key, Title: "hello"}

	if err := store.SetMeta(ctx, meta); err != nil {
		t.Fatal(err)
	}
	got, ok, err := store.GetMeta(ctx, key)
	if err != nil || !ok {
		t.Fatalf("GetMeta() = %v, %v, %v", got, ok, err)
	}
	if got.Title != "hello" {
		t.Errorf("Title = %q, want hello", got.Title)
	}
}

func TestMemArchiveStoreListExpired(t *testing.T) {
	store := NewMemArchiveStore()
	ctx := context.Background()

	var key archive.Key
	key[0] = 2
	if err := store.SetUserSettings(ctx, key, archive.UserSettings{ExpiresAt: 100}); err != nil {
		t.Fatal(err)
	}

	expired, err := store.ListExpiredArchives(ctx, 200)
	if err != nil {
		t.Fatal(err)
	}
	if len(expired) != 1 || expired[0] != key {
		t.Errorf("ListExpiredArchives() = %v, want [%v]", expired, key)
	}

	notYetExpired, err := store.ListExpiredArchives(ctx, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(notYetExpired) != 0 {
		t.Errorf("ListExpiredArchives(50) = %v, want empty", notYetExpired)
	}
}

func TestMemSettingsStoreOnChange(t *testing.T) {
	store := NewMemSettingsStore()
	ctx := context.Background()

	var seen string
	unsubscribe := store.OnChange("bandwidth.up", func(value string) { seen = value })

	if err := store.Set(ctx, "bandwidth.up", "1000"); err != nil {
		t.Fatal(err)
	}
	if seen != "1000" {
		t.Errorf("seen = %q, want 1000", seen)
	}

	unsubscribe()
	if err := store.Set(ctx, "bandwidth.up", "2000"); err != nil {
		t.Fatal(err)
	}
	if seen != "1000" {
		t.Errorf("seen = %q after unsubscribe, want unchanged 1000", seen)
	}
}
