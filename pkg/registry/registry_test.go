package registry

import (
	"context"
	"testing"

	"github.com/dhive/dhive/pkg/archive"
	"github.com/dhive/dhive/pkg/dherrors"
	"github.com/dhive/dhive/pkg/metastore"
)

func newTestRegistry() *Registry {
	return New(Config{
		DatPath: "/home/user/.dhive",
		Store:   metastore.NewMemArchiveStore(),
	})
}

func TestLoadArchiveGeneratesNewKey(t *testing.T) {
	r := newTestRegistry()
	a, err := r.LoadArchive(context.Background(), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Writable {
		t.Error("a newly generated archive should be writable")
	}
	if r.GetArchive(a.Key) != a {
		t.Error("GetArchive should return the cached handle")
	}
}

func TestLoadArchiveRejectsInvalidURL(t *testing.T) {
	r := newTestRegistry()
	_, err := r.LoadArchive(context.Background(), "not a url at all", nil)
	if err == nil {
		t.Fatal("expected an error for an invalid URL")
	}
}

func TestUnloadArchiveIsIdempotent(t *testing.T) {
	r := newTestRegistry()
	a, err := r.LoadArchive(context.Background(), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	r.UnloadArchive(a.Key)
	r.UnloadArchive(a.Key)
	if r.GetArchive(a.Key) != nil {
		t.Error("archive should no longer be cached after unload")
	}
}

func TestConfigureArchiveRequiresWritable(t *testing.T) {
	r := newTestRegistry()
	a, err := r.LoadArchive(context.Background(), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	a.Writable = false
	err = r.ConfigureArchive(context.Background(), a, archive.UserSettings{IsSaved: true})
	if err != dherrors.ErrNotWritable {
		t.Errorf("err = %v, want ErrNotWritable", err)
	}
}

func TestConfigureArchiveDerivesBinding(t *testing.T) {
	r := newTestRegistry()
	a, err := r.LoadArchive(context.Background(), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	err = r.ConfigureArchive(context.Background(), a, archive.UserSettings{
		IsSaved:       true,
		LocalSyncPath: "/tmp/my-archive",
	})
	if err != nil {
		t.Fatal(err)
	}
	binding := a.Binding()
	if binding == nil {
		t.Fatal("expected a binding to be derived")
	}
	if binding.Path != "/tmp/my-archive" {
		t.Errorf("binding.Path = %q", binding.Path)
	}
	if !binding.AutoPublish {
		t.Error("expected AutoPublish=true for a non-preview explicit path")
	}
}

func TestGetArchiveCheckoutVersionOutOfRange(t *testing.T) {
	r := newTestRegistry()
	a, err := r.LoadArchive(context.Background(), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	a.SetVersion(5)
	_, err = r.GetArchiveCheckout(a, "10")
	if err != dherrors.ErrVersionOutOfRange {
		t.Errorf("err = %v, want ErrVersionOutOfRange", err)
	}
}

func TestGetArchiveCheckoutNoPreview(t *testing.T) {
	r := newTestRegistry()
	a, err := r.LoadArchive(context.Background(), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.GetArchiveCheckout(a, "preview")
	if err != dherrors.ErrNoPreview {
		t.Errorf("err = %v, want ErrNoPreview", err)
	}
}
