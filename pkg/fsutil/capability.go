package fsutil

import (
	"context"
	"io"
	"os"
	"time"
)

// Info describes a single filesystem entry, independent of which FS
// implementation produced it.
type Info struct {
	Name      string
	Size      int64
	IsDir     bool
	ModTime   time.Time
	Mode      os.FileMode
	ContentID string // implementation-defined content hash/version marker
}

// WatchEvent is delivered by Watch when something under the watched root
// changes. Path is relative to the FS root.
type WatchEvent struct {
	Path  string
	Error error
}

// FS is the capability set shared by every "archive-like filesystem" in the
// runtime: the live archive, a historical checkout, the bound local folder,
// and the preview (folder-filtered-by-ignore-rules) view. Every sync/diff
// operation in pkg/syncengine is written generically against this interface
// instead of switching on concrete type, per the object-shape-polymorphism
// re-architecture.
type FS interface {
	// Stat returns metadata for path, or an error satisfying os.IsNotExist.
	Stat(ctx context.Context, path string) (*Info, error)
	// ReadFile returns the full contents of the file at path.
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// CreateReadStream opens path for streamed reading.
	CreateReadStream(ctx context.Context, path string) (io.ReadCloser, error)
	// Readdir lists the immediate children of path.
	Readdir(ctx context.Context, path string) ([]*Info, error)
	// WriteFile writes (creating or replacing) the file at path.
	WriteFile(ctx context.Context, path string, data []byte) error
	// Mkdir creates the directory at path, including parents.
	Mkdir(ctx context.Context, path string) error
	// Unlink removes the file at path.
	Unlink(ctx context.Context, path string) error
	// Rmdir removes the (empty) directory at path.
	Rmdir(ctx context.Context, path string) error
	// Watch subscribes to changes under the FS root until ctx is cancelled.
	// The implementation closes the returned channel on cancellation.
	Watch(ctx context.Context) (<-chan WatchEvent, error)
	// ReadManifest returns the raw bytes of the manifest (/dat.json), or an
	// error satisfying os.IsNotExist if none is present.
	ReadManifest(ctx context.Context) ([]byte, error)
	// WriteManifest writes the raw bytes of the manifest.
	WriteManifest(ctx context.Context, data []byte) error
	// ReadSize returns the total byte size of the tree rooted at the FS root.
	ReadSize(ctx context.Context) (int64, error)
}
