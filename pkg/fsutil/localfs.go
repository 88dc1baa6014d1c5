package fsutil

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// manifestName is the reserved path for an archive's manifest file.
const manifestName = "dat.json"

// LocalFS is an FS backed by a real directory on disk. It's used both for a
// user-bound sync folder and for an archive's internal local-copy folder
// (`Archives/LocalCopy/...`).
type LocalFS struct {
	root string
}

// NewLocalFS creates a LocalFS rooted at root. The directory is not created;
// callers that need it to exist should call Mkdir(ctx, "") first.
func NewLocalFS(root string) *LocalFS {
	return &LocalFS{root: root}
}

// Root returns the filesystem root path.
func (l *LocalFS) Root() string { return l.root }

func (l *LocalFS) resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", errors.New("path must be relative")
	}
	full := filepath.Join(l.root, path)
	// Guard against escaping the root via ".." components.
	rel, err := filepath.Rel(l.root, full)
	if err != nil || rel == ".." || len(rel) >= 3 && rel[:3] == "../" {
		return "", errors.Errorf("path escapes root: %s", path)
	}
	return full, nil
}

// Stat implements FS.Stat.
func (l *LocalFS) Stat(_ context.Context, path string) (*Info, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	return infoFromFileInfo(stat), nil
}

func infoFromFileInfo(stat os.FileInfo) *Info {
	return &Info{
		Name:    stat.Name(),
		Size:    stat.Size(),
		IsDir:   stat.IsDir(),
		ModTime: stat.ModTime(),
		Mode:    stat.Mode(),
	}
}

// ReadFile implements FS.ReadFile.
func (l *LocalFS) ReadFile(_ context.Context, path string) ([]byte, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// CreateReadStream implements FS.CreateReadStream.
func (l *LocalFS) CreateReadStream(_ context.Context, path string) (io.ReadCloser, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Readdir implements FS.Readdir.
func (l *LocalFS) Readdir(_ context.Context, path string) ([]*Info, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, err
	}
	result := make([]*Info, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		result = append(result, infoFromFileInfo(info))
	}
	return result, nil
}

// WriteFile implements FS.WriteFile.
func (l *LocalFS) WriteFile(_ context.Context, path string, data []byte) error {
	if path == manifestName {
		return errors.New("dat.json is protected and cannot be written via WriteFile")
	}
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return err
	}
	return WriteFileAtomic(full, data, 0644)
}

// Mkdir implements FS.Mkdir.
func (l *LocalFS) Mkdir(_ context.Context, path string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	return os.MkdirAll(full, 0755)
}

// Unlink implements FS.Unlink.
func (l *LocalFS) Unlink(_ context.Context, path string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

// Rmdir implements FS.Rmdir.
func (l *LocalFS) Rmdir(_ context.Context, path string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

// ReadManifest implements FS.ReadManifest.
func (l *LocalFS) ReadManifest(ctx context.Context) ([]byte, error) {
	return l.ReadFile(ctx, manifestName)
}

// WriteManifest implements FS.WriteManifest, bypassing the WriteFile
// protection on dat.json since this is the one sanctioned writer.
func (l *LocalFS) WriteManifest(_ context.Context, data []byte) error {
	full, err := l.resolve(manifestName)
	if err != nil {
		return err
	}
	return WriteFileAtomic(full, data, 0644)
}

// ReadSize implements FS.ReadSize by summing file sizes under the root.
func (l *LocalFS) ReadSize(_ context.Context) (int64, error) {
	var total int64
	err := filepath.WalkDir(l.root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

// Watch implements FS.Watch using fsnotify, watching every directory under
// the root and each directory created later. It returns an error if the
// watcher cannot be created or the existing tree cannot be added to it.
func (l *LocalFS) Watch(ctx context.Context) (<-chan WatchEvent, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create watcher")
	}

	if err := addRecursive(watcher, l.root); err != nil {
		watcher.Close()
		return nil, err
	}

	events := make(chan WatchEvent, 64)
	go func() {
		defer close(events)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				rel, err := filepath.Rel(l.root, event.Name)
				if err != nil {
					continue
				}
				if event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = watcher.Add(event.Name)
					}
				}
				select {
				case events <- WatchEvent{Path: filepath.ToSlash(rel)}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				select {
				case events <- WatchEvent{Error: err}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
