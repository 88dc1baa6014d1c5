package core

import (
	"context"
	"io"
	"os"
	"path"
	"strings"

	"github.com/dhive/dhive/pkg/fsutil"
)

// memFS is a minimal in-memory fsutil.FS double used only by this package's
// tests, keyed by flat slash-separated paths with no real directory nodes
// (directories are synthesized from file path prefixes).
type memFS struct {
	files map[string]string
}

func newMemFS() *memFS {
	return &memFS{files: make(map[string]string)}
}

func (m *memFS) set(path, contents string) {
	m.files[path] = contents
}

func (m *memFS) Stat(ctx context.Context, p string) (*fsutil.Info, error) {
	if p == "" {
		return &fsutil.Info{IsDir: true}, nil
	}
	if contents, ok := m.files[p]; ok {
		return &fsutil.Info{Name: path.Base(p), Size: int64(len(contents)), ContentID: contents}, nil
	}
	prefix := p + "/"
	for name := range m.files {
		if strings.HasPrefix(name, prefix) {
			return &fsutil.Info{Name: path.Base(p), IsDir: true}, nil
		}
	}
	return nil, os.ErrNotExist
}

func (m *memFS) ReadFile(ctx context.Context, p string) ([]byte, error) {
	contents, ok := m.files[p]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(contents), nil
}

func (m *memFS) CreateReadStream(ctx context.Context, p string) (io.ReadCloser, error) {
	return nil, os.ErrInvalid
}

func (m *memFS) Readdir(ctx context.Context, p string) ([]*fsutil.Info, error) {
	prefix := p
	if prefix != "" {
		prefix += "/"
	}
	seen := make(map[string]bool)
	var infos []*fsutil.Info
	for name := range m.files {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		segment := strings.SplitN(rest, "/", 2)[0]
		if seen[segment] {
			continue
		}
		seen[segment] = true
		info, _ := m.Stat(ctx, path.Join(p, segment))
		infos = append(infos, info)
	}
	return infos, nil
}

func (m *memFS) WriteFile(ctx context.Context, p string, data []byte) error {
	m.files[p] = string(data)
	return nil
}

func (m *memFS) Mkdir(ctx context.Context, p string) error { return nil }

func (m *memFS) Unlink(ctx context.Context, p string) error {
	delete(m.files, p)
	return nil
}

func (m *memFS) Rmdir(ctx context.Context, p string) error { return nil }

func (m *memFS) Watch(ctx context.Context) (<-chan fsutil.WatchEvent, error) {
	ch := make(chan fsutil.WatchEvent)
	close(ch)
	return ch, nil
}

func (m *memFS) ReadManifest(ctx context.Context) ([]byte, error) {
	return m.ReadFile(ctx, "dat.json")
}

func (m *memFS) WriteManifest(ctx context.Context, data []byte) error {
	return m.WriteFile(ctx, "dat.json", data)
}

func (m *memFS) ReadSize(ctx context.Context) (int64, error) {
	var total int64
	for _, contents := range m.files {
		total += int64(len(contents))
	}
	return total, nil
}

var _ fsutil.FS = (*memFS)(nil)
