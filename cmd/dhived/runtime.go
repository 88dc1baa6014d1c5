package main

import (
	"context"
	"path/filepath"

	"github.com/dhive/dhive/pkg/archive"
	"github.com/dhive/dhive/pkg/crawler"
	"github.com/dhive/dhive/pkg/fsutil"
	"github.com/dhive/dhive/pkg/keys"
	"github.com/dhive/dhive/pkg/swarm"
)

// localFSProvider resolves the two LocalFS trees syncengine.Engine operates
// against: the archive's own replicated tree, sharded under datPath the same
// way Archives/Meta is, and the caller-supplied bound folder.
type localFSProvider struct {
	datPath string
}

func (p *localFSProvider) archiveRoot(a *archive.Archive) string {
	hex := a.Key.Hex()
	return filepath.Join(p.datPath, "Archives", "LocalCopy", hex[:2], hex[2:])
}

func (p *localFSProvider) ArchiveFS(a *archive.Archive) (fsutil.FS, error) {
	return fsutil.NewLocalFS(p.archiveRoot(a)), nil
}

func (p *localFSProvider) FolderFS(a *archive.Archive, path string) (fsutil.FS, error) {
	return fsutil.NewLocalFS(path), nil
}

// fsChangeSource implements crawler.ChangeSource against an archive's
// replicated tree. The runtime has no independent per-file version log, so
// a crawl pass is triggered by a version bump and walks the current tree
// wholesale, reporting every file at the archive's current version. The
// crawler's per-dataset checkpoint (metastore.CrawlCheckpoint) only skips a
// pass when the version has not moved past it; once it has, every matching
// file is reported and re-indexed whether or not its content changed.
type fsChangeSource struct {
	fs *localFSProvider
}

func (s *fsChangeSource) Changes(ctx context.Context, a *archive.Archive, since uint64) ([]crawler.Change, error) {
	if a.Version() <= since {
		return nil, nil
	}
	tree, err := s.fs.ArchiveFS(a)
	if err != nil {
		return nil, err
	}
	var changes []crawler.Change
	var walk func(path string) error
	walk = func(path string) error {
		entries, err := tree.Readdir(ctx, path)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			full := filepath.Join(path, entry.Name)
			if entry.IsDir {
				if err := walk(full); err != nil {
					return err
				}
				continue
			}
			changes = append(changes, crawler.Change{Version: a.Version(), Path: full})
		}
		return nil
	}
	if err := walk(""); err != nil {
		return nil, err
	}
	return changes, nil
}

func (s *fsChangeSource) ReadFile(ctx context.Context, a *archive.Archive, path string) ([]byte, error) {
	tree, err := s.fs.ArchiveFS(a)
	if err != nil {
		return nil, err
	}
	return tree.ReadFile(ctx, path)
}

// dnsChecker adapts nameresolver.Resolver to crawler.DNSChecker; the two
// signatures already agree (archive.Key is a keys.Key alias) so this just
// satisfies the interface boundary pkg/crawler declares against itself
// instead of importing pkg/nameresolver directly.
type dnsChecker struct {
	resolve func(ctx context.Context, name string) (keys.Key, error)
}

func (d *dnsChecker) ResolveName(ctx context.Context, host string) (archive.Key, error) {
	return d.resolve(ctx, host)
}

// loopbackDiscovery is a no-op Discovery stand-in: Announce/Unannounce
// succeed trivially and Connections never surfaces a peer. It exists so
// SwarmHub always has a non-nil Discovery to drive instead of a nil one
// that would need its own special-casing; a production deployment wanting
// real peer discovery (DHT, mDNS, a tracker) plugs in a different Discovery
// implementation behind the same interface.
type loopbackDiscovery struct{}

func newLoopbackDiscovery() *loopbackDiscovery {
	return &loopbackDiscovery{}
}

func (d *loopbackDiscovery) Announce(ctx context.Context, key keys.DiscoveryKey) error   { return nil }
func (d *loopbackDiscovery) Unannounce(ctx context.Context, key keys.DiscoveryKey) error { return nil }

func (d *loopbackDiscovery) Connections(ctx context.Context) <-chan swarm.PeerConn {
	out := make(chan swarm.PeerConn)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out
}
