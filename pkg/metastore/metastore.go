// Package metastore defines the narrow interfaces the runtime consumes from
// the external, SQLite-backed metadata database. Nothing in this package
// talks to a real database; pkg/registry, pkg/gc, and pkg/crawler depend on
// these interfaces, and tests use the in-memory implementation in
// memstore.go.
package metastore

import (
	"context"

	"github.com/dhive/dhive/pkg/archive"
)

// ArchiveStore persists ArchiveMeta rows and per-profile UserSettings.
type ArchiveStore interface {
	Query(ctx context.Context) ([]archive.Meta, error)
	SetUserSettings(ctx context.Context, key archive.Key, settings archive.UserSettings) error
	GetUserSettings(ctx context.Context, key archive.Key) (archive.UserSettings, bool, error)
	GetMeta(ctx context.Context, key archive.Key) (archive.Meta, bool, error)
	SetMeta(ctx context.Context, meta archive.Meta) error
	Touch(ctx context.Context, key archive.Key) error
	DeleteArchive(ctx context.Context, key archive.Key) error
	ListExpiredArchives(ctx context.Context, now int64) ([]archive.Key, error)
	ListGarbageCollectableArchives(ctx context.Context, olderThan int64) ([]archive.Meta, error)
}

// SettingsStore persists daemon-wide key/value settings, notably the
// bandwidth-throttle limits that SwarmHub watches for changes.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	GetAll(ctx context.Context) (map[string]string, error)
	// OnChange registers a callback invoked whenever key is set. The
	// returned function deregisters the callback.
	OnChange(key string, callback func(value string)) (unsubscribe func())
}

// ProfileDataStore is the crawler's handle into arbitrary per-dataset SQL
// tables (statuses, comments, bookmarks, and so on). It's intentionally
// untyped at this layer: each indexer in pkg/crawler owns its own row shape
// and issues its own statements through Exec/Query.
type ProfileDataStore interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, dest any, query string, args ...any) error
}
