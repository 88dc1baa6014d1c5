package metastore

import (
	"context"
	"sync"

	"github.com/dhive/dhive/pkg/archive"
	"github.com/pkg/errors"
)

// MemArchiveStore is an in-memory ArchiveStore for tests.
type MemArchiveStore struct {
	mu       sync.Mutex
	metas    map[archive.Key]archive.Meta
	settings map[archive.Key]archive.UserSettings
}

// NewMemArchiveStore constructs an empty MemArchiveStore.
func NewMemArchiveStore() *MemArchiveStore {
	return &MemArchiveStore{
		metas:    make(map[archive.Key]archive.Meta),
		settings: make(map[archive.Key]archive.UserSettings),
	}
}

func (s *MemArchiveStore) Query(_ context.Context) ([]archive.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]archive.Meta, 0, len(s.metas))
	for _, m := range s.metas {
		out = append(out, m)
	}
	return out, nil
}

func (s *MemArchiveStore) SetUserSettings(_ context.Context, key archive.Key, settings archive.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = settings
	return nil
}

func (s *MemArchiveStore) GetUserSettings(_ context.Context, key archive.Key) (archive.UserSettings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, ok := s.settings[key]
	return settings, ok, nil
}

func (s *MemArchiveStore) GetMeta(_ context.Context, key archive.Key) (archive.Meta, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.metas[key]
	return meta, ok, nil
}

func (s *MemArchiveStore) SetMeta(_ context.Context, meta archive.Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metas[meta.Key] = meta
	return nil
}

func (s *MemArchiveStore) Touch(_ context.Context, key archive.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.metas[key]
	if !ok {
		return errors.Errorf("no meta recorded for key %x", key)
	}
	meta.LastAccessTime++
	s.metas[key] = meta
	return nil
}

func (s *MemArchiveStore) DeleteArchive(_ context.Context, key archive.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.metas, key)
	delete(s.settings, key)
	return nil
}

func (s *MemArchiveStore) ListExpiredArchives(_ context.Context, now int64) ([]archive.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []archive.Key
	for key, settings := range s.settings {
		if settings.ExpiresAt > 0 && settings.ExpiresAt < now {
			out = append(out, key)
		}
	}
	return out, nil
}

func (s *MemArchiveStore) ListGarbageCollectableArchives(_ context.Context, olderThan int64) ([]archive.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []archive.Meta
	for key, meta := range s.metas {
		settings := s.settings[key]
		if !settings.IsSaved && meta.LastAccessTime < olderThan {
			out = append(out, meta)
		}
	}
	return out, nil
}

// MemSettingsStore is an in-memory SettingsStore for tests.
type MemSettingsStore struct {
	mu        sync.Mutex
	values    map[string]string
	listeners map[string][]func(string)
}

// NewMemSettingsStore constructs an empty MemSettingsStore.
func NewMemSettingsStore() *MemSettingsStore {
	return &MemSettingsStore{
		values:    make(map[string]string),
		listeners: make(map[string][]func(string)),
	}
}

func (s *MemSettingsStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *MemSettingsStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	listeners := append([]func(string){}, s.listeners[key]...)
	s.mu.Unlock()
	for _, callback := range listeners {
		if callback != nil {
			callback(value)
		}
	}
	return nil
}

func (s *MemSettingsStore) GetAll(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

func (s *MemSettingsStore) OnChange(key string, callback func(value string)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[key] = append(s.listeners[key], callback)
	index := len(s.listeners[key]) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		listeners := s.listeners[key]
		if index < len(listeners) {
			listeners[index] = nil
		}
	}
}
