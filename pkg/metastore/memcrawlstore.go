package metastore

import (
	"context"
	"sync"
)

// MemCrawlStore is an in-memory CrawlStore for tests. Source IDs are the
// source URL itself, since EnsureSource is expected to be idempotent per
// URL and an in-memory store has no need for a separate surrogate key.
type MemCrawlStore struct {
	mu          sync.Mutex
	sources     map[string]CrawlSource
	checkpoints map[string]CrawlCheckpoint
	rows        map[string]map[string]any
}

// NewMemCrawlStore constructs an empty MemCrawlStore.
func NewMemCrawlStore() *MemCrawlStore {
	return &MemCrawlStore{
		sources:     make(map[string]CrawlSource),
		checkpoints: make(map[string]CrawlCheckpoint),
		rows:        make(map[string]map[string]any),
	}
}

func (s *MemCrawlStore) EnsureSource(_ context.Context, url string, isPrivate bool) (CrawlSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sources[url]; ok {
		return existing, nil
	}
	source := CrawlSource{ID: url, URL: url, IsPrivate: isPrivate}
	s.sources[url] = source
	return source, nil
}

func (s *MemCrawlStore) UpdateSourceBinding(_ context.Context, sourceID, dnsBindingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	source, ok := s.sources[sourceID]
	if !ok {
		return nil
	}
	source.DNSBindingID = dnsBindingID
	s.sources[sourceID] = source
	return nil
}

func checkpointKey(sourceID, dataset string) string {
	return sourceID + "\x00" + dataset
}

func (s *MemCrawlStore) GetCheckpoint(_ context.Context, sourceID, dataset string) (CrawlCheckpoint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	checkpoint, ok := s.checkpoints[checkpointKey(sourceID, dataset)]
	return checkpoint, ok, nil
}

func (s *MemCrawlStore) SetCheckpoint(_ context.Context, checkpoint CrawlCheckpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[checkpointKey(checkpoint.SourceID, checkpoint.Dataset)] = checkpoint
	return nil
}

func (s *MemCrawlStore) ResetDataset(_ context.Context, sourceID, dataset string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, checkpointKey(sourceID, dataset))
	delete(s.rows, dataset)
	return nil
}

func rowsKey(sourceID, pathname string) string {
	return sourceID + "\x00" + pathname
}

func (s *MemCrawlStore) UpsertRow(_ context.Context, dataset, sourceID, pathname string, row any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, ok := s.rows[dataset]
	if !ok {
		table = make(map[string]any)
		s.rows[dataset] = table
	}
	table[rowsKey(sourceID, pathname)] = row
	return nil
}

func (s *MemCrawlStore) DeleteRow(_ context.Context, dataset, sourceID, pathname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if table, ok := s.rows[dataset]; ok {
		delete(table, rowsKey(sourceID, pathname))
	}
	return nil
}

// Rows returns a snapshot of every row currently stored for dataset, for
// test assertions.
func (s *MemCrawlStore) Rows(dataset string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.rows[dataset]))
	for k, v := range s.rows[dataset] {
		out[k] = v
	}
	return out
}

var _ CrawlStore = (*MemCrawlStore)(nil)
