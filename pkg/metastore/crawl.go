package metastore

import "context"

// CrawlSource is a row for one archive being indexed.
type CrawlSource struct {
	ID           string
	URL          string
	DNSBindingID string
	IsPrivate    bool
}

// CrawlCheckpoint is the resumable progress marker for one (source, dataset)
// pair. See pkg/crawler for the reset-on-tableVersion-bump semantics that
// consume it.
type CrawlCheckpoint struct {
	SourceID        string
	Dataset         string
	TableVersion    int
	LastSeenVersion uint64
}

// CrawlStore is the crawler's handle into CrawlSource and CrawlCheckpoint
// rows, kept separate from the free-form ProfileDataStore because the
// crawler's resumability invariant (checkpoint advances only after a
// successful apply) needs a narrow, well-typed surface.
type CrawlStore interface {
	EnsureSource(ctx context.Context, url string, isPrivate bool) (CrawlSource, error)
	UpdateSourceBinding(ctx context.Context, sourceID, dnsBindingID string) error

	GetCheckpoint(ctx context.Context, sourceID, dataset string) (CrawlCheckpoint, bool, error)
	SetCheckpoint(ctx context.Context, checkpoint CrawlCheckpoint) error
	ResetDataset(ctx context.Context, sourceID, dataset string) error

	UpsertRow(ctx context.Context, dataset, sourceID, pathname string, row any) error
	DeleteRow(ctx context.Context, dataset, sourceID, pathname string) error
}
