package crawler

import "regexp"

// Indexer decodes one dataset's JSON documents into validated, normalized
// rows ready for metastore.CrawlStore.UpsertRow. TableVersion bumps force a
// dataset reset the next time any archive is crawled, the same
// stored-schema-version convention used elsewhere in this module for
// forward migrations.
type Indexer interface {
	// Dataset names the table this indexer maintains, e.g. "statuses".
	Dataset() string
	// TableVersion is bumped whenever this indexer's schema or matching
	// rule changes in a way that requires reprocessing every file.
	TableVersion() int
	// Matches reports whether path belongs to this indexer's dataset.
	Matches(path string) bool
	// Decode parses and validates data, returning the normalized row to
	// store. A non-nil error causes the crawler to skip the file (logging
	// a warning) without aborting the rest of the pass.
	Decode(data []byte) (any, error)
}

// regexIndexer is the common shape shared by every indexer in this package:
// a compiled path pattern plus a decode function.
type regexIndexer struct {
	dataset string
	version int
	pattern *regexp.Regexp
	decode  func([]byte) (any, error)
}

func (r *regexIndexer) Dataset() string                 { return r.dataset }
func (r *regexIndexer) TableVersion() int                { return r.version }
func (r *regexIndexer) Matches(p string) bool            { return r.pattern.MatchString(p) }
func (r *regexIndexer) Decode(data []byte) (any, error) { return r.decode(data) }
