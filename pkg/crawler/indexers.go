package crawler

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultIndexers returns the eight dataset indexers this runtime
// maintains. Every dataset is validated by static Go struct decoding plus
// manual field checks rather than a JSON-Schema library: the pack carries
// no schema-validation dependency, and these eight shapes are small and
// fixed enough that hand-written checks stay clearer than a generic
// validator would be.
func DefaultIndexers() []Indexer {
	return []Indexer{
		newStatusesIndexer(),
		newCommentsIndexer(),
		newBookmarksIndexer(),
		newFollowsIndexer(),
		newReactionsIndexer(),
		newVotesIndexer(),
		newSiteDescriptionsIndexer(),
		newDatListsIndexer(),
	}
}

// StatusRow is a short-form status post, e.g. /.data/statuses/<time>.json.
type StatusRow struct {
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

func newStatusesIndexer() Indexer {
	return &regexIndexer{
		dataset: "statuses",
		version: 1,
		pattern: regexp.MustCompile(`^/\.data/statuses/[^/]+\.json$`),
		decode: func(data []byte) (any, error) {
			var row StatusRow
			if err := unmarshalStrict(data, &row); err != nil {
				return nil, err
			}
			row.Text = strings.TrimSpace(row.Text)
			if row.Text == "" {
				return nil, fmt.Errorf("status: text is required")
			}
			if row.CreatedAt == "" {
				return nil, fmt.Errorf("status: createdAt is required")
			}
			return row, nil
		},
	}
}

// CommentRow is a threaded comment attached to a topic URL, e.g.
// /data/comments/<time>.json.
type CommentRow struct {
	Topic     string `json:"topic"`
	Parent    string `json:"parent,omitempty"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
}

func newCommentsIndexer() Indexer {
	return &regexIndexer{
		dataset: "comments",
		version: 1,
		pattern: regexp.MustCompile(`^/data/comments/[^/]+\.json$`),
		decode: func(data []byte) (any, error) {
			var row CommentRow
			if err := unmarshalStrict(data, &row); err != nil {
				return nil, err
			}
			row.Body = strings.TrimSpace(row.Body)
			if row.Topic == "" {
				return nil, fmt.Errorf("comment: topic is required")
			}
			if row.Body == "" {
				return nil, fmt.Errorf("comment: body is required")
			}
			return row, nil
		},
	}
}

// BookmarkRow is a saved link, e.g. /.data/bookmarks/<slug>.json. The slug
// path component is stable per bookmarked href so re-bookmarking the same
// URL updates the same row instead of creating a duplicate.
type BookmarkRow struct {
	Href      string   `json:"href"`
	Title     string   `json:"title,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	CreatedAt string   `json:"createdAt"`
}

func newBookmarksIndexer() Indexer {
	return &regexIndexer{
		dataset: "bookmarks",
		version: 1,
		pattern: regexp.MustCompile(`^/\.data/bookmarks/[^/]+\.json$`),
		decode: func(data []byte) (any, error) {
			var row BookmarkRow
			if err := unmarshalStrict(data, &row); err != nil {
				return nil, err
			}
			if row.Href == "" {
				return nil, fmt.Errorf("bookmark: href is required")
			}
			if row.Tags == nil {
				row.Tags = []string{}
			}
			return row, nil
		},
	}
}

// FollowEntry is one entry of a followed-archive list.
type FollowEntry struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

func newFollowsIndexer() Indexer {
	return &regexIndexer{
		dataset: "follows",
		version: 1,
		pattern: regexp.MustCompile(`^/\.data/follows\.json$`),
		decode: func(data []byte) (any, error) {
			var rows []FollowEntry
			if err := unmarshalStrict(data, &rows); err != nil {
				return nil, err
			}
			for i, entry := range rows {
				if entry.URL == "" {
					return nil, fmt.Errorf("follows: entry %d missing url", i)
				}
			}
			return rows, nil
		},
	}
}

// ReactionRow is a set of emoji reactions applied to a topic URL.
type ReactionRow struct {
	Topic     string   `json:"topic"`
	Emojis    []string `json:"emojis"`
	CreatedAt string   `json:"createdAt"`
}

func newReactionsIndexer() Indexer {
	return &regexIndexer{
		dataset: "reactions",
		version: 1,
		pattern: regexp.MustCompile(`^/\.data/unwalled\.garden/reactions/[^/]+\.json$`),
		decode: func(data []byte) (any, error) {
			var row ReactionRow
			if err := unmarshalStrict(data, &row); err != nil {
				return nil, err
			}
			if row.Topic == "" {
				return nil, fmt.Errorf("reaction: topic is required")
			}
			if len(row.Emojis) == 0 {
				return nil, fmt.Errorf("reaction: at least one emoji is required")
			}
			return row, nil
		},
	}
}

// VoteRow is a single up/down vote cast on a topic URL.
type VoteRow struct {
	Topic     string `json:"topic"`
	Vote      int    `json:"vote"`
	CreatedAt string `json:"createdAt"`
}

func newVotesIndexer() Indexer {
	return &regexIndexer{
		dataset: "votes",
		version: 1,
		pattern: regexp.MustCompile(`^/\.data/unwalled\.garden/votes/[^/]+\.json$`),
		decode: func(data []byte) (any, error) {
			var row VoteRow
			if err := unmarshalStrict(data, &row); err != nil {
				return nil, err
			}
			if row.Topic == "" {
				return nil, fmt.Errorf("vote: topic is required")
			}
			if row.Vote != -1 && row.Vote != 0 && row.Vote != 1 {
				return nil, fmt.Errorf("vote: value %d out of range [-1,1]", row.Vote)
			}
			return row, nil
		},
	}
}

// SiteDescriptionRow is the archive's own self-description, derived from
// its manifest rather than a per-entry file under /.data.
type SiteDescriptionRow struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Type        []string `json:"type,omitempty"`
}

func newSiteDescriptionsIndexer() Indexer {
	return &regexIndexer{
		dataset: "site-descriptions",
		version: 1,
		pattern: regexp.MustCompile(`^/dat\.json$`),
		decode: func(data []byte) (any, error) {
			var row SiteDescriptionRow
			if err := unmarshalStrict(data, &row); err != nil {
				return nil, err
			}
			if row.Type == nil {
				row.Type = []string{}
			}
			return row, nil
		},
	}
}

// DatListEntry is one entry of a user-curated list of other archives.
type DatListEntry struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

func newDatListsIndexer() Indexer {
	return &regexIndexer{
		dataset: "dat-lists",
		version: 1,
		pattern: regexp.MustCompile(`^/\.data/dats\.json$`),
		decode: func(data []byte) (any, error) {
			var rows []DatListEntry
			if err := unmarshalStrict(data, &rows); err != nil {
				return nil, err
			}
			for i, entry := range rows {
				if entry.URL == "" {
					return nil, fmt.Errorf("dat-lists: entry %d missing url", i)
				}
			}
			return rows, nil
		},
	}
}
