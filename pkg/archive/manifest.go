// Package archive defines the in-memory Archive handle and the records that
// describe its identity, user configuration, and local-sync binding. The
// Registry is the only component that constructs and mutates Archive values;
// every other subsystem holds one by reference through the Registry.
package archive

import (
	"context"
	"encoding/json"

	"github.com/dhive/dhive/pkg/fsutil"
	"github.com/dhive/dhive/pkg/keys"
)

// Manifest is the archive's /dat.json contents.
type Manifest struct {
	Title                 string   `json:"title,omitempty"`
	Description           string   `json:"description,omitempty"`
	Type                  []string `json:"type,omitempty"`
	WebRoot               string   `json:"web_root,omitempty"`
	FallbackPage          string   `json:"fallback_page,omitempty"`
	Links                 any      `json:"links,omitempty"`
	ContentSecurityPolicy string   `json:"content_security_policy,omitempty"`
}

// ManifestPath is the reserved, protected path of the manifest inside an
// archive or bound folder.
const ManifestPath = "dat.json"

// ReadManifest loads and parses the manifest from fs, returning a zero-value
// Manifest (not an error) if none is present.
func ReadManifest(ctx context.Context, fs fsutil.FS) (*Manifest, error) {
	raw, err := fs.ReadManifest(ctx)
	if err != nil {
		return &Manifest{}, nil
	}
	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// WriteManifest serializes and writes m to fs.
func WriteManifest(ctx context.Context, fs fsutil.FS, m *Manifest) error {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return fs.WriteManifest(ctx, raw)
}

// MergeManifests merges two manifests with folder winning on any field it
// sets, per SyncEngine's mergeArchiveAndFolder step 1.
func MergeManifests(archiveManifest, folderManifest *Manifest) *Manifest {
	merged := *archiveManifest
	if folderManifest.Title != "" {
		merged.Title = folderManifest.Title
	}
	if folderManifest.Description != "" {
		merged.Description = folderManifest.Description
	}
	if len(folderManifest.Type) > 0 {
		merged.Type = folderManifest.Type
	}
	if folderManifest.WebRoot != "" {
		merged.WebRoot = folderManifest.WebRoot
	}
	if folderManifest.FallbackPage != "" {
		merged.FallbackPage = folderManifest.FallbackPage
	}
	if folderManifest.Links != nil {
		merged.Links = folderManifest.Links
	}
	if folderManifest.ContentSecurityPolicy != "" {
		merged.ContentSecurityPolicy = folderManifest.ContentSecurityPolicy
	}
	return &merged
}

// Key re-exports keys.Key for callers that only import pkg/archive.
type Key = keys.Key

// DiscoveryKey re-exports keys.DiscoveryKey.
type DiscoveryKey = keys.DiscoveryKey
