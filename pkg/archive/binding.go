package archive

import "path/filepath"

// LocalSyncBinding is the derived folder↔archive pairing for an archive with
// a local sync path. See DeriveBinding for the derivation table.
type LocalSyncBinding struct {
	Path            string
	AutoPublish     bool
	IsUsingInternal bool
}

// internalSyncRoot computes the internal local-copy path for a key, sharded
// the same way as Archives/Meta (see pkg/dhive.ArchiveLocalCopyPath).
func internalSyncRoot(datPath string, hexKey string) string {
	return filepath.Join(datPath, "Archives", "LocalCopy", hexKey[:2], hexKey[2:])
}

// DeriveBinding implements the binding derivation table below:
//
//	isSaved | writable | localSyncPath | previewMode | Binding
//	false   | any      | any           | any         | none
//	true    | false    | any           | any         | none
//	true    | true     | set           | false       | {path, autoPublish=true}
//	true    | true     | set           | true        | {path, autoPublish=false}
//	true    | true     | unset         | true        | {internal, autoPublish=false, isUsingInternal=true}
//	true    | true     | unset         | false       | none
func DeriveBinding(settings UserSettings, writable bool, datPath string, hexKey string) *LocalSyncBinding {
	if !settings.IsSaved || !writable {
		return nil
	}
	if settings.LocalSyncPath != "" {
		return &LocalSyncBinding{
			Path:        settings.LocalSyncPath,
			AutoPublish: !settings.PreviewMode,
		}
	}
	if settings.PreviewMode {
		return &LocalSyncBinding{
			Path:            internalSyncRoot(datPath, hexKey),
			AutoPublish:     false,
			IsUsingInternal: true,
		}
	}
	return nil
}
