package dhive

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	// dataDirectoryName is the name of the dhive data directory inside the
	// user's home directory.
	dataDirectoryName = ".dhive"
	// ArchivesMetaDirectoryName is the subdirectory holding per-archive
	// metadata storages.
	ArchivesMetaDirectoryName = "Archives/Meta"
	// ArchivesLocalCopyDirectoryName is the subdirectory holding internal
	// local-sync folders for archives bound in preview mode without a
	// user-supplied path.
	ArchivesLocalCopyDirectoryName = "Archives/LocalCopy"
	// TrashDirectoryName is the subdirectory used to stage unsaved archives
	// pending garbage collection.
	TrashDirectoryName = "Trash"
)

// DataPath computes the path to the dhive data directory, creating it (and
// any requested subdirectory) if it doesn't already exist.
func DataPath(create bool, subpath ...string) (string, error) {
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "unable to compute home directory")
	}

	components := append([]string{homeDirectory, dataDirectoryName}, subpath...)
	fullPath := filepath.Join(components...)

	if create {
		var createPath string
		if len(subpath) > 0 {
			createPath = fullPath
		} else {
			createPath = filepath.Join(homeDirectory, dataDirectoryName)
		}
		if err := os.MkdirAll(createPath, 0700); err != nil {
			return "", errors.Wrap(err, "unable to create dhive directory")
		}
	}

	return fullPath, nil
}

// ArchiveMetaPath computes the on-disk metadata path for an archive given its
// hex-encoded key, using the `<k[0..2]>/<k[2..]>` sharding scheme.
func ArchiveMetaPath(hexKey string, create bool) (string, error) {
	return shardedPath(ArchivesMetaDirectoryName, hexKey, create)
}

// ArchiveLocalCopyPath computes the internal local-sync folder path for an
// archive given its hex-encoded key.
func ArchiveLocalCopyPath(hexKey string, create bool) (string, error) {
	return shardedPath(ArchivesLocalCopyDirectoryName, hexKey, create)
}

func shardedPath(base, hexKey string, create bool) (string, error) {
	if len(hexKey) < 3 {
		return "", errors.New("key too short to shard")
	}
	return DataPath(create, base, hexKey[:2], hexKey[2:])
}
