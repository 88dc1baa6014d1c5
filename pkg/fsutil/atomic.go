// Package fsutil holds shared filesystem utilities used across the registry,
// sync engine, and GC: atomic writes, the generic FS capability set from the
// re-architecture notes, and binary-content detection for single-file diffs.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

const atomicWriteTemporaryNamePrefix = ".dhive-atomic-write-"

// WriteFileAtomic writes data to path using an intermediate temporary file
// that is renamed into place, so readers never observe a partially-written
// file.
func WriteFileAtomic(path string, data []byte, permissions os.FileMode) error {
	temporary, err := os.CreateTemp(filepath.Dir(path), atomicWriteTemporaryNamePrefix)
	if err != nil {
		return fmt.Errorf("unable to create temporary file: %w", err)
	}
	cleanup := func() { os.Remove(temporary.Name()) }

	if _, err = temporary.Write(data); err != nil {
		temporary.Close()
		cleanup()
		return fmt.Errorf("unable to write data to temporary file: %w", err)
	}
	if err = temporary.Close(); err != nil {
		cleanup()
		return fmt.Errorf("unable to close temporary file: %w", err)
	}
	if err = os.Chmod(temporary.Name(), permissions); err != nil {
		cleanup()
		return fmt.Errorf("unable to change file permissions: %w", err)
	}
	if err = os.Rename(temporary.Name(), path); err != nil {
		cleanup()
		return fmt.Errorf("unable to rename file into place: %w", err)
	}
	return nil
}
