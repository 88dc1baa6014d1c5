// Package encoding provides small load/save helpers used for manifests,
// configuration, and Base62 encoding.
package encoding

import (
	"fmt"
	"os"

	"github.com/dhive/dhive/pkg/fsutil"
)

// LoadAndUnmarshal reads the file at path and invokes unmarshal on its
// contents. Non-existence errors are passed through unwrapped so callers can
// special-case a missing file (e.g. an archive with no .datignore).
func LoadAndUnmarshal(path string, unmarshal func([]byte) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return fmt.Errorf("unable to load file: %w", err)
	}
	if err := unmarshal(data); err != nil {
		return fmt.Errorf("unable to unmarshal data: %w", err)
	}
	return nil
}

// MarshalAndSave invokes marshal and atomically writes the result to path
// with owner-only permissions.
func MarshalAndSave(path string, marshal func() ([]byte, error)) error {
	data, err := marshal()
	if err != nil {
		return fmt.Errorf("unable to marshal message: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0600); err != nil {
		return fmt.Errorf("unable to write message data: %w", err)
	}
	return nil
}
