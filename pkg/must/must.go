// Package must provides best-effort cleanup helpers for operations whose
// failure is only worth a warning log, never a propagated error — the
// pattern the runtime uses for defer-time teardown (closing files, removing
// stale sockets, releasing locks).
package must

import (
	"os"

	"github.com/dhive/dhive/pkg/logging"
)

// Close closes c, logging a warning on failure.
func Close(c interface{ Close() error }, logger *logging.Logger) {
	if err := c.Close(); err != nil {
		logger.Warnf("unable to close: %s", err.Error())
	}
}

// OSRemove removes the file at path, logging a warning on failure.
func OSRemove(path string, logger *logging.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warnf("unable to remove %s: %s", path, err.Error())
	}
}

// OSRemoveAll removes path and any children, logging a warning on failure.
func OSRemoveAll(path string, logger *logging.Logger) {
	if err := os.RemoveAll(path); err != nil {
		logger.Warnf("unable to remove all of %s: %s", path, err.Error())
	}
}

// Succeed logs a warning naming task if err is non-nil.
func Succeed(err error, task string, logger *logging.Logger) {
	if err != nil {
		logger.Warnf("unable to %s: %s", task, err.Error())
	}
}
