package daemon

import (
	"fmt"

	"github.com/dhive/dhive/pkg/filesystem/locking"
	"github.com/dhive/dhive/pkg/logging"
	"github.com/dhive/dhive/pkg/must"
)

// Lock represents the global daemon lock, held by a single daemon instance
// at a time so that dhived refuses to start twice against the same data
// directory.
type Lock struct {
	locker *locking.Locker
	logger *logging.Logger
}

// AcquireLock attempts to acquire the global daemon lock, failing immediately
// (non-blocking) if another daemon instance already holds it.
func AcquireLock(logger *logging.Logger) (*Lock, error) {
	path, err := LockPath()
	if err != nil {
		return nil, fmt.Errorf("unable to compute daemon lock path: %w", err)
	}

	locker, err := locking.NewLocker(path, 0600)
	if err != nil {
		return nil, fmt.Errorf("unable to create daemon file locker: %w", err)
	}
	if err := locker.Lock(false); err != nil {
		must.Close(locker, logger)
		return nil, err
	}

	return &Lock{locker: locker, logger: logger}, nil
}

// Release releases the daemon lock.
func (l *Lock) Release() error {
	if err := l.locker.Unlock(); err != nil {
		must.Close(l.locker, l.logger)
		return err
	}
	if err := l.locker.Close(); err != nil {
		return fmt.Errorf("unable to close locker: %w", err)
	}
	return nil
}
