package daemon

import (
	"testing"

	"github.com/dhive/dhive/pkg/logging"
)

// TestLockCycle tests an acquisition/release cycle of the daemon lock.
func TestLockCycle(t *testing.T) {
	lock, err := AcquireLock(logging.RootLogger)
	if err != nil {
		t.Fatal("unable to acquire lock:", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatal("unable to release lock:", err)
	}
}

// TestLockCanBeReacquiredAfterRelease tests that the daemon lock can be
// acquired again once a prior holder has released it.
func TestLockCanBeReacquiredAfterRelease(t *testing.T) {
	first, err := AcquireLock(logging.RootLogger)
	if err != nil {
		t.Fatal("unable to acquire lock:", err)
	}
	if err := first.Release(); err != nil {
		t.Fatal("unable to release lock:", err)
	}

	second, err := AcquireLock(logging.RootLogger)
	if err != nil {
		t.Fatal("unable to reacquire lock after release:", err)
	}
	if err := second.Release(); err != nil {
		t.Fatal("unable to release lock:", err)
	}
}
