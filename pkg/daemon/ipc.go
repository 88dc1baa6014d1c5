package daemon

import (
	"context"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/dhive/dhive/pkg/ipc"
	"github.com/dhive/dhive/pkg/logging"
)

// DialTimeout attempts to establish a connection to the daemon IPC endpoint,
// timing out after the specified duration.
func DialTimeout(timeout time.Duration) (net.Conn, error) {
	endpoint, err := EndpointPath()
	if err != nil {
		return nil, errors.Wrap(err, "unable to compute endpoint path")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return ipc.DialContext(ctx, endpoint)
}

// NewListener creates a daemon IPC listener. It must only be called by a
// process that holds the daemon lock, since it will remove a stale listener
// endpoint left behind by a crashed daemon.
func NewListener(logger *logging.Logger) (net.Listener, error) {
	endpoint, err := EndpointPath()
	if err != nil {
		return nil, errors.Wrap(err, "unable to compute endpoint path")
	}

	listener, err := newIPCListener(endpoint, logger)
	if err != nil && os.IsExist(err) {
		if removeErr := os.Remove(endpoint); removeErr == nil {
			listener, err = newIPCListener(endpoint, logger)
		}
	}
	return listener, err
}
