// +build !windows

package daemon

import (
	"net"
	"os"

	"github.com/dhive/dhive/pkg/ipc"
	"github.com/dhive/dhive/pkg/logging"
)

// newIPCListener removes any stale socket file left behind by a crashed
// daemon before binding: the caller holds the daemon lock, so any existing
// socket at this path is guaranteed to be stale.
func newIPCListener(endpoint string, _ *logging.Logger) (net.Listener, error) {
	if err := os.Remove(endpoint); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return ipc.NewListener(endpoint)
}
