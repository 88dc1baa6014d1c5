package daemon

import (
	"net"

	"github.com/dhive/dhive/pkg/ipc"
	"github.com/dhive/dhive/pkg/logging"
)

func newIPCListener(endpoint string, logger *logging.Logger) (net.Listener, error) {
	return ipc.NewListener(endpoint, logger)
}
