package cmdsupport

import (
	"os"
	"syscall"
)

// TerminationSignals are the signals dhive treats as requesting graceful
// termination.
var TerminationSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}
