// +build !windows,!plan9

// TODO: Figure out what to do for Plan 9. It doesn't support Setsid.

package daemon

import (
	"syscall"
)

// daemonProcessAttributes are the process attributes to use when forking the
// detached daemon process.
var daemonProcessAttributes = &syscall.SysProcAttr{
	Setsid: true,
}
