package daemon

import (
	"syscall"
)

// detachedProcess is the Windows CreateProcess creation flag that detaches
// the child from the parent's console.
const detachedProcess = 0x00000008

// daemonProcessAttributes are the process attributes to use when forking the
// detached daemon process.
var daemonProcessAttributes = &syscall.SysProcAttr{
	CreationFlags: detachedProcess | syscall.CREATE_NEW_PROCESS_GROUP,
}
