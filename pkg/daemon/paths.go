package daemon

import (
	"path/filepath"

	"github.com/dhive/dhive/pkg/dhive"
)

const (
	// daemonSubdirectoryName is the subdirectory of the dhive data
	// directory in which daemon bookkeeping files (lock, socket, log) live.
	daemonSubdirectoryName = "daemon"

	// lockName is the name of the daemon lock file.
	lockName = "daemon.lock"
	// endpointName is the name of the daemon IPC endpoint, or (on Windows)
	// the file holding the generated named pipe's name.
	endpointName = "daemon.sock"
	// logName is the name of the daemon log file.
	logName = "daemon.log"
)

// subpath computes a path inside the daemon subdirectory, creating that
// subdirectory in the process.
func subpath(name string) (string, error) {
	root, err := dhive.DataPath(true, daemonSubdirectoryName)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}

// LockPath computes the path to the daemon lock file.
func LockPath() (string, error) {
	return subpath(lockName)
}

// EndpointPath computes the path to the daemon IPC endpoint.
func EndpointPath() (string, error) {
	return subpath(endpointName)
}

// LogPath computes the path to the daemon log file.
func LogPath() (string, error) {
	return subpath(logName)
}
