// Package daemon implements the "dhive daemon" subcommands, which control
// the lifecycle of a separate dhived process: starting it in the background,
// stopping it over the control-plane IPC connection, and dialing into it for
// other commands that need to reach a running daemon.
package daemon

import (
	"context"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/dhive/dhive/pkg/daemon"
	"github.com/dhive/dhive/pkg/daemon/control"
	"github.com/dhive/dhive/pkg/grpcutil"
)

const (
	// dialTimeout is the timeout to use when attempting to connect to the
	// daemon IPC endpoint.
	dialTimeout = 500 * time.Millisecond
	// autostartWaitInterval is the wait period between reconnect attempts
	// after autostarting the daemon.
	autostartWaitInterval = 100 * time.Millisecond
	// autostartRetryCount is the number of times to try reconnecting after
	// autostarting the daemon.
	autostartRetryCount = 10
)

// daemonExecutableName returns the name of the dhived binary for the current
// platform.
func daemonExecutableName() string {
	if runtime.GOOS == "windows" {
		return "dhived.exe"
	}
	return "dhived"
}

// locateDaemonExecutable attempts to find the dhived binary, preferring the
// directory holding the currently running dhive executable (the common case
// for an installed distribution) and falling back to the shell's PATH.
func locateDaemonExecutable() (string, error) {
	name := daemonExecutableName()

	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), name)
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return exec.LookPath(name)
}

// dialer ignores the address gRPC hands it, since the daemon package already
// knows the correct IPC endpoint path.
func dialer(ctx context.Context, _ string) (net.Conn, error) {
	deadline := dialTimeout
	if d, ok := ctx.Deadline(); ok {
		if remaining := time.Until(d); remaining > 0 {
			deadline = remaining
		}
	}
	return daemon.DialTimeout(deadline)
}

// Connect creates a new daemon client connection, autostarting the daemon
// (by forking a detached dhived process) if one can't be reached and
// autostart is true.
func Connect(autostart bool) (*grpc.ClientConn, error) {
	if daemon.AutostartDisabled {
		autostart = false
	}

	remainingAttempts := autostartRetryCount
	invokedStart := false
	for {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		connection, err := grpc.DialContext(
			ctx, "",
			grpc.WithInsecure(),
			grpc.WithContextDialer(dialer),
			grpc.WithBlock(),
			grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(grpcutil.MaximumMessageSize)),
			grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(grpcutil.MaximumMessageSize)),
		)
		cancel()

		if err == nil {
			return connection, nil
		}

		if err == context.DeadlineExceeded && autostart && remainingAttempts > 0 {
			if !invokedStart {
				if startErr := startDetached(); startErr != nil {
					return nil, errors.Wrap(startErr, "unable to start daemon")
				}
				invokedStart = true
			}
			time.Sleep(autostartWaitInterval)
			remainingAttempts--
			continue
		}

		if err == context.DeadlineExceeded {
			return nil, errors.New("connection timed out (is the daemon running?)")
		}
		return nil, err
	}
}

// Version queries the daemon's reported runtime version over an existing
// connection.
func Version(connection *grpc.ClientConn) (string, error) {
	client := control.NewControlClient(connection)
	value, err := client.Version(context.Background(), &emptypb.Empty{})
	if err != nil {
		return "", errors.Wrap(err, "unable to query daemon version")
	}
	return value.GetValue(), nil
}
