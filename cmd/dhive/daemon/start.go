package daemon

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/dhive/dhive/cmd/cmdsupport"
)

// startDetached locates the dhived executable and forks it as a detached
// background process.
func startDetached() error {
	executablePath, err := locateDaemonExecutable()
	if err != nil {
		return fmt.Errorf("unable to locate daemon executable: %w", err)
	}

	process := &exec.Cmd{
		Path:        executablePath,
		Args:        []string{executablePath},
		SysProcAttr: daemonProcessAttributes,
	}
	return process.Start()
}

// startMain is the entry point for the "daemon start" command.
func startMain(_ *cobra.Command, _ []string) error {
	return startDetached()
}

// StartCommand is the "daemon start" command.
var StartCommand = &cobra.Command{
	Use:          "start",
	Short:        "Start the dhive daemon if it's not already running",
	Args:         cmdsupport.DisallowArguments,
	RunE:         startMain,
	SilenceUsage: true,
}
