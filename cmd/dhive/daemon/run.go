package daemon

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/dhive/dhive/cmd/cmdsupport"
)

// runMain is the entry point for the "daemon run" command. It execs the
// dhived binary in the foreground, with standard streams connected directly
// to this process' own, so that "dhive daemon run" can be used under a
// process supervisor exactly like dhived itself.
func runMain(_ *cobra.Command, _ []string) error {
	executablePath, err := locateDaemonExecutable()
	if err != nil {
		return fmt.Errorf("unable to locate daemon executable: %w", err)
	}

	process := exec.Command(executablePath)
	process.Stdin = os.Stdin
	process.Stdout = os.Stdout
	process.Stderr = os.Stderr
	return process.Run()
}

// RunCommand is the "daemon run" command.
var RunCommand = &cobra.Command{
	Use:          "run",
	Short:        "Run the dhive daemon in the foreground",
	Args:         cmdsupport.DisallowArguments,
	Hidden:       true,
	RunE:         runMain,
	SilenceUsage: true,
}
