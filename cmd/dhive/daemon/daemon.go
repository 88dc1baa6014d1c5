package daemon

import (
	"github.com/spf13/cobra"
)

// Command is the "daemon" command, grouping the daemon lifecycle
// subcommands.
var Command = &cobra.Command{
	Use:   "daemon",
	Short: "Controls the lifecycle of the dhive daemon",
}

func init() {
	Command.AddCommand(RunCommand, StartCommand, StopCommand)
}
