// Command dhive is the command-line client for the archive runtime. Its only
// command group is daemon, which starts, stops, or runs a dhived daemon and
// dials into it over a local IPC connection.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhive/dhive/cmd/dhive/daemon"
	"github.com/dhive/dhive/pkg/dhive"
)

func rootMain(command *cobra.Command, _ []string) {
	if rootConfiguration.version {
		fmt.Println(dhive.Version)
		return
	}
	command.Help()
}

var rootCommand = &cobra.Command{
	Use:   "dhive",
	Short: "dhive manages a local, peer-to-peer content-addressed archive runtime",
	Run:   rootMain,
}

var rootConfiguration struct {
	help    bool
	version bool
}

func init() {
	flags := rootCommand.Flags()
	flags.BoolVarP(&rootConfiguration.help, "help", "h", false, "Show help information")
	flags.BoolVarP(&rootConfiguration.version, "version", "V", false, "Show version information")

	cobra.EnableCommandSorting = false

	rootCommand.AddCommand(daemon.Command)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
