package daemon

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/dhive/dhive/cmd/cmdsupport"
	"github.com/dhive/dhive/pkg/daemon/control"
)

// stopMain is the entry point for the "daemon stop" command.
func stopMain(_ *cobra.Command, _ []string) error {
	connection, err := Connect(false)
	if err != nil {
		return fmt.Errorf("unable to connect to daemon: %w", err)
	}
	defer connection.Close()

	client := control.NewControlClient(connection)
	// We don't check the response or error, since the daemon may terminate
	// before it has a chance to send one back.
	client.Terminate(context.Background(), &emptypb.Empty{})

	return nil
}

// StopCommand is the "daemon stop" command.
var StopCommand = &cobra.Command{
	Use:          "stop",
	Short:        "Stop the dhive daemon if it's running",
	Args:         cmdsupport.DisallowArguments,
	RunE:         stopMain,
	SilenceUsage: true,
}
