package content

import (
	"context"

	"github.com/ValentinKolb/dShare/cmd/util"
	"github.com/ValentinKolb/dShare/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcClient *client.Client

	// ContentCommands groups the client commands talking to a node
	ContentCommands = &cobra.Command{
		Use:               "content",
		Short:             "Create, remove and aggregate content on a dShare node",
		PersistentPreRunE: setupClient,
	}
)

func init() {
	util.SetupClientFlags(ContentCommands)

	ContentCommands.AddCommand(createCmd)
	ContentCommands.AddCommand(removeCmd)
	ContentCommands.AddCommand(aggregateCmd)
	ContentCommands.AddCommand(syncCmd)
	ContentCommands.AddCommand(metadataCmd)
	ContentCommands.AddCommand(perfTestCmd)
}

// setupClient initializes the client used by all subcommands
func setupClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	rpcClient = client.New(util.GetClientOptions())
	return nil
}

// commandContext returns the context for one client command, bounded by --timeout
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if timeout := util.GetTimeout(); timeout > 0 {
		return context.WithTimeout(cmd.Context(), timeout)
	}
	return context.WithCancel(cmd.Context())
}
