package content

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/dShare/cmd/util"
	"github.com/ValentinKolb/dShare/rpc/client"
	"github.com/spf13/cobra"
)

var (
	createCmd = &cobra.Command{
		Use:   "create [value]",
		Short: "Stores a value and prints its key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			key, err := rpcClient.Create(ctx, util.GetEndpoint(), []byte(args[0]))
			if err != nil {
				return err
			}
			fmt.Println(key)
			return nil
		},
	}
	removeCmd = &cobra.Command{
		Use:   "remove [key...]",
		Short: "Removes one or more keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := rpcClient.Remove(ctx, util.GetEndpoint(), args...); err != nil {
				return err
			}
			fmt.Printf("removed %d key(s)\n", len(args))
			return nil
		},
	}
	aggregateCmd = &cobra.Command{
		Use:   "aggregate [target...]",
		Short: "Reads values by key. A target of the form key@host:port is resolved on that node",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			body, err := rpcClient.Aggregate(ctx, util.GetEndpoint(), args...)
			if err != nil {
				return err
			}
			for _, e := range client.ParseEntries(body) {
				fmt.Printf("key=%s, value=%s\n", e.Key, e.Value)
			}
			return nil
		},
	}
	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Runs the sync handshake against the node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			res, err := rpcClient.Sync(ctx, util.GetEndpoint())
			if err != nil {
				return err
			}
			fmt.Printf("node=%s, sync=%s\n", util.GetEndpoint(), res)
			return nil
		},
	}
	metadataCmd = &cobra.Command{
		Use:   "metadata",
		Short: "Prints the node's metadata (requires allow-metadata on the node)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			md, err := rpcClient.Metadata(ctx, util.GetEndpoint())
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(md, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
)
