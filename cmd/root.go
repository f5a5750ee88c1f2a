package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dShare/cmd/content"
	"github.com/ValentinKolb/dShare/cmd/serve"
	"github.com/ValentinKolb/dShare/cmd/setup"
	"github.com/ValentinKolb/dShare/cmd/util"
	"github.com/ValentinKolb/dShare/rpc/common"
	"github.com/spf13/cobra"
)

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dshare",
		Short: "peer-to-peer content sharing node",
		Long: fmt.Sprintf(`dShare (v%s)

A small peer-to-peer content sharing node written in Go. Nodes store values
under generated keys, aggregate values from other nodes and synchronise with
their peers on startup over a chunked TCP protocol.`, common.Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dShare",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dShare v%s\n", common.Version)
		},
	}
)

func init() {
	// load .env files and DSHARE_ environment variables before any command runs
	cobra.OnInitialize(util.InitConfig)

	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(setup.SetupCmd)
	RootCmd.AddCommand(content.ContentCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
