package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cmdUtil "github.com/ValentinKolb/dShare/cmd/util"
	"github.com/ValentinKolb/dShare/rpc/common"
	"github.com/ValentinKolb/dShare/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig *common.Settings
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start a dShare node",
		Long: `Start a dShare node. The node is configured from a settings file (see 'dshare setup'), command line flags and environment variables.
Flags and environment variables override values from the settings file. The format of the environment variables is DSHARE_<flag> (e.g. DSHARE_RETRY_ATTEMPTS=5)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	defaults := common.DefaultSettings()

	key := "settings"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Path to a settings file (or the directory containing settings.json) created by 'dshare setup'"))

	key = "name"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The name of the node. A random name is generated if empty"))

	key = "address"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:4000", cmdUtil.WrapString("The address (host:port) the node listens on"))

	key = "peers"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Comma-separated list of peer addresses (host:port) to synchronise with on startup"))

	key = "allow-metadata"
	ServeCmd.PersistentFlags().Bool(key, defaults.Permissions.AllowMetadata, cmdUtil.WrapString("Allow clients to query the node's metadata"))

	key = "allow-interactions"
	ServeCmd.PersistentFlags().Bool(key, defaults.Permissions.AllowInteractions, cmdUtil.WrapString("Acknowledge sync requests of other nodes. If false, sync requests are answered as restricted"))

	key = "storage"
	ServeCmd.PersistentFlags().String(key, defaults.Storage.Engine, cmdUtil.WrapString("The storage engine to use (memory, badger)"))

	key = "storage-path"
	ServeCmd.PersistentFlags().String(key, defaults.Storage.Path, cmdUtil.WrapString("The directory used by the badger storage engine"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, defaults.Workers, cmdUtil.WrapString("The number of workers handling connections"))

	key = "retry-attempts"
	ServeCmd.PersistentFlags().Int(key, defaults.RetryAttempts, cmdUtil.WrapString("How many times the node tries to reach a peer during synchronisation"))

	key = "retry-unit-ms"
	ServeCmd.PersistentFlags().Int(key, defaults.RetryUnitMillisecond, cmdUtil.WrapString("The backoff unit in milliseconds. Attempt i waits i times this unit before retrying"))

	key = "read-grace-ms"
	ServeCmd.PersistentFlags().Int(key, defaults.ReadGraceMillisecond, cmdUtil.WrapString("How long (in ms) the reader waits for the next chunk before a message is considered complete"))

	key = "dial-timeout"
	ServeCmd.PersistentFlags().Int(key, defaults.DialTimeoutSecond, cmdUtil.WrapString("The timeout in seconds for outbound connections"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, defaults.TCP.TCPNoDelay, cmdUtil.WrapString("Whether to enable TCP_NODELAY on accepted connections"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, defaults.TCP.TCPKeepAliveSec, cmdUtil.WrapString("The keepalive interval in seconds for accepted connections, 0 disables it"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, defaults.MetricsEndpoint, cmdUtil.WrapString("The address (host:port) of the prometheus metrics endpoint. Disabled if empty"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, defaults.LogLevel, cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the settings file, command line flags and environment variables
// and merges them into the node settings
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// without a settings file every flag applies, including its default
	fromFile := false
	serveCmdConfig = common.DefaultSettings()
	if path := viper.GetString("settings"); path != "" {
		s, err := common.LoadSettings(path)
		if err != nil {
			return err
		}
		serveCmdConfig = s
		fromFile = true
	}

	apply := func(key string, fn func()) {
		if !fromFile || viper.IsSet(key) {
			fn()
		}
	}

	if name := viper.GetString("name"); name != "" {
		serveCmdConfig.Name = name
	}
	apply("address", func() { serveCmdConfig.Address = viper.GetString("address") })
	apply("peers", func() { serveCmdConfig.Peers = parsePeers(viper.GetString("peers")) })
	apply("allow-metadata", func() { serveCmdConfig.Permissions.AllowMetadata = viper.GetBool("allow-metadata") })
	apply("allow-interactions", func() { serveCmdConfig.Permissions.AllowInteractions = viper.GetBool("allow-interactions") })
	apply("storage", func() { serveCmdConfig.Storage.Engine = viper.GetString("storage") })
	apply("storage-path", func() { serveCmdConfig.Storage.Path = viper.GetString("storage-path") })
	apply("workers", func() { serveCmdConfig.Workers = viper.GetInt("workers") })
	apply("retry-attempts", func() { serveCmdConfig.RetryAttempts = viper.GetInt("retry-attempts") })
	apply("retry-unit-ms", func() { serveCmdConfig.RetryUnitMillisecond = viper.GetInt("retry-unit-ms") })
	apply("read-grace-ms", func() { serveCmdConfig.ReadGraceMillisecond = viper.GetInt("read-grace-ms") })
	apply("dial-timeout", func() { serveCmdConfig.DialTimeoutSecond = viper.GetInt("dial-timeout") })
	apply("tcp-nodelay", func() { serveCmdConfig.TCP.TCPNoDelay = viper.GetBool("tcp-nodelay") })
	apply("tcp-keepalive", func() { serveCmdConfig.TCP.TCPKeepAliveSec = viper.GetInt("tcp-keepalive") })
	apply("metrics-endpoint", func() { serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint") })
	apply("log-level", func() { serveCmdConfig.LogLevel = viper.GetString("log-level") })

	if err := serveCmdConfig.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// run starts the node and blocks until it is stopped by a signal
func run(_ *cobra.Command, _ []string) error {
	s, err := cmdUtil.OpenStore(serveCmdConfig)
	if err != nil {
		return err
	}
	defer s.Close()

	node, err := server.NewNode(serveCmdConfig, s)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- node.Start() }()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		server.Logger.Infof("shutting down node %s", serveCmdConfig.Name)
	}

	if cerr := node.Close(); cerr != nil {
		server.Logger.Errorf("failed to close node: %v", cerr)
	}
	return err
}

// parsePeers splits a comma-separated peer list, empty entries are ignored
func parsePeers(list string) []string {
	peers := []string{}
	for _, peer := range strings.Split(list, ",") {
		if peer = strings.TrimSpace(peer); peer != "" {
			peers = append(peers, peer)
		}
	}
	return peers
}
