package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/dShare/lib/store"
	"github.com/ValentinKolb/dShare/lib/store/bstore"
	"github.com/ValentinKolb/dShare/lib/store/mstore"
	"github.com/ValentinKolb/dShare/rpc/client"
	"github.com/ValentinKolb/dShare/rpc/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables read by dshare
	EnvPrefix = "dshare"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads the .env files and makes viper read DSHARE_* environment variables
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// SetupClientFlags adds the connection flags shared by all client commands
func SetupClientFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.PersistentFlags().String(key, "127.0.0.1:4000", WrapString("The address (host:port) of the dShare node to talk to"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds for one command, 0 disables it"))

	key = "dial-timeout"
	cmd.PersistentFlags().Int(key, common.DefaultDialTimeoutSecond, WrapString("The timeout in seconds for establishing the connection"))

	key = "read-grace-ms"
	cmd.PersistentFlags().Int(key, common.DefaultReadGraceMillisecond, WrapString("How long (in ms) the reader waits for the next chunk before a message is considered complete"))
}

// GetEndpoint returns the configured node address
func GetEndpoint() string {
	return viper.GetString("endpoint")
}

// GetTimeout returns the configured command timeout, 0 means none
func GetTimeout() time.Duration {
	return time.Duration(viper.GetInt("timeout")) * time.Second
}

// GetClientOptions reads the client options from viper
func GetClientOptions() client.Options {
	return client.Options{
		DialTimeout: time.Duration(viper.GetInt("dial-timeout")) * time.Second,
		ReadGrace:   time.Duration(viper.GetInt("read-grace-ms")) * time.Millisecond,
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// OpenStore creates the store backend selected in the settings
func OpenStore(s *common.Settings) (store.IStore, error) {
	switch s.Storage.Engine {
	case common.StorageEngineMemory:
		return mstore.NewMemoryStore(), nil
	case common.StorageEngineBadger:
		return bstore.NewBadgerStore(bstore.Options{Path: s.Storage.Path})
	default:
		return nil, fmt.Errorf("invalid storage engine %s", s.Storage.Engine)
	}
}
