package serve

import (
	"testing"

	"github.com/ValentinKolb/dShare/rpc/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeers(t *testing.T) {
	assert.Equal(t, []string{}, parsePeers(""))
	assert.Equal(t, []string{"a:1", "b:2"}, parsePeers(" a:1, ,b:2,"))
}

func TestProcessConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	file := common.DefaultSettings()
	file.Name = "from-file"
	file.Address = "127.0.0.1:5000"
	file.Workers = 3
	file.Peers = []string{"127.0.0.1:5001"}
	_, err := file.Save(dir)
	require.NoError(t, err)

	require.NoError(t, ServeCmd.ParseFlags([]string{"--settings", dir, "--workers", "7"}))
	require.NoError(t, processConfig(ServeCmd, nil))

	// values from the file survive unless a flag was given explicitly
	assert.Equal(t, "from-file", serveCmdConfig.Name)
	assert.Equal(t, "127.0.0.1:5000", serveCmdConfig.Address)
	assert.Equal(t, []string{"127.0.0.1:5001"}, serveCmdConfig.Peers)
	assert.Equal(t, 7, serveCmdConfig.Workers)
	assert.Equal(t, common.Version, serveCmdConfig.Version)
}
