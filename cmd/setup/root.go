package setup

import (
	"fmt"

	cmdUtil "github.com/ValentinKolb/dShare/cmd/util"
	"github.com/ValentinKolb/dShare/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// SetupCmd writes a settings file with default values for a new node
var SetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the settings file for a new node",
	Long: `Create a settings.json with default values (and a freshly generated node name) in the given directory.
The file can be edited and passed to 'dshare serve --settings'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cmdUtil.BindCommandFlags(cmd); err != nil {
			return err
		}

		s := common.DefaultSettings()
		if name := viper.GetString("name"); name != "" {
			s.Name = name
		}

		path, err := s.Save(viper.GetString("path"))
		if err != nil {
			return err
		}

		fmt.Printf("settings for node %s written to %s\n", s.Name, path)
		return nil
	},
}

func init() {
	key := "path"
	SetupCmd.Flags().String(key, ".", cmdUtil.WrapString("The directory the settings file is written to"))

	key = "name"
	SetupCmd.Flags().String(key, "", cmdUtil.WrapString("The name of the node. A random name is generated if empty"))
}
