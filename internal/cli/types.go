package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lherman-cs/go-rosbag2/internal/config"
)

var typesPackage string

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the message types that can be decoded",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := newRegistry(viperMsgPaths())
		if err != nil {
			return err
		}

		for _, typeID := range reg.Types() {
			if typesPackage != "" && !strings.HasPrefix(typeID, typesPackage+"/") {
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), typeID)
		}
		return nil
	},
}

func init() {
	typesCmd.Flags().StringVarP(&typesPackage, "package", "p", "", "only list types of this package")
}

func viperMsgPaths() []string {
	return viper.GetStringSlice(config.KeyMsgPaths)
}
