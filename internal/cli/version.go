package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show rosbag2csv version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rosbag2csv %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "Git Commit: %s\n", gitCommit)
	},
}

// These will be set by build scripts
var (
	version   = "dev"
	gitCommit = "unknown"
)
