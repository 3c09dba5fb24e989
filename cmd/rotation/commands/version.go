package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/wonny/sectorrotation/cmd/rotation/commands.version=..."
var (
	version = "dev"
	commit  = "none"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "버전 정보",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rotation %s (%s)\n", version, commit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
