package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"unitscope/internal/paths"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and diagnostic directory information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("unitscope %s\n", appVersion)
		fmt.Printf("  commit: %s\n", appCommit)
		fmt.Printf("  built:  %s\n", appDate)

		if dir, err := paths.ConfigDir(); err == nil {
			fmt.Printf("  config directory: %s\n", dir)
		}
		if dir, err := paths.DataDir(); err == nil {
			fmt.Printf("  data directory:   %s\n", dir)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
