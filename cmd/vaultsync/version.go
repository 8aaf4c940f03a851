package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version and GitCommit are overridden at build time via -ldflags.
var (
	Version   = "dev"
	GitCommit = "none"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the vaultsync version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("vaultsync %s (%s)\n", Version, GitCommit)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
