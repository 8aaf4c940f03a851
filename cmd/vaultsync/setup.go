package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/dnoble/vaultsync/internal/setup"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively configure and install vaultsync",
	RunE: func(cmd *cobra.Command, args []string) error {
		wiz := setup.NewWizard(os.Stdin, os.Stdout, logger)
		return wiz.Run(context.Background())
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
