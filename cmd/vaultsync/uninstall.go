package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dnoble/vaultsync/internal/setup"
)

var uninstallPurge bool

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop and remove the background daemon",
	RunE:  runUninstall,
}

func init() {
	uninstallCmd.Flags().BoolVar(&uninstallPurge, "purge", false, "also remove config, link store, and logs")
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolving home directory: %w", err)
	}

	if setup.IsDaemonLoaded() {
		if err := setup.UnloadDaemon(homeDir); err != nil {
			return fmt.Errorf("unloading daemon: %w", err)
		}
		logger.Info("daemon unloaded")
	}

	if err := setup.RemovePlist(homeDir); err != nil {
		return fmt.Errorf("removing plist: %w", err)
	}
	if err := setup.RemoveBinary(); err != nil {
		return fmt.Errorf("removing binary: %w", err)
	}
	logger.Info("vaultsync daemon uninstalled")

	if uninstallPurge {
		if err := setup.PurgeUserData(homeDir); err != nil {
			return fmt.Errorf("purging user data: %w", err)
		}
		logger.Info("config, link store, and logs removed")
	}

	return nil
}
