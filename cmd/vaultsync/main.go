// Command vaultsync keeps Markdown task lists and a reminder service in
// sync bidirectionally, pairing document tasks with reminder-service tasks
// by content and due date and reconciling field edits between them.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dnoble/vaultsync/internal/config"
)

var (
	cfgPath string
	verbose bool

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vaultsync",
	Short: "Sync Markdown tasks with a reminder service",
	Long: `vaultsync reconciles tasks kept in Markdown vaults with tasks kept in a
reminder service (Home Assistant todo lists or Apple Reminders), matching
existing pairs by content and due date and creating counterparts for
whichever side is missing one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
}

func init() {
	defaultCfg, _ := config.DefaultPath()
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultCfg, "path to config.yaml")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
}

// Execute runs the root command, returning any error for main to report.
func Execute() error {
	return rootCmd.Execute()
}

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads and validates the config file at the persistent --config
// flag, the one piece every subcommand needs before doing anything else.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config from %q: %w", cfgPath, err)
	}
	return cfg, nil
}
