package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dnoble/vaultsync/internal/dedup"
	"github.com/dnoble/vaultsync/internal/model"
)

var (
	dedupApply bool
	dedupDry   bool
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Find and resolve near-duplicate tasks",
	Long: `dedup clusters near-identical tasks within each vault and within each
reminder list, independent of a full sync pass. By default it prompts
interactively for which record in each cluster to keep; --apply keeps the
record with the lowest uuid in every cluster automatically, and --dry-run
only reports clusters without deleting anything. Unlike the dedup step of a
sync pass, no record is protected here: a linked record can be deleted.`,
	RunE: runDedup,
}

func init() {
	dedupCmd.Flags().BoolVar(&dedupApply, "apply", false, "keep the lowest-uuid record per cluster automatically, without prompting")
	dedupCmd.Flags().BoolVar(&dedupDry, "dry-run", false, "report clusters without deleting anything")
	rootCmd.AddCommand(dedupCmd)
}

func runDedup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Vaults) == 0 {
		return fmt.Errorf("no vaults configured: add at least one entry under vaults in %s", cfgPath)
	}

	ctx := context.Background()

	router := newVaultRouter(cfg.Vaults, logger)
	gateway, err := buildGatewayWithRetry(ctx, cfg, logger)
	if err != nil {
		return err
	}

	prompter := dedup.NewInteractivePrompter(func(uuid string) string { return uuid })
	resolver := dedup.New(router, gateway, prompter, logger)

	mode := dedup.ModeInteractive
	switch {
	case dedupDry:
		mode = dedup.ModeDryRun
	case dedupApply:
		mode = dedup.ModeAutoApply
	}

	var allListIDs []string
	for _, v := range cfg.Vaults {
		allListIDs = append(allListIDs, v.ListIDs...)
	}
	rems, err := gateway.ListTasks(ctx, allListIDs, cfg.IncludeCompleted)
	if err != nil {
		return fmt.Errorf("listing reminder tasks: %w", err)
	}
	remByUUID := make(map[string]model.ReminderTask, len(rems))
	for _, r := range rems {
		remByUUID[r.UUID] = r
	}
	remClusters := dedup.ClusterReminders(rems, nil, cfg.IncludeCompleted)
	remStats, remErr := resolver.ResolveRemClusters(ctx, remClusters, mode, remByUUID)
	logger.Info("reminder dedup complete", "clusters", len(remClusters), "deleted", remStats.Deleted, "errors", remStats.Errors)
	if remErr != nil {
		return fmt.Errorf("deduplicating reminders: %w", remErr)
	}

	for _, v := range cfg.Vaults {
		docs, err := router.ListTasks(ctx, v.Path, cfg.IncludeCompleted)
		if err != nil {
			logger.Error("listing document tasks", "vault_id", v.VaultID, "error", err)
			continue
		}
		docByUUID := make(map[string]model.DocumentTask, len(docs))
		for _, d := range docs {
			docByUUID[d.UUID] = d
		}
		docClusters := dedup.ClusterDocuments(docs, nil, cfg.IncludeCompleted)
		docStats := resolver.ResolveDocClusters(ctx, docClusters, mode, docByUUID)
		logger.Info("document dedup complete", "vault_id", v.VaultID, "clusters", len(docClusters), "deleted", docStats.Deleted, "errors", docStats.Errors)
	}

	return nil
}
