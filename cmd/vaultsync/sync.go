package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dnoble/vaultsync/internal/audit"
	"github.com/dnoble/vaultsync/internal/collab"
	"github.com/dnoble/vaultsync/internal/config"
	"github.com/dnoble/vaultsync/internal/creator"
	"github.com/dnoble/vaultsync/internal/dedup"
	"github.com/dnoble/vaultsync/internal/linkstore"
	"github.com/dnoble/vaultsync/internal/matcher"
	"github.com/dnoble/vaultsync/internal/syncengine"
	"github.com/dnoble/vaultsync/internal/telemetry"
)

var (
	syncOnce   bool
	syncDryRun bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile vault tasks with the reminder service",
	Long: `sync walks every configured vault, matches its tasks against the
reminder service, reconciles field edits, creates missing counterparts, and
(optionally) deduplicates near-identical tasks on either side. Without
--once or --dry-run it keeps running, re-syncing on the configured poll
interval.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncOnce, "once", false, "run a single sync pass then exit")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "report planned changes without writing them")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Info("config loaded",
		"gateway_backend", cfg.Gateway.Backend,
		"vaults", len(cfg.Vaults),
		"poll_interval", cfg.PollInterval,
	)

	if len(cfg.Vaults) == 0 {
		return fmt.Errorf("no vaults configured: add at least one entry under vaults in %s", cfgPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// --- Telemetry (optional) -------------------------------------------

	if cfg.Telemetry != nil {
		telCfg := telemetry.Config{
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			Insecure:     cfg.Telemetry.Insecure,
			ServiceName:  cfg.Telemetry.ServiceName,
			Headers:      cfg.Telemetry.Headers,
		}
		shutdownTel, err := telemetry.Setup(ctx, telCfg)
		if err != nil {
			logger.Error("telemetry setup failed, continuing without telemetry", "error", err)
		} else {
			logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.OTLPEndpoint)
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTel(flushCtx); err != nil {
					logger.Error("telemetry shutdown error", "error", err)
				}
			}()
		}
	}

	// --- Audit log -------------------------------------------------------

	auditPath := cfg.AuditDBPath
	auditStore, err := audit.Open(auditPath)
	if err != nil {
		return fmt.Errorf("opening audit DB at %q: %w", auditPath, err)
	}
	defer func() {
		if closeErr := auditStore.Close(); closeErr != nil {
			logger.Error("closing audit DB", "error", closeErr)
		}
	}()
	logger.Info("audit DB opened", "path", auditPath)

	// --- Link store --------------------------------------------------------

	links := linkstore.New(cfg.LinksPath, logger)
	if err := links.Load(ctx); err != nil {
		return fmt.Errorf("loading link store from %q: %w", cfg.LinksPath, err)
	}

	// --- Document walker (one markdown.Walker per vault) --------------------

	router := newVaultRouter(cfg.Vaults, logger)

	// --- Reminder gateway ----------------------------------------------------

	gateway, err := buildGatewayWithRetry(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// --- Dedup resolver -------------------------------------------------

	prompter := dedup.NewInteractivePrompter(func(uuid string) string { return uuid })
	dedupResolver := dedup.New(router, gateway, prompter, logger)

	// --- Sync engine ---------------------------------------------------------

	engine := syncengine.NewEngine(cfg, router, gateway, links, auditStore, dedupResolver, logger)

	vaults := make([]syncengine.VaultSpec, 0, len(cfg.Vaults))
	for _, v := range cfg.Vaults {
		vaults = append(vaults, syncengine.VaultSpec{
			VaultID:   v.VaultID,
			VaultName: v.Name,
			VaultPath: v.Path,
			ListIDs:   v.ListIDs,
		})
	}

	// --- First-run bootstrap, one vault at a time ---------------------------

	bootstrapMatcher := matcher.New(cfg.MinScore, cfg.DaysTolerance)
	bootstrapCreator := creator.New(router, gateway, cfg, logger)
	bootstrap := syncengine.NewBootstrap(router, gateway, links, bootstrapMatcher, bootstrapCreator, logger, os.Stdin, os.Stdout)
	for _, vault := range vaults {
		if syncDryRun {
			break
		}
		if _, err := bootstrap.Run(ctx, vault); err != nil {
			return fmt.Errorf("first-run bootstrap for vault %q: %w", vault.VaultID, err)
		}
	}

	// --- Dispatch mode -------------------------------------------------------

	if syncOnce || syncDryRun {
		logger.Info("running single sync pass", "dry_run", syncDryRun)
		results := make([]syncengine.SyncResult, 0, len(vaults))
		for _, vault := range vaults {
			result, err := engine.RunOnce(ctx, vault, syncDryRun)
			if err != nil {
				logger.Error("sync pass failed", "vault_id", vault.VaultID, "error", err)
			}
			results = append(results, result)
			fmt.Println(renderSyncSummary(result))
		}

		total := syncengine.AggregateResults(results)
		logger.Info("sync complete",
			"vaults", len(results),
			"docs_created", total.DocsCreated,
			"rems_created", total.RemsCreated,
			"docs_updated", total.DocsUpdated,
			"rems_updated", total.RemsUpdated,
			"conflicts_resolved", total.ConflictsResolved,
			"errors", len(total.Errors),
		)
		if !total.Success {
			return fmt.Errorf("one or more vaults failed to sync")
		}
		return nil
	}

	logger.Info("daemon starting", "poll_interval", cfg.PollInterval)
	if err := engine.Run(ctx, vaults); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("sync engine: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// buildGatewayWithRetry wraps buildGateway with the EventKit TCC-denial
// retry: macOS refuses Reminders access until the user flips the privacy
// switch, so on first denial we open System Settings and wait for Enter,
// then retry once.
func buildGatewayWithRetry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (collab.ReminderGateway, error) {
	gw, err := buildGateway(ctx, &cfg.Gateway, logger)
	if err == nil || cfg.Gateway.Backend != config.GatewayEventKit {
		return gw, err
	}
	if !strings.Contains(err.Error(), "access denied") {
		return gw, err
	}

	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Reminders access is denied.")
	fmt.Fprintln(os.Stderr, "   Opening System Settings -> Privacy & Security -> Reminders...")
	_ = exec.Command("open", "x-apple.systempreferences:com.apple.preference.security?Privacy_Reminders").Start()
	fmt.Fprint(os.Stderr, "   Press Enter after granting access to retry: ")
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')

	return buildGateway(ctx, &cfg.Gateway, logger)
}
