package setup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dnoble/vaultsync/internal/config"
)

// Wizard guides the user through first-run configuration and installation.
type Wizard struct {
	prompt *Prompter
	logger *slog.Logger
	w      io.Writer
}

// NewWizard creates a Wizard wired to the given I/O and logger.
func NewWizard(r io.Reader, w io.Writer, logger *slog.Logger) *Wizard {
	return &Wizard{
		prompt: NewPrompter(r, w),
		logger: logger,
		w:      w,
	}
}

// Run executes the interactive setup wizard. It walks the user through
// vault selection, reminder-backend connection, list mapping, config file
// creation, and optional daemon install.
func (wiz *Wizard) Run(ctx context.Context) error {
	_, _ = fmt.Fprintf(wiz.w, "\nWelcome to vaultsync Setup!\n")
	_, _ = fmt.Fprintf(wiz.w, "This wizard will help you configure and install vaultsync.\n\n")

	cfgPath, err := config.DefaultPath()
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}

	if _, statErr := os.Stat(cfgPath); statErr == nil {
		_, _ = fmt.Fprintf(wiz.w, "  Existing config found at %s\n", cfgPath)
		if !wiz.prompt.Confirm("Overwrite existing configuration?", false) {
			_, _ = fmt.Fprintf(wiz.w, "\n  Keeping existing config.\n")
			return wiz.offerDaemonInstall(ctx)
		}
		_, _ = fmt.Fprintf(wiz.w, "\n")
	}

	// Step 1: vaults.
	_, _ = fmt.Fprintf(wiz.w, "Step 1/5 — Vaults\n")
	vaults := wiz.buildVaults()

	// Step 2: reminder backend connection.
	_, _ = fmt.Fprintf(wiz.w, "Step 2/5 — Reminder Service\n")
	gateway, err := wiz.buildGateway(ctx)
	if err != nil {
		return err
	}

	// Step 3: discover & map lists per vault.
	_, _ = fmt.Fprintf(wiz.w, "Step 3/5 — List Mappings\n")
	vaultMappings, err := wiz.buildVaultMappings(ctx, vaults, gateway)
	if err != nil {
		return err
	}

	// Step 4: poll interval.
	_, _ = fmt.Fprintf(wiz.w, "Step 4/5 — Poll Interval\n")
	pollStr := wiz.prompt.String("How often to re-sync? (10s-5m)", "30s")
	pollInterval, parseErr := time.ParseDuration(pollStr)
	if parseErr != nil {
		pollInterval = 30 * time.Second
		_, _ = fmt.Fprintf(wiz.w, "  (invalid duration, using default 30s)\n")
	}
	_, _ = fmt.Fprintf(wiz.w, "\n")

	// Step 5: write config.
	_, _ = fmt.Fprintf(wiz.w, "Step 5/5 — Save Configuration\n")

	cfg := &config.Config{
		Vaults:        vaults,
		Gateway:       gateway,
		VaultMappings: vaultMappings,
		PollInterval:  pollInterval,
		LinksPath:     defaultLinksPath(),
	}

	if err := cfg.Write(cfgPath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	_, _ = fmt.Fprintf(wiz.w, "  Config written to %s\n\n", cfgPath)

	return wiz.offerDaemonInstall(ctx)
}

// defaultLinksPath returns ~/.local/share/vaultsync/links.json, falling back
// to a relative path if the home directory can't be resolved.
func defaultLinksPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "links.json"
	}
	return home + "/.local/share/vaultsync/links.json"
}

// buildVaults asks the user to name each document-store vault to sync.
func (wiz *Wizard) buildVaults() []config.VaultEntry {
	_, _ = fmt.Fprintf(wiz.w, "  Add one or more vaults (Markdown folders) to sync.\n\n")

	var vaults []config.VaultEntry
	for {
		path := wiz.prompt.String("Vault path (empty to finish)", "")
		if path == "" {
			break
		}
		vaultID := wiz.prompt.String("Vault id (short, stable name)", "")
		name := wiz.prompt.String("Display name", vaultID)

		vaults = append(vaults, config.VaultEntry{
			VaultID: vaultID,
			Name:    name,
			Path:    path,
		})
		_, _ = fmt.Fprintf(wiz.w, "  Added vault %q at %s\n\n", vaultID, path)
	}
	return vaults
}

// buildGateway selects and configures the reminder-service backend.
func (wiz *Wizard) buildGateway(ctx context.Context) (config.GatewayConfig, error) {
	backends := []string{"Apple Reminders (EventKit)", "Home Assistant (todo entities)"}
	idx, err := wiz.prompt.Select("Reminder backend", backends)
	if err != nil {
		return config.GatewayConfig{}, fmt.Errorf("selecting reminder backend: %w", err)
	}

	if idx == 0 {
		return config.GatewayConfig{Backend: config.GatewayEventKit}, nil
	}

	haURL := wiz.prompt.String("HA URL", "http://homeassistant.local:8123")
	haToken := wiz.prompt.Secret("Access token")

	_, _ = fmt.Fprintf(wiz.w, "  Connecting to Home Assistant...")
	if err := PingHA(ctx, haURL, haToken); err != nil {
		_, _ = fmt.Fprintf(wiz.w, " failed\n")
		return config.GatewayConfig{}, fmt.Errorf("cannot reach Home Assistant: %w\n\n  Check the URL and token, then try again", err)
	}
	_, _ = fmt.Fprintf(wiz.w, " ok\n\n")

	return config.GatewayConfig{
		Backend: config.GatewayHomeAssistant,
		HAURL:   haURL,
		HAToken: haToken,
	}, nil
}

// buildVaultMappings discovers reminder lists/entities and lets the user
// pick the default list each vault routes unmatched tasks to.
func (wiz *Wizard) buildVaultMappings(ctx context.Context, vaults []config.VaultEntry, gateway config.GatewayConfig) ([]config.VaultMapping, error) {
	if len(vaults) == 0 {
		return nil, nil
	}

	var listOptions []string
	switch gateway.Backend {
	case config.GatewayEventKit:
		_, _ = fmt.Fprintf(wiz.w, "  Discovering Reminders lists (may trigger a permissions prompt)...\n")
		lists, err := DiscoverRemindersLists(wiz.logger)
		if err != nil {
			wiz.logger.Warn("could not discover Reminders lists", "error", err)
			_, _ = fmt.Fprintf(wiz.w, "  Could not list Reminders lists - you can type list ids manually.\n")
		}
		for _, l := range lists {
			listOptions = append(listOptions, l.Title)
		}
	case config.GatewayHomeAssistant:
		_, _ = fmt.Fprintf(wiz.w, "  Discovering HA todo entities...\n")
		entities, err := DiscoverHATodoEntities(ctx, gateway.HAURL, gateway.HAToken)
		if err != nil {
			wiz.logger.Warn("could not discover HA entities", "error", err)
			_, _ = fmt.Fprintf(wiz.w, "  Could not list HA entities - you can type entity ids manually.\n")
		}
		for _, e := range entities {
			listOptions = append(listOptions, e.EntityID)
		}
	}
	_, _ = fmt.Fprintf(wiz.w, "\n")

	var mappings []config.VaultMapping
	for _, v := range vaults {
		var listID string
		if len(listOptions) > 0 {
			idx, err := wiz.prompt.Select(fmt.Sprintf("Default list for vault %q", v.VaultID), listOptions)
			if err != nil {
				return nil, fmt.Errorf("selecting default list for vault %q: %w", v.VaultID, err)
			}
			listID = listOptions[idx]
		} else {
			listID = wiz.prompt.String(fmt.Sprintf("Default list id for vault %q", v.VaultID), "")
		}
		mappings = append(mappings, config.VaultMapping{VaultID: v.VaultID, ListID: listID})
	}
	_, _ = fmt.Fprintf(wiz.w, "\n")
	return mappings, nil
}

// offerDaemonInstall asks the user whether to install as a background daemon.
func (wiz *Wizard) offerDaemonInstall(_ context.Context) error {
	if !wiz.prompt.Confirm("Install as background daemon (starts on login)?", true) {
		_, _ = fmt.Fprintf(wiz.w, "\n  Skipping daemon install.\n")
		_, _ = fmt.Fprintf(wiz.w, "  You can run manually with: vaultsync sync\n")
		_, _ = fmt.Fprintf(wiz.w, "  Or install later with:     vaultsync setup\n\n")
		return nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolving home directory: %w", err)
	}

	_, _ = fmt.Fprintf(wiz.w, "\n")

	_, _ = fmt.Fprintf(wiz.w, "  Installing binary to %s...\n", BinaryInstallPath())
	if err := InstallBinary(); err != nil {
		return fmt.Errorf("installing binary: %w", err)
	}
	_, _ = fmt.Fprintf(wiz.w, "  Binary installed\n")

	if err := WritePlist(homeDir); err != nil {
		return fmt.Errorf("writing plist: %w", err)
	}
	_, _ = fmt.Fprintf(wiz.w, "  LaunchAgent plist written\n")

	if err := CreateLogDir(homeDir); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	_, _ = fmt.Fprintf(wiz.w, "  Log directory created\n")

	if err := LoadDaemon(homeDir); err != nil {
		return fmt.Errorf("loading daemon: %w", err)
	}
	_, _ = fmt.Fprintf(wiz.w, "  Daemon loaded - running now\n")

	cfgPath, _ := config.DefaultPath()
	_, _ = fmt.Fprintf(wiz.w, "\nSetup complete! vaultsync is syncing in the background.\n")
	_, _ = fmt.Fprintf(wiz.w, "  Config:  %s\n", cfgPath)
	_, _ = fmt.Fprintf(wiz.w, "  Logs:    %s\n", LogDir(homeDir))
	_, _ = fmt.Fprintf(wiz.w, "  Remove:  vaultsync uninstall\n\n")

	return nil
}
