package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dnoble/vaultsync/internal/collab"
	"github.com/dnoble/vaultsync/internal/config"
	"github.com/dnoble/vaultsync/internal/gateway/eventkit"
	"github.com/dnoble/vaultsync/internal/gateway/hatodo"
)

// buildGateway constructs the configured ReminderGateway backend. For the
// Home Assistant backend it also verifies connectivity before returning.
func buildGateway(ctx context.Context, cfg *config.GatewayConfig, logger *slog.Logger) (collab.ReminderGateway, error) {
	switch cfg.Backend {
	case config.GatewayHomeAssistant:
		adapter, err := hatodo.NewAdapter(cfg.HAURL, cfg.HAToken, logger)
		if err != nil {
			return nil, fmt.Errorf("initialising Home Assistant client: %w", err)
		}
		logger.Info("pinging Home Assistant…", "url", cfg.HAURL)
		if err := adapter.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connecting to Home Assistant at %q: %w\n\nCheck gateway.ha_url and gateway.ha_token in your config file", cfg.HAURL, err)
		}
		logger.Info("Home Assistant reachable")
		return adapter, nil

	case config.GatewayEventKit:
		logger.Info("initialising Apple Reminders client (may trigger permissions prompt)…")
		adapter, err := eventkit.NewAdapter(logger)
		if err != nil {
			return nil, fmt.Errorf("initialising Reminders client: %w", err)
		}
		logger.Info("Reminders client ready")
		return adapter, nil

	default:
		return nil, fmt.Errorf("unknown gateway backend %q", cfg.Backend)
	}
}
