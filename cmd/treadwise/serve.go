package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/treadwise/agent/internal/daemon"
	"github.com/treadwise/agent/internal/daemon/components"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web chat and bot adapters",
	Long:  `Starts the TreadWise daemon: the store worker, sessions, the conversation loop, the web chat widget with its JSON API and /health, plus the Slack and Telegram bots when enabled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		daemonMgr, err := daemon.NewDaemon(cfg)
		if err != nil {
			return fmt.Errorf("failed to create daemon manager: %w", err)
		}

		storeComp := components.NewStoreWorkerComponent(&cfg.Store)
		sessionsComp := components.NewSessionsComponent(cfg)
		dedupeComp := components.NewDedupeComponent(&cfg.Store)
		orchComp := components.NewOrchestratorComponent(cfg, nil, storeComp, sessionsComp)
		adaptersComp := components.NewAdaptersComponent(&cfg.Adapters, orchComp, dedupeComp)
		httpComp := components.NewHTTPServerComponent(daemonMgr, cfg, orchComp, sessionsComp)

		daemonMgr.AddComponent(storeComp)
		daemonMgr.AddComponent(sessionsComp)
		daemonMgr.AddComponent(dedupeComp)
		daemonMgr.AddComponent(orchComp)
		daemonMgr.AddComponent(adaptersComp)
		daemonMgr.AddComponent(httpComp)

		slog.Info("TreadWise daemon starting up...", "port", cfg.Server.Port, "model", cfg.Models.Default)
		err = daemonMgr.Start(context.Background())
		if err != nil {
			// Cancellation via signal/context is a graceful shutdown case for CLI.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("TreadWise daemon stopped gracefully")
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("TreadWise daemon stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
