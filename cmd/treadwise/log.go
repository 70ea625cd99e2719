package main

import (
	"context"
	"fmt"

	"github.com/treadwise/agent/internal/config"
	"github.com/treadwise/agent/internal/daemon/components"
	"github.com/treadwise/agent/internal/leads"
	"github.com/treadwise/agent/internal/leads/formatter"
	"github.com/treadwise/agent/internal/store"

	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Inspect recorded leads and unanswered questions",
}

var logLeadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Show the most recent sales leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLogCommand(cmd, func(ctx context.Context, loaded *config.Config, w *store.Worker, f formatter.RecordFormatter, limit int) (string, error) {
			records, err := leads.ReadLeads(ctx, w, loaded.Store.LeadsFile, limit)
			if err != nil {
				return "", fmt.Errorf("failed to read leads: %w", err)
			}
			return f.FormatLeads(records)
		})
	},
}

var logFeedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Show the most recent unanswered questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLogCommand(cmd, func(ctx context.Context, loaded *config.Config, w *store.Worker, f formatter.RecordFormatter, limit int) (string, error) {
			records, err := leads.ReadFeedback(ctx, w, loaded.Store.FeedbackFile, limit)
			if err != nil {
				return "", fmt.Errorf("failed to read feedback: %w", err)
			}
			return f.FormatFeedback(records)
		})
	},
}

type logRenderer func(ctx context.Context, loaded *config.Config, w *store.Worker, f formatter.RecordFormatter, limit int) (string, error)

func runLogCommand(cmd *cobra.Command, render logRenderer) error {
	loadedCfg, err := loadConfigForCommand(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}
	output, _ := cmd.Flags().GetString("output")
	format, err := formatter.ParseOutputFormat(output)
	if err != nil {
		return err
	}
	f, err := formatter.New(format)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	storeComp := components.NewStoreWorkerComponent(&loadedCfg.Store)
	if err := storeComp.Init(ctx); err != nil {
		return err
	}
	if err := storeComp.Start(ctx); err != nil {
		return err
	}
	defer storeComp.Stop(context.Background())

	out, err := render(ctx, loadedCfg, storeComp.GetWorker(), f, limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{logLeadsCmd, logFeedbackCmd} {
		c.Flags().IntP("limit", "n", 20, "Number of most recent records to show (0 for all)")
		c.Flags().StringP("output", "o", string(formatter.OutputFormatTable), "Output format: table, json or yaml")
		logCmd.AddCommand(c)
	}
	rootCmd.AddCommand(logCmd)
}
