package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/steemit/hnspool/internal/app"
	"github.com/steemit/hnspool/internal/indexer"
	"github.com/steemit/hnspool/pkg/config"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "indexer",
		Short:         "Ingest Hacker News stories and their comment trees",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(runCmd())
	root.AddCommand(scheduleCmd())
	root.AddCommand(migrateCmd())

	return root
}

func runCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch and store one batch of stories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, fmt.Sprintf("number of stories to fetch, 1-%d (0: from config)", config.MaxStoryLimit))
	return cmd
}

func scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Fetch stories on the configured interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// validateLimit accepts 1..MaxStoryLimit, or 0 for the configured default
func validateLimit(limit int) error {
	if limit < 0 || limit > config.MaxStoryLimit {
		return fmt.Errorf("--limit must be between 1 and %d, or 0 for the configured default", config.MaxStoryLimit)
	}
	return nil
}

func runOnce(limit int) error {
	if err := validateLimit(limit); err != nil {
		return err
	}

	a, err := app.Init(cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.BuildSync(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	report, err := a.Sync.Run(ctx, limit)
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	}
	return err
}

func runSchedule() error {
	a, err := app.Init(cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.BuildSync(); err != nil {
		return err
	}

	a.Logger.Info("Starting HN spool scheduler")

	ctx, stop := signalContext()
	defer stop()

	cfg := a.Config.Indexer
	scheduler := indexer.NewScheduler(a.Sync, cfg.Interval, cfg.RunOnStart, cfg.DefaultLimit)
	if err := scheduler.Run(ctx); err != nil {
		a.Logger.Error("Scheduler failed", zap.Error(err))
		return err
	}

	a.Logger.Info("Scheduler exited")
	return nil
}

func runMigrate() error {
	a, err := app.Init(cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	if err := a.Migrate(ctx); err != nil {
		return err
	}
	a.Logger.Info("Database schema is up to date")
	return nil
}
