// Package commands implements the yococtl operator CLI.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"yoco/stocksync/internal/api"
	"yoco/stocksync/internal/config"
	"yoco/stocksync/internal/logging"
)

var (
	configPath string
	logLevel   string

	cfg  *config.Config
	deps *api.Dependencies
)

// RootCmd is the yococtl entry point
var RootCmd = &cobra.Command{
	Use:   "yococtl",
	Short: "Operate the supplier stock sync engine",
	Long: `yococtl runs supplier syncs and inspects sync state from the command line.

It reads the same configuration as the server (config file, .env and YOCO_*
environment variables) and talks to the databases directly.

Examples:
  yococtl sync 12              # Sync one supplier now
  yococtl sync-all --fresh     # Sync every active supplier, bypassing the feed cache
  yococtl test-feed 12         # Preview a supplier feed
  yococtl logs list -s 12      # Recent sync logs of supplier 12
  yococtl suppliers import suppliers.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		return logging.Init(cfg.AppEnv, logging.Options{Level: logLevel})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if deps != nil {
			_ = deps.Close()
		}
		_ = logging.Close()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("YOCO_CONFIG"), "path to the config file")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level for engine output")

	RootCmd.AddCommand(syncCmd, syncAllCmd, testFeedCmd, checkStockCmd, reconcileCmd)
	RootCmd.AddCommand(logsCmd, batchesCmd, suppliersCmd)
	RootCmd.AddCommand(migrateCmd, tokenCmd)
}

// engine opens the databases on first use
func engine() (*api.Dependencies, error) {
	if deps != nil {
		return deps, nil
	}
	var err error
	deps, err = api.InitDependencies(cfg, prometheus.NewRegistry(), logging.Named("yococtl"))
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return deps, nil
}

// signalContext is cancelled on Ctrl-C so a running sync stops between entries
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, arg)
	}
	return id, nil
}
