package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ledgerscope/internal/config"
	"ledgerscope/internal/migrations"
	"ledgerscope/internal/notify"
	"ledgerscope/internal/userdb"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadMigrate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := userdb.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("migrate start", zap.String("db", cfg.DBPath))

	// A failed step is reported through the notifier and the marker stays
	// put; the next run retries from there. The command itself succeeds so
	// startup sequences keep going with a partially migrated database.
	manager := migrations.NewManager(db, notify.NewZapNotifier(logger), logger, migrations.MigrationList)
	manager.MaybeMigrateData(ctx)

	logger.Info("migrate complete")
	return nil
}
