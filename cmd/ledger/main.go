package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "ledger",
		Short:        "Canonical ledger decoder and user database tooling",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Classify decoded transactions into ledger events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("rpc", "", "Ethereum RPC URL for asset resolution (optional)")
	decodeCmd.Flags().String("in", "", "input transactions JSONL")
	decodeCmd.Flags().String("out", "./data/ledger_events.jsonl", "output ledger events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("assets", "", "static asset table JSON path")
	decodeCmd.Flags().String("pg-dsn", "", "Postgres DSN (optional, events also upserted there)")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run pending data migrations on the user database",
		RunE:  runMigrate,
	}

	migrateCmd.Flags().String("db", "./data/user.db", "user database path")
	migrateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(migrateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
