package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ledgerscope/internal/asset"
	"ledgerscope/internal/chain"
	"ledgerscope/internal/config"
	"ledgerscope/internal/decoder"
	"ledgerscope/internal/decoder/convex"
	"ledgerscope/internal/ledger"
	"ledgerscope/internal/ledger/postgres"
	"ledgerscope/internal/model"
	"ledgerscope/internal/notify"
)

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver, err := buildResolver(ctx, cfg, logger)
	if err != nil {
		return err
	}

	notifier := notify.NewZapNotifier(logger)

	registry, err := decoder.NewRegistry(convex.NewDecoder(resolver, notifier, logger))
	if err != nil {
		return err
	}
	engine := decoder.NewEngine(registry, logger)

	sinks := []ledger.Storage{ledger.NewJsonlStorage(cfg.Out)}
	if cfg.PgDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	errWriter, err := newJSONLWriter(cfg.Errors)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Bool("postgres", cfg.PgDSN != ""),
	)

	scanner := bufio.NewScanner(inputFile)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var total, decoded, failed int
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var tx model.Transaction
		if err := json.Unmarshal(line, &tx); err != nil {
			failed++
			writeDecodeError(errWriter, model.DecodeError{Error: err.Error()})
			continue
		}

		decodeErrs := engine.ProcessTransaction(ctx, &tx)
		for _, decodeErr := range decodeErrs {
			failed++
			writeDecodeError(errWriter, decodeErr)
		}

		events := make([]model.HistoryEvent, 0, len(tx.Events))
		for _, event := range tx.Events {
			events = append(events, *event)
		}
		for _, sink := range sinks {
			if err := sink.PutEventBatch(ctx, events); err != nil {
				return fmt.Errorf("store events: %w", err)
			}
		}
		decoded++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	logger.Info("decode complete",
		zap.Int("transactions", total),
		zap.Int("decoded", decoded),
		zap.Int("errors", failed),
	)

	return nil
}

func buildResolver(ctx context.Context, cfg config.DecodeConfig, logger *zap.Logger) (asset.Resolver, error) {
	static := asset.NewStaticResolver()

	if cfg.Assets != "" {
		data, err := os.ReadFile(cfg.Assets)
		if err != nil {
			return nil, fmt.Errorf("read assets: %w", err)
		}
		var assets []asset.CryptoAsset
		if err := json.Unmarshal(data, &assets); err != nil {
			return nil, fmt.Errorf("parse assets: %w", err)
		}
		for _, a := range assets {
			static.Register(a)
		}
	}

	if cfg.RPCURL == "" {
		return static, nil
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	return asset.NewChainResolver(chainClient, static, logger), nil
}

type jsonlWriter struct {
	file   *os.File
	writer *bufio.Writer
}

func newJSONLWriter(path string) (*jsonlWriter, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &jsonlWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (w *jsonlWriter) Write(value interface{}) error {
	line, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

func (w *jsonlWriter) Close() error {
	if w == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func writeDecodeError(writer *jsonlWriter, errRecord model.DecodeError) {
	if writer == nil {
		return
	}
	_ = writer.Write(errRecord)
}
