package decoder

import (
	"context"

	"go.uber.org/zap"

	"ledgerscope/internal/model"
)

// Engine runs the registry over one transaction: every log is dispatched
// to the rules registered for its emitting address, in log-index order,
// then enrichers run over any event still carrying the upstream
// placeholder classification. A rule error never aborts the transaction;
// it is recorded and the remaining logs keep processing.
type Engine struct {
	registry *Registry
	logger   *zap.Logger
}

func NewEngine(registry *Registry, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{registry: registry, logger: logger}
}

// ProcessTransaction mutates the transaction's events in place and returns
// the decode errors encountered, if any.
func (e *Engine) ProcessTransaction(ctx context.Context, tx *model.Transaction) []model.DecodeError {
	var errs []model.DecodeError

	for _, txLog := range tx.Logs {
		rules := e.registry.RulesForAddress(txLog.Address)
		if len(rules) == 0 {
			continue
		}
		for _, rule := range rules {
			c := &Context{TxLog: txLog, Transaction: tx, Events: tx.Events}
			if _, err := rule.Decode(ctx, c); err != nil {
				e.logger.Warn("decoder rule failed",
					zap.String("tx_hash", tx.TxHash.Hex()),
					zap.Uint64("log_index", txLog.LogIndex),
					zap.String("address", txLog.Address.Hex()),
					zap.Error(err),
				)
				errs = append(errs, decodeError(tx, txLog, err))
			}
		}
	}

	errs = append(errs, e.enrich(ctx, tx)...)
	return errs
}

// enrich pairs each still-unclassified spend/receive event with the log
// that produced it and offers the pair to every enricher in order.
func (e *Engine) enrich(ctx context.Context, tx *model.Transaction) []model.DecodeError {
	if len(e.registry.Enrichers()) == 0 {
		return nil
	}

	logsByIndex := make(map[uint64]model.RawLog, len(tx.Logs))
	for _, txLog := range tx.Logs {
		logsByIndex[txLog.LogIndex] = txLog
	}

	var errs []model.DecodeError
	for _, event := range tx.Events {
		if !event.Unclassified() {
			continue
		}
		if event.EventType != model.EventTypeSpend && event.EventType != model.EventTypeReceive {
			continue
		}
		txLog, ok := logsByIndex[event.SequenceIndex]
		if !ok {
			continue
		}
		for _, enricher := range e.registry.Enrichers() {
			c := &EnricherContext{TxLog: txLog, Transaction: tx, Event: event}
			if _, err := enricher.Enrich(ctx, c); err != nil {
				e.logger.Warn("enricher failed",
					zap.String("tx_hash", tx.TxHash.Hex()),
					zap.Uint64("log_index", txLog.LogIndex),
					zap.Error(err),
				)
				errs = append(errs, decodeError(tx, txLog, err))
			}
		}
	}
	return errs
}

func decodeError(tx *model.Transaction, txLog model.RawLog, err error) model.DecodeError {
	return model.DecodeError{
		TxHash:   tx.TxHash.Hex(),
		LogIndex: txLog.LogIndex,
		Address:  txLog.Address.Hex(),
		Topic0:   txLog.Topic0().Hex(),
		Error:    err.Error(),
	}
}
