package model

import (
	"github.com/ethereum/go-ethereum/common"
)

// Transaction bundles one on-chain transaction as produced by the upstream
// generic decoding pass: its sender, the full ordered list of raw logs, and
// the history events decoded so far. The bundle itself is immutable; the
// events are shared mutable records.
type Transaction struct {
	TxHash      common.Hash     `json:"tx_hash"`
	FromAddress common.Address  `json:"from_address"`
	Logs        []RawLog        `json:"logs"`
	Events      []*HistoryEvent `json:"events"`
}

// DecodeError records a decode failure for one log of a transaction.
type DecodeError struct {
	TxHash   string `json:"tx_hash"`
	LogIndex uint64 `json:"log_index"`
	Address  string `json:"address"`
	Topic0   string `json:"topic0"`
	Error    string `json:"error"`
}
