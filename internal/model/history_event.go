package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// EventType is the primary classification of a history event.
type EventType string

const (
	EventTypeTrade         EventType = "trade"
	EventTypeSpend         EventType = "spend"
	EventTypeReceive       EventType = "receive"
	EventTypeDeposit       EventType = "deposit"
	EventTypeWithdrawal    EventType = "withdrawal"
	EventTypeStaking       EventType = "staking"
	EventTypeInformational EventType = "informational"
)

// EventSubtype refines an EventType.
type EventSubtype string

const (
	EventSubtypeNone           EventSubtype = "none"
	EventSubtypeReward         EventSubtype = "reward"
	EventSubtypeReturnWrapped  EventSubtype = "return wrapped"
	EventSubtypeReceiveWrapped EventSubtype = "receive wrapped"
	EventSubtypeFee            EventSubtype = "fee"
)

// Balance pairs an asset amount with its fiat valuation.
type Balance struct {
	Amount   decimal.Decimal `json:"amount"`
	UsdValue decimal.Decimal `json:"usd_value"`
}

// HistoryEvent is one economically meaningful effect of a transaction on a
// user's holdings. The upstream generic pass creates them with best-effort
// spend/receive placeholders; decoder rules refine type, subtype, notes and
// counterparty in place. Rules never create or delete events.
type HistoryEvent struct {
	TxHash        common.Hash     `json:"tx_hash"`
	SequenceIndex uint64          `json:"sequence_index"`
	EventType     EventType       `json:"event_type"`
	EventSubtype  EventSubtype    `json:"event_subtype"`
	Asset         string          `json:"asset"`
	Balance       Balance         `json:"balance"`
	Address       *common.Address `json:"address,omitempty"`
	LocationLabel string          `json:"location_label"`
	Notes         string          `json:"notes,omitempty"`
	Counterparty  string          `json:"counterparty,omitempty"`
}

// Unclassified reports whether the event still carries the upstream
// placeholder subtype. Input produced before the subtype field existed
// serializes it as the empty string, which counts as none.
func (e *HistoryEvent) Unclassified() bool {
	return e.EventSubtype == EventSubtypeNone || e.EventSubtype == ""
}
