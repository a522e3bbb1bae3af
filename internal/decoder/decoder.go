package decoder

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"ledgerscope/internal/model"
)

// ZeroAddress is the EVM burn/mint address.
var ZeroAddress = common.Address{}

// ERC20TransferTopic is the signature hash shared by ERC20 and ERC721
// Transfer events.
var ERC20TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// Context is the per-invocation bundle handed to a decoder rule: the log
// being dispatched plus the transaction it belongs to. Events aliases the
// transaction's event slice; rules mutate the events in place and never
// retain them past the call.
type Context struct {
	TxLog       model.RawLog
	Transaction *model.Transaction
	Events      []*model.HistoryEvent
}

// DecodingOutput is what a rule returns. Rules in this family classify by
// side effect, so the zero value is the expected result; the struct leaves
// room for rules that emit follow-up work.
type DecodingOutput struct{}

// Rule classifies history events based on one raw log. Implementations
// must be stateless and reentrant. The context bounds any network
// lookups (asset resolution) a rule performs.
type Rule interface {
	Decode(ctx context.Context, c *Context) (DecodingOutput, error)
}

// EnricherContext is the per-(event, log) bundle for the enrichment pass.
type EnricherContext struct {
	TxLog       model.RawLog
	Transaction *model.Transaction
	Event       *model.HistoryEvent
}

// EnrichmentOutput is the (always no-op) result of an enrichment attempt.
type EnrichmentOutput struct{}

// Enricher opportunistically reclassifies a still-unclassified event using
// static heuristics. Non-match is the common case and is not an error.
type Enricher interface {
	Enrich(ctx context.Context, c *EnricherContext) (EnrichmentOutput, error)
}

// Protocol is implemented by each protocol decoder module.
type Protocol interface {
	AddressesToRules() map[common.Address][]Rule
	Counterparties() []string
	EnricherRules() []Enricher
}

// AmountFromData reads the first 32-byte word of log data as a big-endian
// unsigned integer.
func AmountFromData(l model.RawLog) (*big.Int, error) {
	if len(l.Data) < 32 {
		return nil, fmt.Errorf("log data too short: %d bytes", len(l.Data))
	}
	return new(big.Int).SetBytes(l.Data[:32]), nil
}

// AddressFromTopic extracts the address packed into the last 20 bytes of
// an indexed topic.
func AddressFromTopic(topic common.Hash) common.Address {
	return common.BytesToAddress(topic[12:])
}

// TopicFromAddress left-pads an address to a 32-byte topic value.
func TopicFromAddress(address common.Address) common.Hash {
	return common.BytesToHash(address.Bytes())
}
