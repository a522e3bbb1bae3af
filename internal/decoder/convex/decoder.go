package convex

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ledgerscope/internal/asset"
	"ledgerscope/internal/decoder"
	"ledgerscope/internal/model"
	"ledgerscope/internal/notify"
)

// Decoder classifies Convex deposits, withdrawals and reward claims. It
// rewrites the generic spend/receive events produced by the upstream pass;
// it never creates or deletes events.
type Decoder struct {
	assets   asset.Resolver
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewDecoder(assets asset.Resolver, notifier notify.Notifier, logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{assets: assets, notifier: notifier, logger: logger}
}

// Decode inspects one log emitted by a Convex contract and reclassifies
// the matching history events in place. The returned output is always the
// no-op sentinel; classification happens entirely by side effect so the
// identity and ordering of the upstream events is preserved.
func (d *Decoder) Decode(ctx context.Context, c *decoder.Context) (decoder.DecodingOutput, error) {
	amountRaw, err := decoder.AmountFromData(c.TxLog)
	if err != nil {
		return decoder.DecodingOutput{}, err
	}
	if len(c.TxLog.Topics) < 2 {
		return decoder.DecodingOutput{}, fmt.Errorf("convex log %d has no interacted address topic", c.TxLog.LogIndex)
	}
	interacted := decoder.AddressFromTopic(c.TxLog.Topics[1])

	for _, event := range c.Events {
		cryptoAsset, err := d.assets.Resolve(ctx, event.Asset)
		if err != nil {
			if errors.Is(err, asset.ErrUnknownAsset) || errors.Is(err, asset.ErrWrongAssetType) {
				d.notifier.UnresolvableAsset(event.Asset, Counterparty)
				continue
			}
			return decoder.DecodingOutput{}, err
		}

		amount := asset.NormalizedValue(amountRaw, cryptoAsset)

		// The acting user must match across all three signals: the
		// event's location label, the transaction sender, and the log's
		// indexed interacted address.
		if !common.IsHexAddress(event.LocationLabel) ||
			common.HexToAddress(event.LocationLabel) != c.Transaction.FromAddress ||
			c.Transaction.FromAddress != interacted {
			continue
		}

		// A zero-address counterparty is a wrapped-token mint/burn and
		// waives the amount check; otherwise the event amount must equal
		// the log amount or the log belongs to some other event.
		mintOrBurn := event.Address != nil && *event.Address == decoder.ZeroAddress
		if !mintOrBurn && !event.Balance.Amount.Equal(amount) {
			continue
		}

		switch {
		case event.EventType == model.EventTypeSpend && event.Unclassified():
			if mintOrBurn {
				event.EventSubtype = model.EventSubtypeReturnWrapped
				event.Counterparty = Counterparty
				event.Notes = fmt.Sprintf("Return %s %s to convex%s",
					event.Balance.Amount, cryptoAsset.Symbol, poolSuffix(c.TxLog.Address))
			} else {
				event.EventType = model.EventTypeDeposit
				event.Counterparty = Counterparty
				event.Notes = fmt.Sprintf("Deposit %s %s into convex%s",
					event.Balance.Amount, cryptoAsset.Symbol, poolSuffix(c.TxLog.Address))
			}

		case event.EventType == model.EventTypeReceive && event.Unclassified():
			if _, ok := withdrawalTopics[c.TxLog.Topic0()]; ok {
				event.EventType = model.EventTypeWithdrawal
				event.Counterparty = Counterparty
				event.Notes = fmt.Sprintf("Withdraw %s %s from convex%s",
					event.Balance.Amount, cryptoAsset.Symbol, poolSuffix(c.TxLog.Address))
			} else if _, ok := rewardTopics[c.TxLog.Topic0()]; ok {
				event.EventSubtype = model.EventSubtypeReward
				event.Counterparty = Counterparty
				event.Notes = fmt.Sprintf("Claim %s %s reward from convex%s",
					event.Balance.Amount, cryptoAsset.Symbol, poolSuffix(c.TxLog.Address))
			}
			// Unknown signature: leave the event untouched so a future
			// event kind never corrupts an existing classification.
		}
	}

	return decoder.DecodingOutput{}, nil
}

// AddressesToRules maps every Convex contract this module understands to
// the single decode rule.
func (d *Decoder) AddressesToRules() map[common.Address][]decoder.Rule {
	mappings := map[common.Address][]decoder.Rule{
		Booster:     {d},
		CvxLocker:   {d},
		CvxLockerV2: {d},
		CvxRewards:  {d},
	}
	for pool := range Pools {
		mappings[pool] = []decoder.Rule{d}
	}
	for _, pool := range VirtualRewards {
		mappings[pool] = []decoder.Rule{d}
	}
	return mappings
}

func (d *Decoder) Counterparties() []string {
	return []string{Counterparty}
}

func (d *Decoder) EnricherRules() []decoder.Enricher {
	return []decoder.Enricher{&transferEnricher{assets: d.assets}}
}

// transferEnricher handles rewards paid through abracadabra farms. The
// transfer lands at the end of the transaction with no companion reward
// log, so the decode pass above never sees a signal for it.
type transferEnricher struct {
	assets asset.Resolver
}

func (e *transferEnricher) Enrich(ctx context.Context, c *decoder.EnricherContext) (decoder.EnrichmentOutput, error) {
	if c.TxLog.Topic0() != decoder.ERC20TransferTopic || len(c.TxLog.Topics) < 2 {
		return decoder.EnrichmentOutput{}, nil
	}
	if _, ok := abraTransferSenders[c.TxLog.Topics[1]]; !ok {
		return decoder.EnrichmentOutput{}, nil
	}
	if !common.IsHexAddress(c.Event.LocationLabel) ||
		common.HexToAddress(c.Event.LocationLabel) != c.Transaction.FromAddress {
		return decoder.EnrichmentOutput{}, nil
	}
	if c.Event.EventType != model.EventTypeReceive || !c.Event.Unclassified() {
		return decoder.EnrichmentOutput{}, nil
	}

	cryptoAsset, err := e.assets.Resolve(ctx, c.Event.Asset)
	if err != nil {
		return decoder.EnrichmentOutput{}, err
	}

	c.Event.EventSubtype = model.EventSubtypeReward
	c.Event.Counterparty = Counterparty
	c.Event.Notes = fmt.Sprintf("Claim %s %s reward from convex%s",
		c.Event.Balance.Amount, cryptoAsset.Symbol, poolSuffix(c.TxLog.Address))

	return decoder.EnrichmentOutput{}, nil
}

func poolSuffix(address common.Address) string {
	if name, ok := Pools[address]; ok {
		return fmt.Sprintf(" %s pool", name)
	}
	return ""
}
