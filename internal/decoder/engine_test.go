package decoder

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"ledgerscope/internal/model"
)

var (
	stubContract = common.HexToAddress("0x1000000000000000000000000000000000000001")
	stubTopic    = crypto.Keccak256Hash([]byte("Stubbed(address,uint256)"))
)

// stubRule records the log indexes it was asked to decode and tags the
// first still-unclassified event it sees.
type stubRule struct {
	seen    []uint64
	failOn  uint64
	failErr error
}

func (r *stubRule) Decode(_ context.Context, c *Context) (DecodingOutput, error) {
	r.seen = append(r.seen, c.TxLog.LogIndex)
	if r.failErr != nil && c.TxLog.LogIndex == r.failOn {
		return DecodingOutput{}, r.failErr
	}
	for _, event := range c.Events {
		if event.Unclassified() {
			event.Counterparty = "stub"
			break
		}
	}
	return DecodingOutput{}, nil
}

type stubEnricher struct {
	seen []uint64
}

func (e *stubEnricher) Enrich(_ context.Context, c *EnricherContext) (EnrichmentOutput, error) {
	e.seen = append(e.seen, c.TxLog.LogIndex)
	c.Event.EventSubtype = model.EventSubtypeReward
	return EnrichmentOutput{}, nil
}

type stubProtocol struct {
	rule      *stubRule
	enrichers []Enricher
}

func (p *stubProtocol) AddressesToRules() map[common.Address][]Rule {
	return map[common.Address][]Rule{stubContract: {p.rule}}
}

func (p *stubProtocol) Counterparties() []string { return []string{"stub"} }

func (p *stubProtocol) EnricherRules() []Enricher { return p.enrichers }

func stubLog(address common.Address, index uint64) model.RawLog {
	return model.RawLog{
		Address:  address,
		Topics:   []common.Hash{stubTopic},
		Data:     common.LeftPadBytes(big.NewInt(1).Bytes(), 32),
		LogIndex: index,
	}
}

func TestEngineDispatchesByAddressInOrder(t *testing.T) {
	rule := &stubRule{}
	registry, err := NewRegistry(&stubProtocol{rule: rule})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	engine := NewEngine(registry, nil)

	other := common.HexToAddress("0x2000000000000000000000000000000000000002")
	tx := &model.Transaction{
		Logs: []model.RawLog{
			stubLog(stubContract, 0),
			stubLog(other, 1),
			stubLog(stubContract, 2),
		},
	}

	if errs := engine.ProcessTransaction(context.Background(), tx); len(errs) != 0 {
		t.Fatalf("unexpected decode errors: %v", errs)
	}
	if len(rule.seen) != 2 || rule.seen[0] != 0 || rule.seen[1] != 2 {
		t.Fatalf("dispatch order mismatch: %v", rule.seen)
	}
}

func TestEngineCollectsRuleErrors(t *testing.T) {
	rule := &stubRule{failOn: 1, failErr: errors.New("short data")}
	registry, err := NewRegistry(&stubProtocol{rule: rule})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	engine := NewEngine(registry, nil)

	event := &model.HistoryEvent{EventType: model.EventTypeSpend}
	tx := &model.Transaction{
		TxHash: common.HexToHash("0xabc"),
		Logs: []model.RawLog{
			stubLog(stubContract, 1),
			stubLog(stubContract, 2),
		},
		Events: []*model.HistoryEvent{event},
	}

	errs := engine.ProcessTransaction(context.Background(), tx)
	if len(errs) != 1 {
		t.Fatalf("expected 1 decode error, got %d", len(errs))
	}
	if errs[0].LogIndex != 1 || errs[0].Error != "short data" {
		t.Fatalf("unexpected decode error: %+v", errs[0])
	}
	if errs[0].Address != stubContract.Hex() || errs[0].Topic0 != stubTopic.Hex() {
		t.Fatalf("decode error missing log attribution: %+v", errs[0])
	}

	// The failing log did not stop the second log from classifying.
	if event.Counterparty != "stub" {
		t.Fatalf("later rule did not run after failure")
	}
}

func TestEngineEnrichmentPairsBySequenceIndex(t *testing.T) {
	rule := &stubRule{failOn: 0, failErr: errors.New("skip")}
	enricher := &stubEnricher{}
	registry, err := NewRegistry(&stubProtocol{rule: rule, enrichers: []Enricher{enricher}})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	engine := NewEngine(registry, nil)

	paired := &model.HistoryEvent{EventType: model.EventTypeReceive, SequenceIndex: 5}
	unpaired := &model.HistoryEvent{EventType: model.EventTypeReceive, SequenceIndex: 99}
	classified := &model.HistoryEvent{
		EventType:     model.EventTypeReceive,
		EventSubtype:  model.EventSubtypeFee,
		SequenceIndex: 5,
	}
	trade := &model.HistoryEvent{EventType: model.EventTypeTrade, SequenceIndex: 5}

	tx := &model.Transaction{
		Logs:   []model.RawLog{stubLog(stubContract, 0), stubLog(stubContract, 5)},
		Events: []*model.HistoryEvent{paired, unpaired, classified, trade},
	}
	engine.ProcessTransaction(context.Background(), tx)

	if paired.EventSubtype != model.EventSubtypeReward {
		t.Fatalf("paired event not enriched: %s", paired.EventSubtype)
	}
	if unpaired.EventSubtype != model.EventSubtypeNone {
		t.Fatalf("event without matching log was enriched")
	}
	if classified.EventSubtype != model.EventSubtypeFee {
		t.Fatalf("classified event was re-enriched: %s", classified.EventSubtype)
	}
	if trade.EventSubtype != model.EventSubtypeNone {
		t.Fatalf("non spend/receive event was enriched")
	}
	if len(enricher.seen) != 1 || enricher.seen[0] != 5 {
		t.Fatalf("enricher dispatch mismatch: %v", enricher.seen)
	}
}

func TestRegistryRejectsDuplicateCounterparty(t *testing.T) {
	a := &stubProtocol{rule: &stubRule{}}
	b := &stubProtocol{rule: &stubRule{}}
	if _, err := NewRegistry(a, b); err == nil {
		t.Fatalf("expected duplicate counterparty error")
	}
}

func TestRegistryLookups(t *testing.T) {
	rule := &stubRule{}
	registry, err := NewRegistry(&stubProtocol{rule: rule})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	if rules := registry.RulesForAddress(stubContract); len(rules) != 1 {
		t.Fatalf("expected 1 rule for stub contract, got %d", len(rules))
	}
	if rules := registry.RulesForAddress(common.Address{}); rules != nil {
		t.Fatalf("expected no rules for unknown address")
	}
	if rules := registry.RulesForCounterparty("stub"); len(rules) != 1 {
		t.Fatalf("expected 1 rule for stub counterparty, got %d", len(rules))
	}
	if tags := registry.Counterparties(); len(tags) != 1 || tags[0] != "stub" {
		t.Fatalf("counterparty tags mismatch: %v", tags)
	}
}
