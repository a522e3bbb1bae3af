package decoder

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Registry maps contract addresses to the decoder rules that apply to logs
// they emit, counterparty tags to the rules of the module that owns them,
// and holds the global ordered list of enrichers. It is built once and
// never mutated afterwards.
type Registry struct {
	rules          map[common.Address][]Rule
	byCounterparty map[string][]Rule
	enrichers      []Enricher
}

// NewRegistry assembles the lookup tables from the given protocol modules.
func NewRegistry(protocols ...Protocol) (*Registry, error) {
	r := &Registry{
		rules:          make(map[common.Address][]Rule),
		byCounterparty: make(map[string][]Rule),
	}

	for _, p := range protocols {
		mappings := p.AddressesToRules()
		moduleRules := make([]Rule, 0, len(mappings))
		seen := make(map[Rule]struct{})
		for address, rules := range mappings {
			if len(rules) == 0 {
				return nil, fmt.Errorf("no rules registered for address %s", address.Hex())
			}
			r.rules[address] = append(r.rules[address], rules...)
			for _, rule := range rules {
				if _, ok := seen[rule]; !ok {
					seen[rule] = struct{}{}
					moduleRules = append(moduleRules, rule)
				}
			}
		}
		for _, tag := range p.Counterparties() {
			if _, ok := r.byCounterparty[tag]; ok {
				return nil, fmt.Errorf("duplicate counterparty tag %q", tag)
			}
			r.byCounterparty[tag] = moduleRules
		}
		r.enrichers = append(r.enrichers, p.EnricherRules()...)
	}

	return r, nil
}

// RulesForAddress returns the ordered rules for a log-emitting address.
func (r *Registry) RulesForAddress(address common.Address) []Rule {
	return r.rules[address]
}

// RulesForCounterparty returns the rules owned by a counterparty tag.
func (r *Registry) RulesForCounterparty(tag string) []Rule {
	return r.byCounterparty[tag]
}

// Enrichers returns the global ordered enrichment rules.
func (r *Registry) Enrichers() []Enricher {
	return r.enrichers
}

// Counterparties returns all registered attribution tags.
func (r *Registry) Counterparties() []string {
	tags := make([]string, 0, len(r.byCounterparty))
	for tag := range r.byCounterparty {
		tags = append(tags, tag)
	}
	return tags
}
