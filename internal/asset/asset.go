package asset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// CryptoAsset is a decimals-and-symbol-bearing handle for an on-chain asset.
type CryptoAsset struct {
	Identifier string `json:"identifier"`
	Symbol     string `json:"symbol"`
	Decimals   uint8  `json:"decimals"`
}

var (
	// ErrUnknownAsset means the identifier is not known to the resolver.
	ErrUnknownAsset = errors.New("unknown asset")
	// ErrWrongAssetType means the identifier resolves to something that is
	// not a crypto asset (e.g. a fiat currency or NFT collection).
	ErrWrongAssetType = errors.New("wrong asset type")
)

// Resolver resolves an asset identifier to a crypto asset handle.
// Implementations return errors wrapping ErrUnknownAsset or
// ErrWrongAssetType; callers treat both as "cannot classify via this
// asset", never as fatal. The context bounds any network lookups the
// implementation performs.
type Resolver interface {
	Resolve(ctx context.Context, identifier string) (CryptoAsset, error)
}

// StaticResolver resolves from an in-memory table. It doubles as the cache
// in front of the chain-backed resolver.
type StaticResolver struct {
	mu     sync.RWMutex
	assets map[string]CryptoAsset
}

func NewStaticResolver(assets ...CryptoAsset) *StaticResolver {
	r := &StaticResolver{assets: make(map[string]CryptoAsset, len(assets))}
	for _, a := range assets {
		r.assets[normalizeIdentifier(a.Identifier)] = a
	}
	return r
}

// Register adds or replaces an asset entry.
func (r *StaticResolver) Register(a CryptoAsset) {
	r.mu.Lock()
	r.assets[normalizeIdentifier(a.Identifier)] = a
	r.mu.Unlock()
}

// Resolve looks up the identifier in the static table.
func (r *StaticResolver) Resolve(_ context.Context, identifier string) (CryptoAsset, error) {
	r.mu.RLock()
	a, ok := r.assets[normalizeIdentifier(identifier)]
	r.mu.RUnlock()
	if !ok {
		return CryptoAsset{}, fmt.Errorf("resolve %s: %w", identifier, ErrUnknownAsset)
	}
	return a, nil
}

func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
