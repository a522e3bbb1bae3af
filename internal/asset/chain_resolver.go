package asset

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ledgerscope/internal/chain"
)

// ChainResolver resolves erc20 asset identifiers via eth_call, caching
// results in a StaticResolver. Identifiers that name a non-crypto asset
// (fiat prefix) fail with ErrWrongAssetType; anything that is neither a
// known static entry nor an erc20 identifier fails with ErrUnknownAsset.
type ChainResolver struct {
	chain  *chain.Client
	cache  *StaticResolver
	logger *zap.Logger
}

func NewChainResolver(chainClient *chain.Client, cache *StaticResolver, logger *zap.Logger) *ChainResolver {
	if cache == nil {
		cache = NewStaticResolver()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainResolver{chain: chainClient, cache: cache, logger: logger}
}

func (r *ChainResolver) Resolve(ctx context.Context, identifier string) (CryptoAsset, error) {
	if a, err := r.cache.Resolve(ctx, identifier); err == nil {
		return a, nil
	}

	if strings.HasPrefix(normalizeIdentifier(identifier), "fiat:") {
		return CryptoAsset{}, fmt.Errorf("resolve %s: %w", identifier, ErrWrongAssetType)
	}

	tokenAddress, ok := ParseERC20Address(identifier)
	if !ok {
		return CryptoAsset{}, fmt.Errorf("resolve %s: %w", identifier, ErrUnknownAsset)
	}
	if r.chain == nil {
		return CryptoAsset{}, fmt.Errorf("resolve %s: no chain client: %w", identifier, ErrUnknownAsset)
	}

	a, err := r.fetchToken(ctx, identifier, tokenAddress)
	if err != nil {
		r.logger.Warn("token metadata fetch failed", zap.String("token", tokenAddress.Hex()), zap.Error(err))
		return CryptoAsset{}, fmt.Errorf("resolve %s: %w", identifier, ErrUnknownAsset)
	}

	r.cache.Register(a)
	return a, nil
}

// ParseERC20Address extracts the token address from identifiers of the
// form "erc20:0x..." or "eip155:<id>/erc20:0x...".
func ParseERC20Address(identifier string) (common.Address, bool) {
	id := normalizeIdentifier(identifier)
	if idx := strings.Index(id, "/"); idx >= 0 {
		id = id[idx+1:]
	}
	if !strings.HasPrefix(id, "erc20:") {
		return common.Address{}, false
	}
	hexPart := strings.TrimPrefix(id, "erc20:")
	if !common.IsHexAddress(hexPart) {
		return common.Address{}, false
	}
	return common.HexToAddress(hexPart), true
}

func (r *ChainResolver) fetchToken(ctx context.Context, identifier string, token common.Address) (CryptoAsset, error) {
	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return CryptoAsset{}, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return CryptoAsset{}, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		msg := ethereum.CallMsg{To: &token, Data: data}
		resp, err := r.chain.CallContract(ctx, msg, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		return values, nil
	}

	a := CryptoAsset{Identifier: identifier}

	values, err := call("decimals", stringABI)
	if err != nil {
		return CryptoAsset{}, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return CryptoAsset{}, fmt.Errorf("unexpected decimals type %T", values[0])
	}
	a.Decimals = decimals

	if values, err := call("symbol", stringABI); err == nil {
		if symbol, ok := values[0].(string); ok {
			a.Symbol = symbol
		}
	} else if values, err := call("symbol", bytes32ABI); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			a.Symbol = symbol
		}
	} else {
		r.logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return a, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}
