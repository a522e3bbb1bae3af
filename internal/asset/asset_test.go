package asset

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestStaticResolver(t *testing.T) {
	resolver := NewStaticResolver(CryptoAsset{
		Identifier: "eip155:1/erc20:0xD533a949740bb3306d119CC777fa900bA034cd52",
		Symbol:     "CRV",
		Decimals:   18,
	})

	a, err := resolver.Resolve(context.Background(), "EIP155:1/ERC20:0xD533A949740BB3306D119CC777FA900BA034CD52")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if a.Symbol != "CRV" || a.Decimals != 18 {
		t.Fatalf("unexpected asset: %+v", a)
	}

	if _, err := resolver.Resolve(context.Background(), "eip155:1/erc20:0x0000000000000000000000000000000000000001"); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestNormalizedValue(t *testing.T) {
	crv := CryptoAsset{Symbol: "CRV", Decimals: 18}

	raw, ok := new(big.Int).SetString("7500000000000000000", 10)
	if !ok {
		t.Fatalf("parse raw amount")
	}

	got := NormalizedValue(raw, crv)
	if got.String() != "7.5" {
		t.Fatalf("normalized value mismatch: %s", got)
	}

	zeroDecimals := CryptoAsset{Symbol: "X", Decimals: 0}
	if got := NormalizedValue(big.NewInt(42), zeroDecimals); got.String() != "42" {
		t.Fatalf("zero-decimal value mismatch: %s", got)
	}

	if got := NormalizedValue(nil, crv); !got.IsZero() {
		t.Fatalf("nil raw should normalize to zero, got %s", got)
	}
}

func TestParseERC20Address(t *testing.T) {
	token := common.HexToAddress("0xD533a949740bb3306d119CC777fa900bA034cd52")

	got, ok := ParseERC20Address("eip155:1/erc20:0xD533a949740bb3306d119CC777fa900bA034cd52")
	if !ok || got != token {
		t.Fatalf("eip155 identifier parse failed: %s %v", got.Hex(), ok)
	}

	got, ok = ParseERC20Address("erc20:0xD533a949740bb3306d119CC777fa900bA034cd52")
	if !ok || got != token {
		t.Fatalf("bare identifier parse failed: %s %v", got.Hex(), ok)
	}

	if _, ok := ParseERC20Address("eip155:1/erc721:0xD533a949740bb3306d119CC777fa900bA034cd52"); ok {
		t.Fatalf("erc721 identifier should not parse")
	}
	if _, ok := ParseERC20Address("ETH"); ok {
		t.Fatalf("plain identifier should not parse")
	}
}
