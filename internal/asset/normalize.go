package asset

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// NormalizedValue converts a raw base-unit integer into a human-scale
// amount using the asset's decimal count.
func NormalizedValue(raw *big.Int, a CryptoAsset) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(new(big.Int).Set(raw), -int32(a.Decimals))
}
