package domain

import (
	"fmt"
	"math/big"

	"github.com/fd1az/price-getter/internal/apperror"
)

// ExchangeRate is the amount of counterpart one whole bridge token buys in a
// constant-product pool, adjusted for both precisions:
//
//	(bridgeReserve × 10^counterpartDecimals) / (counterpartReserve × 10^bridgeDecimals)
//
// An empty reserve on either side fails with INSUFFICIENT_LIQUIDITY.
func ExchangeRate(bridge, counterpart Token, bridgeReserve, counterpartReserve *big.Int) (Price, error) {
	if bridgeReserve.Sign() <= 0 || counterpartReserve.Sign() <= 0 {
		return Price{}, apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext(fmt.Sprintf("%s=%s %s=%s", bridge.ID, bridgeReserve, counterpart.ID, counterpartReserve)))
	}

	num := new(big.Int).Mul(bridgeReserve, pow10(counterpart.Decimals))
	den := new(big.Int).Mul(counterpartReserve, pow10(bridge.Decimals))
	return PriceFromRatio(num, den), nil
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
