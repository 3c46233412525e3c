package liquidity

import (
	"fmt"
	"math"
	"math/big"

	"crocPlanner/internal/fixedpoint"
)

// ConcLotBits is the number of low bits that must be zero in range liquidity.
const ConcLotBits = 11

// LiquidityForBaseQty converts a base token quantity to liquidity at price.
// mult is 1 for ambient positions.
func LiquidityForBaseQty(price float64, qty *big.Int, mult float64) (*big.Int, error) {
	liq := math.Floor(fixedpoint.ToFloat(qty) / math.Sqrt(price) * mult)
	return toQuantity("base liquidity", liq)
}

// LiquidityForQuoteQty converts a quote token quantity to liquidity at price.
func LiquidityForQuoteQty(price float64, qty *big.Int, mult float64) (*big.Int, error) {
	liq := math.Floor(fixedpoint.ToFloat(qty) * math.Sqrt(price) * mult)
	return toQuantity("quote liquidity", liq)
}

// BaseVirtualReserves is the base token backing liq at price.
func BaseVirtualReserves(price float64, liq *big.Int, mult float64) (*big.Int, error) {
	return toQuantity("base reserves", fixedpoint.ToFloat(liq)*math.Sqrt(price)*mult)
}

// QuoteVirtualReserves is the quote token backing liq at price.
func QuoteVirtualReserves(price float64, liq *big.Int, mult float64) (*big.Int, error) {
	return toQuantity("quote reserves", fixedpoint.ToFloat(liq)/math.Sqrt(price)*mult)
}

// LiquidityForBaseConc converts base collateral into range liquidity.
func LiquidityForBaseConc(price float64, qty *big.Int, lower, upper float64) (*big.Int, error) {
	return LiquidityForBaseQty(price, qty, BaseConcFactor(price, lower, upper))
}

// LiquidityForQuoteConc converts quote collateral into range liquidity.
func LiquidityForQuoteConc(price float64, qty *big.Int, lower, upper float64) (*big.Int, error) {
	return LiquidityForQuoteQty(price, qty, QuoteConcFactor(price, lower, upper))
}

// BaseTokenForConcLiq is the base collateral of range liquidity.
func BaseTokenForConcLiq(price float64, liq *big.Int, lower, upper float64) (*big.Int, error) {
	return BaseVirtualReserves(price, liq, 1/BaseConcFactor(price, lower, upper))
}

// QuoteTokenForConcLiq is the quote collateral of range liquidity.
func QuoteTokenForConcLiq(price float64, liq *big.Int, lower, upper float64) (*big.Int, error) {
	return QuoteVirtualReserves(price, liq, 1/QuoteConcFactor(price, lower, upper))
}

// RoundForConcLiq rounds liquidity down to a storable lot.
func RoundForConcLiq(liq *big.Int) *big.Int {
	return fixedpoint.TruncateRightBits(liq, ConcLotBits)
}

func toQuantity(what string, v float64) (*big.Int, error) {
	out, err := fixedpoint.FromFloat(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return out, nil
}
