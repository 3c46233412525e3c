package liquidity

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateRange is returned for non-positive prices or empty ranges.
var ErrDegenerateRange = errors.New("degenerate price range")

// ValidateRange checks that price, lower and upper are finite, positive and
// that lower < upper. The factor functions below do not call it; they follow
// IEEE semantics and may return NaN or Inf.
func ValidateRange(price, lower, upper float64) error {
	for _, v := range []float64{price, lower, upper} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%w: price=%v lower=%v upper=%v", ErrDegenerateRange, price, lower, upper)
		}
	}
	if lower >= upper {
		return fmt.Errorf("%w: lower %v >= upper %v", ErrDegenerateRange, lower, upper)
	}
	return nil
}

// BaseConcFactor is the base collateral of an ambient position divided by the
// base collateral of a range position with the same liquidity. It is +Inf
// when price is below the range and no base is needed.
func BaseConcFactor(price, lower, upper float64) float64 {
	switch {
	case price < lower:
		return math.Inf(1)
	case price > upper:
		return math.Sqrt(price) / (math.Sqrt(upper) - math.Sqrt(lower))
	default:
		return 1 / (1 - math.Sqrt(lower)/math.Sqrt(price))
	}
}

// QuoteConcFactor mirrors BaseConcFactor for the quote side by inverting prices.
func QuoteConcFactor(price, lower, upper float64) float64 {
	return BaseConcFactor(1/price, 1/upper, 1/lower)
}

// ConcDepositSkew is the quote/base deposit ratio of a range position
// relative to an ambient position.
func ConcDepositSkew(price, lower, upper float64) float64 {
	base := BaseConcFactor(price, lower, upper)
	quote := QuoteConcFactor(price, lower, upper)
	return quote / base
}

// ConcDepositBalance is the share of a range position's value held in quote.
func ConcDepositBalance(price, lower, upper float64) float64 {
	base := BaseConcFactor(price, lower, upper)
	quote := QuoteConcFactor(price, lower, upper)
	return quote / (base + quote)
}

// CapitalConcFactor is the harmonic mean of the base and quote factors.
func CapitalConcFactor(price, lower, upper float64) float64 {
	base := 1 / BaseConcFactor(price, lower, upper)
	quote := 1 / QuoteConcFactor(price, lower, upper)
	return 1 / ((base + quote) / 2.0)
}

// ConcBaseSlippagePrice widens the distance from spot to the upper bound by
// slippage in sqrt price space and returns the resulting lower price limit.
func ConcBaseSlippagePrice(spotPrice, upperPrice, slippage float64) float64 {
	delta := math.Sqrt(upperPrice) - math.Sqrt(spotPrice)
	lowerSqrt := math.Sqrt(upperPrice) - delta*(1+slippage)
	return math.Pow(lowerSqrt, 2)
}

// ConcQuoteSlippagePrice is the upper price limit counterpart of ConcBaseSlippagePrice.
func ConcQuoteSlippagePrice(spotPrice, lowerPrice, slippage float64) float64 {
	delta := math.Sqrt(spotPrice) - math.Sqrt(lowerPrice)
	upperSqrt := (1+slippage)*delta + math.Sqrt(lowerPrice)
	return math.Pow(upperSqrt, 2)
}

// BaseTokenForQuoteConc converts a base quantity filled across a one-step
// range into the quote quantity on the other side of the range.
func BaseTokenForQuoteConc(baseQty, lower, upper float64) float64 {
	growth := math.Sqrt(upper/lower) - 1
	virtBase := baseQty / growth
	virtQuote := virtBase / lower
	return virtQuote * (1/(1-growth) - 1)
}

// QuoteTokenForBaseConc is BaseTokenForQuoteConc with the pair inverted.
func QuoteTokenForBaseConc(quoteQty, lower, upper float64) float64 {
	return BaseTokenForQuoteConc(quoteQty, 1/upper, 1/lower)
}
