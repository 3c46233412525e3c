package pricing

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"crocPlanner/internal/fixedpoint"
)

// ErrInvalidPrice is returned for negative or non-finite prices.
var ErrInvalidPrice = errors.New("invalid price")

var (
	// Q64 is the fixed point scale of on-chain square root prices.
	Q64 = new(big.Int).Lsh(big.NewInt(1), 64)

	// MinSqrtPrice and MaxSqrtPrice are the protocol's swap limit prices.
	MinSqrtPrice = big.NewInt(65538 - 1)
	MaxSqrtPrice = mustBigInt("21267430153580247136652501917186561137")
)

func mustBigInt(s string) *big.Int {
	out, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("pricing: bad integer constant " + s)
	}
	return out
}

// EncodeCrocPrice converts a raw price (base atoms per quote atom) into the
// on-chain sqrt(price)*2^64 representation.
func EncodeCrocPrice(price float64) (*big.Int, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	return fixedpoint.FromFloat(math.Sqrt(price) * math.Exp2(64))
}

// DecodeCrocPrice converts an on-chain sqrt price back into a raw price.
func DecodeCrocPrice(sqrtPrice *big.Int) float64 {
	sq := fixedpoint.ToFloat(sqrtPrice) / math.Exp2(64)
	return sq * sq
}

// ToDisplayPrice scales a raw price by the decimal difference of the pair and
// optionally inverts it.
func ToDisplayPrice(price float64, baseDecimals, quoteDecimals int, inverted bool) float64 {
	scaled := price * math.Pow(10, float64(quoteDecimals-baseDecimals))
	if inverted {
		return 1 / scaled
	}
	return scaled
}

// FromDisplayPrice is the inverse of ToDisplayPrice.
func FromDisplayPrice(price float64, baseDecimals, quoteDecimals int, inverted bool) float64 {
	scaled := price
	if inverted {
		scaled = 1 / price
	}
	return scaled * math.Pow(10, float64(baseDecimals-quoteDecimals))
}

// Display binds the decimal and inversion parameters of one pool view.
type Display struct {
	BaseDecimals  int
	QuoteDecimals int
	Inverted      bool
}

func (d Display) ToDisplay(price float64) float64 {
	return ToDisplayPrice(price, d.BaseDecimals, d.QuoteDecimals, d.Inverted)
}

func (d Display) FromDisplay(price float64) float64 {
	return FromDisplayPrice(price, d.BaseDecimals, d.QuoteDecimals, d.Inverted)
}

// FromDisplayPair converts two display prices to raw prices sorted ascending.
// Inverted views flip the order, so limits are re-sorted after conversion.
func (d Display) FromDisplayPair(a, b float64) (float64, float64) {
	left, right := d.FromDisplay(a), d.FromDisplay(b)
	if left < right {
		return left, right
	}
	return right, left
}

// ToDisplayPair converts two raw prices to display prices sorted ascending.
func (d Display) ToDisplayPair(a, b float64) (float64, float64) {
	left, right := d.ToDisplay(a), d.ToDisplay(b)
	if left < right {
		return left, right
	}
	return right, left
}
