package token

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidQuantity is returned for display or atomic quantities that cannot
// be represented exactly.
var ErrInvalidQuantity = errors.New("invalid token quantity")

// FromDisplay parses a human quantity such as "1.5" or "2e-3" into atomic
// units. Digits past the token's decimals must be zero; the value is never
// rounded.
func FromDisplay(qty string, decimals uint8) (*big.Int, error) {
	trimmed := strings.TrimSpace(qty)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty quantity", ErrInvalidQuantity)
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidQuantity, qty, err)
	}
	if d.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative quantity %q", ErrInvalidQuantity, qty)
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidQuantity, qty, decimals)
	}
	return scaled.BigInt(), nil
}

// ToDisplay renders an atomic quantity with the token's decimals. The result
// always carries a fractional part ("1.0", "0.25").
func ToDisplay(qty *big.Int, decimals uint8) string {
	if qty == nil {
		qty = new(big.Int)
	}
	out := decimal.NewFromBigInt(qty, -int32(decimals)).String()
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

// ParseAtomic parses a base-10 integer quantity.
func ParseAtomic(qty string) (*big.Int, error) {
	out, ok := new(big.Int).SetString(strings.TrimSpace(qty), 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidQuantity, qty)
	}
	return out, nil
}

// RoundQty floors a float quantity to the token's decimals and returns it in
// atomic units.
func RoundQty(qty float64, decimals uint8) (*big.Int, error) {
	if math.IsNaN(qty) || math.IsInf(qty, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuantity, qty)
	}
	if qty < 0 {
		return nil, fmt.Errorf("%w: negative quantity %v", ErrInvalidQuantity, qty)
	}
	return decimal.NewFromFloat(qty).Shift(int32(decimals)).Floor().BigInt(), nil
}

// MsgValOverSurplus returns the part of needed not covered by surplus.
func MsgValOverSurplus(needed, surplus *big.Int) *big.Int {
	if surplus.Cmp(needed) > 0 {
		return new(big.Int)
	}
	return new(big.Int).Sub(needed, surplus)
}
