package token

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NativeDecimals is the decimal count of the chain's native token.
const NativeDecimals uint8 = 18

// NativeToken is the address the dex uses for the native token.
var NativeToken = common.Address{}

// View is a token with resolved decimals.
type View struct {
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
	Symbol   string         `json:"symbol,omitempty"`
}

// NativeView returns the view of the native token.
func NativeView() View {
	return View{Address: NativeToken, Decimals: NativeDecimals}
}

// IsNative reports whether the view is the native token.
func (v View) IsNative() bool {
	return v.Address == NativeToken
}

// NormQty parses a display quantity of this token.
func (v View) NormQty(qty string) (*big.Int, error) {
	return FromDisplay(qty, v.Decimals)
}

// ToDisplay renders an atomic quantity of this token.
func (v View) ToDisplay(qty *big.Int) string {
	return ToDisplay(qty, v.Decimals)
}

// RoundQty floors a float display quantity of this token to atomic units.
func (v View) RoundQty(qty float64) (*big.Int, error) {
	return RoundQty(qty, v.Decimals)
}

// Less orders addresses numerically; the lower address is the pool's base.
func Less(a, b common.Address) bool {
	return bytes.Compare(a.Bytes(), b.Bytes()) < 0
}

// SortPair returns the pair as (base, quote).
func SortPair(a, b common.Address) (common.Address, common.Address) {
	if Less(a, b) {
		return a, b
	}
	return b, a
}

// SortViews is SortPair for token views.
func SortViews(a, b View) (View, View) {
	if Less(a.Address, b.Address) {
		return a, b
	}
	return b, a
}
