package encoding

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// HotProxyIdx is the proxy path that runs swaps through userCmd.
const HotProxyIdx uint16 = 1

var swapArgs = arguments(
	"address", "address", "uint256", "bool", "bool",
	"uint128", "uint16", "uint128", "uint128", "uint8",
)

// SwapCall holds the arguments of a dex swap.
type SwapCall struct {
	Base       common.Address `json:"base"`
	Quote      common.Address `json:"quote"`
	PoolIdx    uint64         `json:"poolIdx"`
	IsBuy      bool           `json:"isBuy"`
	InBaseQty  bool           `json:"inBaseQty"`
	Qty        *big.Int       `json:"qty"`
	Tip        uint16         `json:"tip"`
	LimitPrice *big.Int       `json:"limitPrice"`
	MinOut     *big.Int       `json:"minOut"`
	Surplus    uint8          `json:"surplusFlags"`
}

// EncodeSwapCmd encodes the swap for the hot proxy userCmd entry point.
func EncodeSwapCmd(call SwapCall) ([]byte, error) {
	if err := checkUint128("qty", call.Qty); err != nil {
		return nil, err
	}
	if err := checkUint128("limit price", call.LimitPrice); err != nil {
		return nil, err
	}
	if err := checkUint128("min out", call.MinOut); err != nil {
		return nil, err
	}

	data, err := swapArgs.Pack(
		call.Base,
		call.Quote,
		new(big.Int).SetUint64(call.PoolIdx),
		call.IsBuy,
		call.InBaseQty,
		call.Qty,
		call.Tip,
		call.LimitPrice,
		call.MinOut,
		call.Surplus,
	)
	if err != nil {
		return nil, fmt.Errorf("pack swap: %w", err)
	}
	return data, nil
}
