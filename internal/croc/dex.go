package croc

import (
	"fmt"
	"math/big"

	"crocPlanner/internal/encoding"
)

// PackUserCmd wraps a proxy path command for the dex userCmd entry point.
func PackUserCmd(callpath uint16, cmd []byte) ([]byte, error) {
	parsed, err := DexABI()
	if err != nil {
		return nil, fmt.Errorf("parse dex abi: %w", err)
	}
	data, err := parsed.Pack("userCmd", callpath, cmd)
	if err != nil {
		return nil, fmt.Errorf("pack userCmd: %w", err)
	}
	return data, nil
}

// PackDirectSwap encodes a swap against the dex's hot path entry point.
func PackDirectSwap(call encoding.SwapCall) ([]byte, error) {
	parsed, err := DexABI()
	if err != nil {
		return nil, fmt.Errorf("parse dex abi: %w", err)
	}
	data, err := parsed.Pack("swap",
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
