package encoding

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Cold path surplus collateral operations.
const (
	SurplusDeposit  uint8 = 73
	SurplusWithdraw uint8 = 74
	SurplusTransfer uint8 = 75
)

var surplusArgs = arguments("uint8", "address", "uint128", "address")

// EncodeSurplusOp moves qty of token into, out of, or between surplus accounts.
func EncodeSurplusOp(code uint8, recv common.Address, qty *big.Int, tokenAddr common.Address) ([]byte, error) {
	switch code {
	case SurplusDeposit, SurplusWithdraw, SurplusTransfer:
	default:
		return nil, fmt.Errorf("unknown surplus op %d", code)
	}
	if err := checkUint128("qty", qty); err != nil {
		return nil, err
	}
	data, err := surplusArgs.Pack(code, recv, qty, tokenAddr)
	if err != nil {
		return nil, fmt.Errorf("pack surplus op %d: %w", code, err)
	}
	return data, nil
}
