package encoding

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const initPoolCode uint8 = 71

var initPoolArgs = arguments("uint8", "address", "address", "uint256", "uint128")

// EncodeInitPool builds the cold path call that creates a pool at sqrtPrice.
func EncodeInitPool(base, quote common.Address, poolIdx uint64, sqrtPrice *big.Int) ([]byte, error) {
	if err := checkUint128("init price", sqrtPrice); err != nil {
		return nil, err
	}
	data, err := initPoolArgs.Pack(initPoolCode, base, quote, new(big.Int).SetUint64(poolIdx), sqrtPrice)
	if err != nil {
		return nil, fmt.Errorf("pack init pool: %w", err)
	}
	return data, nil
}
