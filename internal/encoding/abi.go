package encoding

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/holiman/uint256"
)

func mustType(name string) abi.Type {
	typ, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(fmt.Sprintf("encoding: abi type %s: %v", name, err))
	}
	return typ
}

func arguments(types ...string) abi.Arguments {
	args := make(abi.Arguments, 0, len(types))
	for _, name := range types {
		args = append(args, abi.Argument{Type: mustType(name)})
	}
	return args
}

// checkUint128 rejects quantities the dex cannot store in a uint128 slot.
func checkUint128(name string, v *big.Int) error {
	if v == nil {
		return fmt.Errorf("%s is nil", name)
	}
	if v.Sign() < 0 {
		return fmt.Errorf("%s is negative: %s", name, v)
	}
	word, overflow := uint256.FromBig(v)
	if overflow || word.BitLen() > 128 {
		return fmt.Errorf("%s overflows uint128: %s", name, v)
	}
	return nil
}

func int24(v int32) *big.Int {
	return big.NewInt(int64(v))
}
