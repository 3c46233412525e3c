package encoding

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Knockout sub-commands on the knockout proxy path.
const (
	KnockoutMint    uint8 = 91
	KnockoutBurn    uint8 = 92
	KnockoutRecover uint8 = 94
)

var (
	knockoutCommonArgs = arguments("uint8", "address", "address", "uint256", "int24", "int24", "bool", "uint8", "bytes")
	knockoutMintArgs   = arguments("uint128", "bool")
	knockoutBurnArgs   = arguments("uint128", "bool", "bool")
	knockoutRecovArgs  = arguments("uint32")
)

// KnockoutEncoder builds knockout order calldata for one pool.
type KnockoutEncoder struct {
	Base    common.Address
	Quote   common.Address
	PoolIdx uint64
}

func NewKnockoutEncoder(base, quote common.Address, poolIdx uint64) *KnockoutEncoder {
	return &KnockoutEncoder{Base: base, Quote: quote, PoolIdx: poolIdx}
}

// EncodeMint posts a knockout order of qty tokens. isBid is true when the
// order sells base.
func (e *KnockoutEncoder) EncodeMint(qty *big.Int, lowerTick, upperTick int32, isBid bool, surplus uint8) ([]byte, error) {
	if err := checkUint128("qty", qty); err != nil {
		return nil, err
	}
	supp, err := knockoutMintArgs.Pack(qty, false)
	if err != nil {
		return nil, fmt.Errorf("pack knockout mint: %w", err)
	}
	return e.encodeCommon(KnockoutMint, lowerTick, upperTick, isBid, surplus, supp)
}

// EncodeBurnQty withdraws a live knockout order by token quantity.
func (e *KnockoutEncoder) EncodeBurnQty(qty *big.Int, lowerTick, upperTick int32, isBid bool, surplus uint8) ([]byte, error) {
	return e.encodeBurn(qty, false, lowerTick, upperTick, isBid, surplus)
}

// EncodeBurnLiq withdraws a live knockout order by liquidity.
func (e *KnockoutEncoder) EncodeBurnLiq(liq *big.Int, lowerTick, upperTick int32, isBid bool, surplus uint8) ([]byte, error) {
	return e.encodeBurn(liq, true, lowerTick, upperTick, isBid, surplus)
}

// EncodeRecover claims a knocked out order by its pivot time.
func (e *KnockoutEncoder) EncodeRecover(pivotTime uint32, lowerTick, upperTick int32, isBid bool, surplus uint8) ([]byte, error) {
	supp, err := knockoutRecovArgs.Pack(pivotTime)
	if err != nil {
		return nil, fmt.Errorf("pack knockout recover: %w", err)
	}
	return e.encodeCommon(KnockoutRecover, lowerTick, upperTick, isBid, surplus, supp)
}

func (e *KnockoutEncoder) encodeBurn(qty *big.Int, inLiq bool, lowerTick, upperTick int32, isBid bool, surplus uint8) ([]byte, error) {
	if err := checkUint128("qty", qty); err != nil {
		return nil, err
	}
	supp, err := knockoutBurnArgs.Pack(qty, inLiq, false)
	if err != nil {
		return nil, fmt.Errorf("pack knockout burn: %w", err)
	}
	return e.encodeCommon(KnockoutBurn, lowerTick, upperTick, isBid, surplus, supp)
}

func (e *KnockoutEncoder) encodeCommon(code uint8, lowerTick, upperTick int32, isBid bool, surplus uint8, supp []byte) ([]byte, error) {
	data, err := knockoutCommonArgs.Pack(
		code,
		e.Base,
		e.Quote,
		new(big.Int).SetUint64(e.PoolIdx),
		int24(lowerTick),
		int24(upperTick),
		isBid,
		surplus,
		supp,
	)
	if err != nil {
		return nil, fmt.Errorf("pack knockout %d: %w", code, err)
	}
	return data, nil
}
