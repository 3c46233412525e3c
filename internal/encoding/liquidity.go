package encoding

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Warm path liquidity call codes.
const (
	MintRangeLiq     uint8 = 1
	MintRangeBase    uint8 = 11
	MintRangeQuote   uint8 = 12
	BurnRangeLiq     uint8 = 2
	BurnRangeBase    uint8 = 21
	BurnRangeQuote   uint8 = 22
	MintAmbientLiq   uint8 = 3
	MintAmbientBase  uint8 = 31
	MintAmbientQuote uint8 = 32
	BurnAmbientLiq   uint8 = 4
	BurnAmbientBase  uint8 = 41
	BurnAmbientQuote uint8 = 42
	HarvestRange     uint8 = 5
)

// MaxLiquidity burns an entire ambient position.
var MaxLiquidity = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

var warmPathArgs = arguments(
	"uint8", "address", "address", "uint256", "int24", "int24",
	"uint128", "uint128", "uint128", "uint8", "address",
)

// WarmPathEncoder builds liquidity calldata for one pool.
type WarmPathEncoder struct {
	Base    common.Address
	Quote   common.Address
	PoolIdx uint64
}

func NewWarmPathEncoder(base, quote common.Address, poolIdx uint64) *WarmPathEncoder {
	return &WarmPathEncoder{Base: base, Quote: quote, PoolIdx: poolIdx}
}

// EncodeMintRange mints a range position sized by a base or quote quantity.
func (e *WarmPathEncoder) EncodeMintRange(lowerTick, upperTick int32, qty *big.Int, qtyIsBase bool, limitLow, limitHigh *big.Int, surplus uint8) ([]byte, error) {
	code := MintRangeQuote
	if qtyIsBase {
		code = MintRangeBase
	}
	return e.encode(code, lowerTick, upperTick, qty, limitLow, limitHigh, surplus)
}

// EncodeBurnRange burns range liquidity. liq must already be lot rounded.
func (e *WarmPathEncoder) EncodeBurnRange(lowerTick, upperTick int32, liq *big.Int, limitLow, limitHigh *big.Int, surplus uint8) ([]byte, error) {
	return e.encode(BurnRangeLiq, lowerTick, upperTick, liq, limitLow, limitHigh, surplus)
}

// EncodeHarvestRange collects accumulated rewards of a range position.
func (e *WarmPathEncoder) EncodeHarvestRange(lowerTick, upperTick int32, limitLow, limitHigh *big.Int, surplus uint8) ([]byte, error) {
	return e.encode(HarvestRange, lowerTick, upperTick, new(big.Int), limitLow, limitHigh, surplus)
}

// EncodeMintAmbient mints an ambient position sized by a base or quote quantity.
func (e *WarmPathEncoder) EncodeMintAmbient(qty *big.Int, qtyIsBase bool, limitLow, limitHigh *big.Int, surplus uint8) ([]byte, error) {
	code := MintAmbientQuote
	if qtyIsBase {
		code = MintAmbientBase
	}
	return e.encode(code, 0, 0, qty, limitLow, limitHigh, surplus)
}

// EncodeBurnAmbient burns ambient liquidity.
func (e *WarmPathEncoder) EncodeBurnAmbient(liq *big.Int, limitLow, limitHigh *big.Int, surplus uint8) ([]byte, error) {
	return e.encode(BurnAmbientLiq, 0, 0, liq, limitLow, limitHigh, surplus)
}

// EncodeBurnAmbientAll burns the whole ambient position.
func (e *WarmPathEncoder) EncodeBurnAmbientAll(limitLow, limitHigh *big.Int, surplus uint8) ([]byte, error) {
	return e.encode(BurnAmbientLiq, 0, 0, MaxLiquidity, limitLow, limitHigh, surplus)
}

func (e *WarmPathEncoder) encode(code uint8, lowerTick, upperTick int32, qty, limitLow, limitHigh *big.Int, surplus uint8) ([]byte, error) {
	if err := checkUint128("qty", qty); err != nil {
		return nil, err
	}
	if err := checkUint128("limit low", limitLow); err != nil {
		return nil, err
	}
	if err := checkUint128("limit high", limitHigh); err != nil {
		return nil, err
	}

	data, err := warmPathArgs.Pack(
		code,
		e.Base,
		e.Quote,
		new(big.Int).SetUint64(e.PoolIdx),
		int24(lowerTick),
		int24(upperTick),
		qty,
		limitLow,
		limitHigh,
		surplus,
		common.Address{},
	)
	if err != nil {
		return nil, fmt.Errorf("pack warm path %d: %w", code, err)
	}
	return data, nil
}
