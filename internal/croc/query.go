package croc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// PoolKey identifies a pool by its sorted token pair and pool type index.
type PoolKey struct {
	Base    common.Address `json:"base"`
	Quote   common.Address `json:"quote"`
	PoolIdx uint64         `json:"poolIdx"`
}

func (k PoolKey) idx() *big.Int {
	return new(big.Int).SetUint64(k.PoolIdx)
}

// CurveState is the raw liquidity curve of a pool.
type CurveState struct {
	PriceRoot    *big.Int `json:"priceRoot"`
	AmbientSeeds *big.Int `json:"ambientSeeds"`
	ConcLiq      *big.Int `json:"concLiq"`
	SeedDeflator uint64   `json:"seedDeflator"`
	ConcGrowth   uint64   `json:"concGrowth"`
}

// RangePosition is the stored state of a concentrated liquidity position.
type RangePosition struct {
	Liquidity  *big.Int `json:"liq"`
	FeeMileage uint64   `json:"fee"`
	Timestamp  uint32   `json:"timestamp"`
	Atomic     bool     `json:"atomic"`
}

// PositionTokens is a position valued in liquidity and token quantities.
type PositionTokens struct {
	Liquidity *big.Int `json:"liq"`
	BaseQty   *big.Int `json:"baseQty"`
	QuoteQty  *big.Int `json:"quoteQty"`
}

// KnockoutPivot locates the pivot a knockout order joined.
type KnockoutPivot struct {
	Lots  *big.Int `json:"lots"`
	Pivot uint32   `json:"pivot"`
	Range uint16   `json:"range"`
}

// KnockoutTokens values a knockout order.
type KnockoutTokens struct {
	PositionTokens
	KnockedOut bool `json:"knockedOut"`
}

// Query reads pool and position state from the dex query contract.
type Query struct {
	caller  Caller
	address common.Address
	retry   RetryPolicy
	logger  *zap.Logger
}

func NewQuery(caller Caller, address common.Address, policy RetryPolicy, logger *zap.Logger) *Query {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Query{caller: caller, address: address, retry: policy, logger: logger}
}

func (q *Query) call(ctx context.Context, method string, block *big.Int, args ...interface{}) ([]interface{}, error) {
	parsed, err := QueryABI()
	if err != nil {
		return nil, fmt.Errorf("parse query abi: %w", err)
	}
	values, err := callMethod(ctx, q.caller, q.retry, q.address, parsed, method, block, args...)
	if err != nil {
		q.logger.Debug("query call failed", zap.String("method", method), zap.Error(err))
		return nil, err
	}
	return values, nil
}

// LatestBlock returns the head block number. It returns 0 when the caller
// cannot report blocks, in which case reads fall back to latest.
func (q *Query) LatestBlock(ctx context.Context) (uint64, error) {
	reader, ok := q.caller.(BlockReader)
	if !ok {
		return 0, nil
	}
	var block uint64
	err := q.retry.do(ctx, func() error {
		n, err := reader.LatestBlockNumber(ctx)
		if err != nil {
			return err
		}
		block = n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("latest block: %w", err)
	}
	return block, nil
}

// QueryPrice returns the pool's square root price in Q64.64 at block, nil
// for latest.
func (q *Query) QueryPrice(ctx context.Context, pool PoolKey, block *big.Int) (*big.Int, error) {
	values, err := q.call(ctx, "queryPrice", block, pool.Base, pool.Quote, pool.idx())
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// QueryCurveTick returns the tick of the pool's price at block, nil for
// latest.
func (q *Query) QueryCurveTick(ctx context.Context, pool PoolKey, block *big.Int) (int32, error) {
	values, err := q.call(ctx, "queryCurveTick", block, pool.Base, pool.Quote, pool.idx())
	if err != nil {
		return 0, err
	}
	tick, err := asBigInt(values[0])
	if err != nil {
		return 0, fmt.Errorf("curve tick: %w", err)
	}
	return int24FromBig(tick)
}

// QueryLiquidity returns the active liquidity at the current price.
func (q *Query) QueryLiquidity(ctx context.Context, pool PoolKey) (*big.Int, error) {
	values, err := q.call(ctx, "queryLiquidity", nil, pool.Base, pool.Quote, pool.idx())
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// QueryCurve returns the full curve state of the pool.
func (q *Query) QueryCurve(ctx context.Context, pool PoolKey) (CurveState, error) {
	values, err := q.call(ctx, "queryCurve", nil, pool.Base, pool.Quote, pool.idx())
	if err != nil {
		return CurveState{}, err
	}
	nums, err := bigArgs(values, 5)
	if err != nil {
		return CurveState{}, fmt.Errorf("curve: %w", err)
	}
	return CurveState{
		PriceRoot:    nums[0],
		AmbientSeeds: nums[1],
		ConcLiq:      nums[2],
		SeedDeflator: nums[3].Uint64(),
		ConcGrowth:   nums[4].Uint64(),
	}, nil
}

// QuerySurplus returns owner's surplus collateral balance of token.
func (q *Query) QuerySurplus(ctx context.Context, owner, token common.Address) (*big.Int, error) {
	values, err := q.call(ctx, "querySurplus", nil, owner, token)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// QueryRangePosition returns the stored range position at block (nil for latest).
func (q *Query) QueryRangePosition(ctx context.Context, owner common.Address, pool PoolKey, lowerTick, upperTick int32, block *big.Int) (RangePosition, error) {
	values, err := q.call(ctx, "queryRangePosition", block, owner, pool.Base, pool.Quote, pool.idx(),
		big.NewInt(int64(lowerTick)), big.NewInt(int64(upperTick)))
	if err != nil {
		return RangePosition{}, err
	}
	nums, err := bigArgs(values, 3)
	if err != nil {
		return RangePosition{}, fmt.Errorf("range position: %w", err)
	}
	atomic, err := asBool(values[3])
	if err != nil {
		return RangePosition{}, fmt.Errorf("range position: %w", err)
	}
	return RangePosition{
		Liquidity:  nums[0],
		FeeMileage: nums[1].Uint64(),
		Timestamp:  uint32(nums[2].Uint64()),
		Atomic:     atomic,
	}, nil
}

// QueryRangeTokens values a range position in tokens.
func (q *Query) QueryRangeTokens(ctx context.Context, owner common.Address, pool PoolKey, lowerTick, upperTick int32, block *big.Int) (PositionTokens, error) {
	values, err := q.call(ctx, "queryRangeTokens", block, owner, pool.Base, pool.Quote, pool.idx(),
		big.NewInt(int64(lowerTick)), big.NewInt(int64(upperTick)))
	if err != nil {
		return PositionTokens{}, err
	}
	return positionTokens(values)
}

// QueryAmbientTokens values an ambient position in tokens.
func (q *Query) QueryAmbientTokens(ctx context.Context, owner common.Address, pool PoolKey, block *big.Int) (PositionTokens, error) {
	values, err := q.call(ctx, "queryAmbientTokens", block, owner, pool.Base, pool.Quote, pool.idx())
	if err != nil {
		return PositionTokens{}, err
	}
	return positionTokens(values)
}

// QueryKnockoutPivot finds the pivot of the knockout tranche at tick.
func (q *Query) QueryKnockoutPivot(ctx context.Context, pool PoolKey, isBid bool, tick int32, block *big.Int) (KnockoutPivot, error) {
	values, err := q.call(ctx, "queryKnockoutPivot", block, pool.Base, pool.Quote, pool.idx(), isBid, big.NewInt(int64(tick)))
	if err != nil {
		return KnockoutPivot{}, err
	}
	nums, err := bigArgs(values, 3)
	if err != nil {
		return KnockoutPivot{}, fmt.Errorf("knockout pivot: %w", err)
	}
	return KnockoutPivot{
		Lots:  nums[0],
		Pivot: uint32(nums[1].Uint64()),
		Range: uint16(nums[2].Uint64()),
	}, nil
}

// QueryKnockoutTokens values a knockout order. The pivot tick is the lower
// tick for bids and the upper tick for asks.
func (q *Query) QueryKnockoutTokens(ctx context.Context, owner common.Address, pool PoolKey, isBid bool, lowerTick, upperTick int32, block *big.Int) (KnockoutTokens, error) {
	pivotTick := upperTick
	if isBid {
		pivotTick = lowerTick
	}
	pivot, err := q.QueryKnockoutPivot(ctx, pool, isBid, pivotTick, block)
	if err != nil {
		return KnockoutTokens{}, err
	}

	values, err := q.call(ctx, "queryKnockoutTokens", block, owner, pool.Base, pool.Quote, pool.idx(),
		pivot.Pivot, isBid, big.NewInt(int64(lowerTick)), big.NewInt(int64(upperTick)))
	if err != nil {
		return KnockoutTokens{}, err
	}
	tokens, err := positionTokens(values)
	if err != nil {
		return KnockoutTokens{}, err
	}
	knockedOut, err := asBool(values[3])
	if err != nil {
		return KnockoutTokens{}, fmt.Errorf("knockout tokens: %w", err)
	}
	return KnockoutTokens{PositionTokens: tokens, KnockedOut: knockedOut}, nil
}

// QueryConcRewards returns the uncollected rewards of a range position.
func (q *Query) QueryConcRewards(ctx context.Context, owner common.Address, pool PoolKey, lowerTick, upperTick int32, block *big.Int) (PositionTokens, error) {
	values, err := q.call(ctx, "queryConcRewards", block, owner, pool.Base, pool.Quote, pool.idx(),
		big.NewInt(int64(lowerTick)), big.NewInt(int64(upperTick)))
	if err != nil {
		return PositionTokens{}, err
	}
	return positionTokens(values)
}

func positionTokens(values []interface{}) (PositionTokens, error) {
	nums, err := bigArgs(values, 3)
	if err != nil {
		return PositionTokens{}, fmt.Errorf("position tokens: %w", err)
	}
	return PositionTokens{Liquidity: nums[0], BaseQty: nums[1], QuoteQty: nums[2]}, nil
}
