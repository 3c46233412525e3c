package croc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ImpactRequest describes a hypothetical swap to simulate.
type ImpactRequest struct {
	Pool       PoolKey
	IsBuy      bool
	InBaseQty  bool
	Qty        *big.Int
	Tip        uint16
	LimitPrice *big.Int
}

// ImpactResult holds the signed token flows of a simulated swap from the
// pool's point of view and the pool's sqrt price afterwards.
type ImpactResult struct {
	BaseFlow   *big.Int `json:"baseFlow"`
	QuoteFlow  *big.Int `json:"quoteFlow"`
	FinalPrice *big.Int `json:"finalPrice"`
}

// Impact simulates swaps against the dex impact contract.
type Impact struct {
	caller  Caller
	address common.Address
	retry   RetryPolicy
	logger  *zap.Logger
}

func NewImpact(caller Caller, address common.Address, policy RetryPolicy, logger *zap.Logger) *Impact {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Impact{caller: caller, address: address, retry: policy, logger: logger}
}

// CalcImpact runs the swap simulation.
func (i *Impact) CalcImpact(ctx context.Context, req ImpactRequest) (ImpactResult, error) {
	parsed, err := ImpactABI()
	if err != nil {
		return ImpactResult{}, fmt.Errorf("parse impact abi: %w", err)
	}
	values, err := callMethod(ctx, i.caller, i.retry, i.address, parsed, "calcImpact", nil,
		req.Pool.Base, req.Pool.Quote, req.Pool.idx(), req.IsBuy, req.InBaseQty, req.Qty, req.Tip, req.LimitPrice)
	if err != nil {
		i.logger.Debug("impact call failed", zap.Error(err))
		return ImpactResult{}, err
	}
	nums, err := bigArgs(values, 3)
	if err != nil {
		return ImpactResult{}, fmt.Errorf("impact: %w", err)
	}
	return ImpactResult{BaseFlow: nums[0], QuoteFlow: nums[1], FinalPrice: nums[2]}, nil
}
