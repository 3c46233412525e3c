package planner

import (
	"context"
	"fmt"
	"math/big"

	"golang.org/x/sync/errgroup"

	"crocPlanner/internal/croc"
	"crocPlanner/internal/pricing"
)

// Snapshot is one consistent read of a pool's spot price and tick. A plan
// reads it once and reuses it for every sub-computation.
type Snapshot struct {
	SqrtPrice *big.Int `json:"sqrtPrice"`
	Price     float64  `json:"price"`
	Tick      int32    `json:"tick"`
	Block     uint64   `json:"block,omitempty"`
}

// TakeSnapshot reads spot price and tick concurrently, both pinned to the
// head block. A querier that reports block 0 is read at latest.
func TakeSnapshot(ctx context.Context, pools PoolQuerier, pool croc.PoolKey) (Snapshot, error) {
	head, err := pools.LatestBlock(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	var at *big.Int
	if head > 0 {
		at = new(big.Int).SetUint64(head)
	}

	snap := Snapshot{Block: head}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		price, err := pools.QueryPrice(gctx, pool, at)
		if err != nil {
			return fmt.Errorf("spot price: %w", err)
		}
		snap.SqrtPrice = price
		return nil
	})
	g.Go(func() error {
		tick, err := pools.QueryCurveTick(gctx, pool, at)
		if err != nil {
			return fmt.Errorf("spot tick: %w", err)
		}
		snap.Tick = tick
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	if snap.SqrtPrice == nil || snap.SqrtPrice.Sign() <= 0 {
		return Snapshot{}, ErrPoolNotInitialized
	}
	snap.Price = pricing.DecodeCrocPrice(snap.SqrtPrice)
	return snap, nil
}
