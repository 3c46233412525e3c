package planner

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strconv"

	"crocPlanner/internal/encoding"
	"crocPlanner/internal/liquidity"
	"crocPlanner/internal/pricing"
	"crocPlanner/internal/token"
)

// DefaultRebalImpact is the price impact a reposition swap may incur.
const DefaultRebalImpact = 0.02

const swapFractionScale = 10000

// RepositionTarget describes the position to move. A nil Mint re-mints as
// ambient liquidity.
type RepositionTarget struct {
	Burn      Range
	Mint      *Range
	Liquidity *big.Int
}

// Reposition moves an out of range position into a new range in one atomic
// long form order: burn the old range, swap part of the freed single sided
// collateral, and mint the remainder into the target.
type Reposition struct {
	pool   *PoolView
	target RepositionTarget
	impact float64
	snap   Snapshot
}

// NewReposition reads the pool snapshot the whole plan is computed against.
func NewReposition(ctx context.Context, pool *PoolView, target RepositionTarget, impact float64) (*Reposition, error) {
	if target.Liquidity == nil || target.Liquidity.Sign() <= 0 {
		return nil, fmt.Errorf("reposition liquidity must be positive")
	}
	if target.Burn[0] >= target.Burn[1] {
		return nil, fmt.Errorf("%w: burn ticks %d >= %d", liquidity.ErrDegenerateRange, target.Burn[0], target.Burn[1])
	}
	if target.Mint != nil && target.Mint[0] >= target.Mint[1] {
		return nil, fmt.Errorf("%w: mint ticks %d >= %d", liquidity.ErrDegenerateRange, target.Mint[0], target.Mint[1])
	}
	if impact == 0 {
		impact = DefaultRebalImpact
	}
	if impact < 0 || impact >= 1 {
		return nil, fmt.Errorf("impact must be in [0, 1): %v", impact)
	}
	snap, err := pool.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &Reposition{pool: pool, target: target, impact: impact, snap: snap}, nil
}

// Snapshot returns the pool state the plan was computed against.
func (r *Reposition) Snapshot() Snapshot {
	return r.snap
}

// IsBaseOutOfRange reports which token the burned position holds. True
// means the market moved above the range and the position is all base.
func (r *Reposition) IsBaseOutOfRange() (bool, error) {
	switch {
	case r.snap.Tick >= r.target.Burn[1]:
		return true, nil
	case r.snap.Tick < r.target.Burn[0]:
		return false, nil
	default:
		return false, fmt.Errorf("%w: tick %d in [%d, %d)", ErrPositionInRange, r.snap.Tick, r.target.Burn[0], r.target.Burn[1])
	}
}

// BalancePercent is the share of collateral the new position wants in the
// token the old position does not hold.
func (r *Reposition) BalancePercent() (float64, error) {
	baseOut, err := r.IsBaseOutOfRange()
	if err != nil {
		return 0, err
	}
	if r.target.Mint == nil {
		return 0.5, nil
	}
	lower, upper := r.target.Mint.Prices()
	bal := liquidity.ConcDepositBalance(r.snap.Price, lower, upper)
	if baseOut {
		return 1 - bal, nil
	}
	return bal, nil
}

// SwapFraction is the share of collateral to swap in basis points, padded
// by the allowed impact and capped at the whole position.
func (r *Reposition) SwapFraction() (*big.Int, error) {
	bal, err := r.BalancePercent()
	if err != nil {
		return nil, err
	}
	frac := math.Floor(math.Min(bal+r.impact, 1) * swapFractionScale)
	return big.NewInt(int64(frac)), nil
}

// CurrentCollateral is the single sided token quantity the burn releases.
func (r *Reposition) CurrentCollateral() (*big.Int, error) {
	baseOut, err := r.IsBaseOutOfRange()
	if err != nil {
		return nil, err
	}
	lower, upper := r.target.Burn.Prices()
	if baseOut {
		return liquidity.BaseTokenForConcLiq(r.snap.Price, r.target.Liquidity, lower, upper)
	}
	return liquidity.QuoteTokenForConcLiq(r.snap.Price, r.target.Liquidity, lower, upper)
}

// ConvertCollateral is the part of the collateral that will be swapped.
func (r *Reposition) ConvertCollateral() (*big.Int, error) {
	frac, err := r.SwapFraction()
	if err != nil {
		return nil, err
	}
	collat, err := r.CurrentCollateral()
	if err != nil {
		return nil, err
	}
	out := new(big.Int).Mul(collat, frac)
	return out.Quo(out, big.NewInt(swapFractionScale)), nil
}

// MintInput is the unswapped collateral in display units.
func (r *Reposition) MintInput() (string, error) {
	collat, err := r.CurrentCollateral()
	if err != nil {
		return "", err
	}
	convert, err := r.ConvertCollateral()
	if err != nil {
		return "", err
	}
	remain := new(big.Int).Sub(collat, convert)
	baseOut, _ := r.IsBaseOutOfRange()
	if baseOut {
		return r.pool.Base.ToDisplay(remain), nil
	}
	return r.pool.Quote.ToDisplay(remain), nil
}

// SwapOutput simulates the swap leg and returns the display quantity bought.
func (r *Reposition) SwapOutput(ctx context.Context) (string, error) {
	sellBase, err := r.IsBaseOutOfRange()
	if err != nil {
		return "", err
	}
	convert, err := r.ConvertCollateral()
	if err != nil {
		return "", err
	}
	start := r.pool.ToDisplayPrice(r.snap.Price)
	impact, err := estimateImpact(ctx, r.pool.ctx, r.pool, sellBase, sellBase, convert, start)
	if err != nil {
		return "", err
	}
	return impact.BuyQty, nil
}

// PostBalance estimates the (base, quote) display quantities the new
// position is minted with.
func (r *Reposition) PostBalance(ctx context.Context) ([2]float64, error) {
	mintInput, err := r.MintInput()
	if err != nil {
		return [2]float64{}, err
	}
	swapOutput, err := r.SwapOutput(ctx)
	if err != nil {
		return [2]float64{}, err
	}
	outside, err := strconv.ParseFloat(mintInput, 64)
	if err != nil {
		return [2]float64{}, fmt.Errorf("parse mint input: %w", err)
	}
	inside, err := strconv.ParseFloat(swapOutput, 64)
	if err != nil {
		return [2]float64{}, fmt.Errorf("parse swap output: %w", err)
	}
	baseOut, _ := r.IsBaseOutOfRange()
	if baseOut {
		return [2]float64{outside, inside}, nil
	}
	return [2]float64{inside, outside}, nil
}

func (r *Reposition) pivotTokens() (token.View, token.View, error) {
	baseOut, err := r.IsBaseOutOfRange()
	if err != nil {
		return token.View{}, token.View{}, err
	}
	if baseOut {
		return r.pool.Base, r.pool.Quote, nil
	}
	return r.pool.Quote, r.pool.Base, nil
}

// FormatDirective assembles the burn, swap and mint legs into one order.
func (r *Reposition) FormatDirective() (*encoding.OrderDirective, error) {
	openToken, closeToken, err := r.pivotTokens()
	if err != nil {
		return nil, err
	}
	poolIdx := r.pool.Key.PoolIdx

	directive := encoding.NewOrderDirective(openToken.Address)
	directive.AppendHop(closeToken.Address)
	pool := directive.AppendPool(poolIdx)
	directive.AppendRangeBurn(r.target.Burn[0], r.target.Burn[1], r.target.Liquidity)
	if err := r.setupSwap(pool); err != nil {
		return nil, err
	}

	directive.AppendPool(poolIdx)
	if r.target.Mint == nil {
		mint := directive.AppendAmbientMint(new(big.Int))
		mint.RollType = encoding.RollMintRemain
	} else {
		mint := directive.AppendRangeMint(r.target.Mint[0], r.target.Mint[1], new(big.Int))
		mint.RollType = encoding.RollMintRemain
	}

	directive.Open.LimitQty = new(big.Int)
	directive.Hops[0].Settlement.LimitQty = new(big.Int)
	return directive, nil
}

func (r *Reposition) setupSwap(pool *encoding.PoolDirective) error {
	frac, err := r.SwapFraction()
	if err != nil {
		return err
	}
	sellBase, err := r.IsBaseOutOfRange()
	if err != nil {
		return err
	}

	pool.Chain.SwapDefer = true
	pool.Swap.RollType = encoding.RollSwapFrac
	pool.Swap.Qty = frac
	pool.Swap.IsBuy = sellBase
	pool.Swap.InBaseQty = sellBase

	mult := 1 - r.impact
	if sellBase {
		mult = 1 + r.impact
	}
	limit, err := pricing.EncodeCrocPrice(r.snap.Price * mult)
	if err != nil {
		return fmt.Errorf("swap limit: %w", err)
	}
	pool.Swap.LimitPrice = limit
	return nil
}

// Rebal plans the long form call that executes the reposition.
func (r *Reposition) Rebal() (TxPlan, error) {
	directive, err := r.FormatDirective()
	if err != nil {
		return TxPlan{}, err
	}
	c := r.pool.ctx
	return c.userCmd(c.Chain.Proxy.Long, directive.EncodeBytes(), nil)
}

// RepositionPlan is the serializable summary of a reposition.
type RepositionPlan struct {
	Snapshot          Snapshot                 `json:"snapshot"`
	BaseOutOfRange    bool                     `json:"baseOutOfRange"`
	SwapFraction      *big.Int                 `json:"swapFractionBps"`
	CurrentCollateral *big.Int                 `json:"currentCollateral"`
	ConvertCollateral *big.Int                 `json:"convertCollateral"`
	MintRange         *Range                   `json:"mintRange,omitempty"`
	Directive         *encoding.OrderDirective `json:"directive"`
	Tx                TxPlan                   `json:"tx"`
}

// Plan evaluates every leg against the snapshot.
func (r *Reposition) Plan() (RepositionPlan, error) {
	baseOut, err := r.IsBaseOutOfRange()
	if err != nil {
		return RepositionPlan{}, err
	}
	frac, err := r.SwapFraction()
	if err != nil {
		return RepositionPlan{}, err
	}
	collat, err := r.CurrentCollateral()
	if err != nil {
		return RepositionPlan{}, err
	}
	convert, err := r.ConvertCollateral()
	if err != nil {
		return RepositionPlan{}, err
	}
	directive, err := r.FormatDirective()
	if err != nil {
		return RepositionPlan{}, err
	}
	tx, err := r.Rebal()
	if err != nil {
		return RepositionPlan{}, err
	}
	return RepositionPlan{
		Snapshot:          r.snap,
		BaseOutOfRange:    baseOut,
		SwapFraction:      frac,
		CurrentCollateral: collat,
		ConvertCollateral: convert,
		MintRange:         r.target.Mint,
		Directive:         directive,
		Tx:                tx,
	}, nil
}
