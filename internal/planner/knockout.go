package planner

import (
	"context"
	"fmt"
	"math/big"

	"crocPlanner/internal/encoding"
	"crocPlanner/internal/fixedpoint"
	"crocPlanner/internal/liquidity"
	"crocPlanner/internal/tickgrid"
	"crocPlanner/internal/token"
)

// KnockoutPlan is a one-grid-step resting order that converts fully into
// the buy token once the market crosses it.
type KnockoutPlan struct {
	ctx *Context

	Base         token.View `json:"base"`
	Quote        token.View `json:"quote"`
	SellBase     bool       `json:"sellBase"`
	QtyInBase    bool       `json:"qtyInBase"`
	Qty          *big.Int   `json:"qty"`
	KnockoutTick int32      `json:"knockoutTick"`
	Range        Range      `json:"range"`
}

// PlanKnockout sizes a knockout order at knockoutTick. With inSellQty the
// quantity is what the order posts; otherwise it is what the order should
// receive, and the posted quantity is derived over the order's range.
func PlanKnockout(c *Context, sell, buy token.View, qty string, inSellQty bool, knockoutTick int32) (*KnockoutPlan, error) {
	base, quote := token.SortViews(sell, buy)
	sellBase := base.Address == sell.Address
	qtyInBase := sellBase
	if !inSellQty {
		qtyInBase = !sellBase
	}

	qtyView := quote
	if qtyInBase {
		qtyView = base
	}
	specQty, err := qtyView.NormQty(qty)
	if err != nil {
		return nil, err
	}

	plan := &KnockoutPlan{
		ctx:          c,
		Base:         base,
		Quote:        quote,
		SellBase:     sellBase,
		QtyInBase:    qtyInBase,
		Qty:          specQty,
		KnockoutTick: knockoutTick,
		Range:        knockoutRange(c.Grid, knockoutTick, sellBase),
	}
	if !inSellQty {
		plan.Qty, err = calcSellQty(c.Grid, specQty, !sellBase, knockoutTick)
		if err != nil {
			return nil, err
		}
		plan.QtyInBase = sellBase
	}
	return plan, nil
}

// knockoutRange spans one grid step above the tick for bids and one below
// for asks.
func knockoutRange(grid tickgrid.Grid, tick int32, sellBase bool) Range {
	if sellBase {
		return Range{tick, tick + grid.Size}
	}
	return Range{tick - grid.Size, tick}
}

// calcSellQty converts the wanted buy quantity into the quantity the order
// must post. isQtyInBase means the buy side is the base token.
func calcSellQty(grid tickgrid.Grid, buyQty *big.Int, isQtyInBase bool, tick int32) (*big.Int, error) {
	lowerPrice, upperPrice := knockoutRange(grid, tick, !isQtyInBase).Prices()
	buy := fixedpoint.ToFloat(buyQty)
	var sell float64
	if isQtyInBase {
		sell = liquidity.BaseTokenForQuoteConc(buy, lowerPrice, upperPrice)
	} else {
		sell = liquidity.QuoteTokenForBaseConc(buy, lowerPrice, upperPrice)
	}
	out, err := fixedpoint.FromFloat(sell)
	if err != nil {
		return nil, fmt.Errorf("knockout sell qty: %w", err)
	}
	return out, nil
}

// WillMintFail reports whether the market already sits inside or past the
// order's range, so the dex would reject the mint.
func (k *KnockoutPlan) WillMintFail(ctx context.Context) (bool, error) {
	marketTick, err := k.ctx.Pools.QueryCurveTick(ctx, k.ctx.PoolKey(k.Base.Address, k.Quote.Address), nil)
	if err != nil {
		return false, err
	}
	if k.SellBase {
		return k.KnockoutTick+k.ctx.Grid.Size >= marketTick, nil
	}
	return k.KnockoutTick-k.ctx.Grid.Size <= marketTick, nil
}

func (k *KnockoutPlan) encoder() *encoding.KnockoutEncoder {
	return encoding.NewKnockoutEncoder(k.Base.Address, k.Quote.Address, k.ctx.Chain.PoolIndex)
}

// Mint posts the order. Native base sold by the order is sent as value.
func (k *KnockoutPlan) Mint(ctx context.Context, useSurplus bool) (TxPlan, error) {
	surplus := encoding.SurplusToggle(useSurplus)
	cmd, err := k.encoder().EncodeMint(k.Qty, k.Range[0], k.Range[1], k.SellBase, surplus)
	if err != nil {
		return TxPlan{}, err
	}

	value := new(big.Int)
	if k.Base.IsNative() && k.SellBase {
		if useSurplus {
			value, err = k.ctx.msgValOverSurplus(ctx, k.Qty)
			if err != nil {
				return TxPlan{}, err
			}
		} else {
			value.Set(k.Qty)
		}
	}
	return k.ctx.userCmd(k.ctx.Chain.Proxy.Knockout, cmd, value)
}

// Burn withdraws the order by its token quantity.
func (k *KnockoutPlan) Burn(useSurplus bool) (TxPlan, error) {
	cmd, err := k.encoder().EncodeBurnQty(k.Qty, k.Range[0], k.Range[1], k.SellBase, encoding.SurplusToggle(useSurplus))
	if err != nil {
		return TxPlan{}, err
	}
	return k.ctx.userCmd(k.ctx.Chain.Proxy.Knockout, cmd, nil)
}

// BurnLiq withdraws liq units of the order, rounded to the storage lot.
func (k *KnockoutPlan) BurnLiq(liq *big.Int, useSurplus bool) (TxPlan, error) {
	cmd, err := k.encoder().EncodeBurnLiq(liquidity.RoundForConcLiq(liq), k.Range[0], k.Range[1], k.SellBase, encoding.SurplusToggle(useSurplus))
	if err != nil {
		return TxPlan{}, err
	}
	return k.ctx.userCmd(k.ctx.Chain.Proxy.Knockout, cmd, nil)
}

// Recover claims the proceeds of an order knocked out at pivotTime.
func (k *KnockoutPlan) Recover(pivotTime uint32, useSurplus bool) (TxPlan, error) {
	cmd, err := k.encoder().EncodeRecover(pivotTime, k.Range[0], k.Range[1], k.SellBase, encoding.SurplusToggle(useSurplus))
	if err != nil {
		return TxPlan{}, err
	}
	return k.ctx.userCmd(k.ctx.Chain.Proxy.Knockout, cmd, nil)
}
