package planner

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"crocPlanner/internal/croc"
	"crocPlanner/internal/encoding"
	"crocPlanner/internal/pricing"
	"crocPlanner/internal/token"
)

const (
	// DefaultSwapSlippage is the output tolerance when none is given.
	DefaultSwapSlippage = 0.01
	// PriceSlipMult scales the quantity slippage into a price slippage.
	PriceSlipMult = 3.0
)

// Route selects the dex entry point of a swap.
type Route int

const (
	// RouteAuto uses the hot path when the dex has it open.
	RouteAuto Route = iota
	// RouteProxy forces the userCmd proxy path.
	RouteProxy
	// RouteRouter sends the swap through the chain's router contract.
	RouteRouter
)

func (r Route) String() string {
	switch r {
	case RouteProxy:
		return "proxy"
	case RouteRouter:
		return "router"
	default:
		return "auto"
	}
}

// SwapSettlement chooses surplus settlement per side of the trade.
type SwapSettlement struct {
	SellDexSurplus bool `json:"sellDexSurplus"`
	BuyDexSurplus  bool `json:"buyDexSurplus"`
}

// SwapOpts tunes a swap plan.
type SwapOpts struct {
	Slippage   float64
	Settlement SwapSettlement
	Route      Route
}

// Impact summarizes a simulated swap in display units.
type Impact struct {
	SellQty       string  `json:"sellQty"`
	BuyQty        string  `json:"buyQty"`
	FinalPrice    float64 `json:"finalPrice"`
	PercentChange float64 `json:"percentChange"`
}

// SwapPlan is a fully priced swap.
type SwapPlan struct {
	Base          token.View        `json:"base"`
	Quote         token.View        `json:"quote"`
	SellBase      bool              `json:"sellBase"`
	QtyInBase     bool              `json:"qtyInBase"`
	Slippage      float64           `json:"slippage"`
	PriceSlippage float64           `json:"priceSlippage"`
	Impact        Impact            `json:"impact"`
	Call          encoding.SwapCall `json:"call"`
	Route         string            `json:"route"`
	Tx            TxPlan            `json:"tx"`
}

// PlanSwap prices a swap of qty from sell into buy. qtyIsBuy means qty is
// the amount to receive rather than the amount to pay.
func PlanSwap(ctx context.Context, c *Context, sell, buy token.View, qty string, qtyIsBuy bool, opts SwapOpts) (*SwapPlan, error) {
	base, quote := token.SortViews(sell, buy)
	sellBase := base.Address == sell.Address
	qtyInBase := sellBase != qtyIsBuy

	qtyView := quote
	if qtyInBase {
		qtyView = base
	}
	weiQty, err := qtyView.NormQty(qty)
	if err != nil {
		return nil, err
	}

	slippage := opts.Slippage
	if slippage == 0 {
		slippage = DefaultSwapSlippage
	}
	if slippage < 0 || slippage >= 1 {
		return nil, fmt.Errorf("slippage must be in [0, 1): %v", slippage)
	}

	pool := NewPoolView(c, base, quote)
	startPrice, err := pool.DisplayPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("start price: %w", err)
	}
	impact, err := estimateImpact(ctx, c, pool, sellBase, qtyInBase, weiQty, startPrice)
	if err != nil {
		return nil, err
	}

	slipQty, err := calcSlipQty(impact, base, quote, sellBase, qtyInBase, slippage)
	if err != nil {
		return nil, err
	}

	surplus := maskSwapSurplus(opts.Settlement, sellBase)
	call := encoding.SwapCall{
		Base:       base.Address,
		Quote:      quote.Address,
		PoolIdx:    c.Chain.PoolIndex,
		IsBuy:      sellBase,
		InBaseQty:  qtyInBase,
		Qty:        weiQty,
		LimitPrice: swapLimitPrice(sellBase),
		MinOut:     slipQty,
		Surplus:    surplus,
	}

	value := new(big.Int)
	if sellBase && base.IsNative() {
		needed := slipQty
		if qtyInBase {
			needed = weiQty
		}
		useBaseSurplus, _ := encoding.DecodeSurplus(surplus)
		if useBaseSurplus {
			value, err = c.msgValOverSurplus(ctx, needed)
			if err != nil {
				return nil, err
			}
		} else {
			value.Set(needed)
		}
	}

	route, tx, err := routeSwap(ctx, c, call, value, opts.Route)
	if err != nil {
		return nil, err
	}

	c.Logger.Debug("swap planned",
		zap.String("base", base.Address.Hex()),
		zap.String("quote", quote.Address.Hex()),
		zap.Bool("sellBase", sellBase),
		zap.Bool("qtyInBase", qtyInBase),
		zap.String("route", route),
	)

	return &SwapPlan{
		Base:          base,
		Quote:         quote,
		SellBase:      sellBase,
		QtyInBase:     qtyInBase,
		Slippage:      slippage,
		PriceSlippage: slippage * PriceSlipMult,
		Impact:        impact,
		Call:          call,
		Route:         route,
		Tx:            tx,
	}, nil
}

// swapLimitPrice is the widest price bound. Slippage is enforced through
// the minimum output quantity rather than the limit price.
func swapLimitPrice(sellBase bool) *big.Int {
	if sellBase {
		return new(big.Int).Set(pricing.MaxSqrtPrice)
	}
	return new(big.Int).Set(pricing.MinSqrtPrice)
}

func estimateImpact(ctx context.Context, c *Context, pool *PoolView, sellBase, qtyInBase bool, qty *big.Int, startPrice float64) (Impact, error) {
	if c.Impact == nil {
		return Impact{}, fmt.Errorf("impact estimator is nil")
	}
	res, err := c.Impact.CalcImpact(ctx, croc.ImpactRequest{
		Pool:       pool.Key,
		IsBuy:      sellBase,
		InBaseQty:  qtyInBase,
		Qty:        qty,
		LimitPrice: swapLimitPrice(sellBase),
	})
	if err != nil {
		return Impact{}, fmt.Errorf("calc impact: %w", err)
	}
	if res.BaseFlow.Sign()*res.QuoteFlow.Sign() > 0 {
		return Impact{}, ErrInvalidImpact
	}

	baseQty := pool.Base.ToDisplay(new(big.Int).Abs(res.BaseFlow))
	quoteQty := pool.Quote.ToDisplay(new(big.Int).Abs(res.QuoteFlow))
	finalPrice := pool.ToDisplayPrice(pricing.DecodeCrocPrice(res.FinalPrice))

	out := Impact{
		SellQty:       quoteQty,
		BuyQty:        baseQty,
		FinalPrice:    finalPrice,
		PercentChange: (finalPrice - startPrice) / startPrice,
	}
	if sellBase {
		out.SellQty, out.BuyQty = baseQty, quoteQty
	}
	return out, nil
}

// calcSlipQty bounds the floating side of the swap. When qty is in the sell
// token it is the minimum amount bought; otherwise the maximum amount sold.
func calcSlipQty(impact Impact, base, quote token.View, sellBase, qtyInBase bool, slippage float64) (*big.Int, error) {
	qtyIsSell := sellBase == qtyInBase

	var slip float64
	if qtyIsSell {
		buy, err := strconv.ParseFloat(impact.BuyQty, 64)
		if err != nil {
			return nil, fmt.Errorf("parse buy qty: %w", err)
		}
		slip = buy * (1 - slippage)
	} else {
		sell, err := strconv.ParseFloat(impact.SellQty, 64)
		if err != nil {
			return nil, fmt.Errorf("parse sell qty: %w", err)
		}
		slip = sell * (1 + slippage)
	}

	if qtyInBase {
		return quote.RoundQty(slip)
	}
	return base.RoundQty(slip)
}

func maskSwapSurplus(s SwapSettlement, sellBase bool) uint8 {
	if sellBase {
		return encoding.SurplusPair(s.SellDexSurplus, s.BuyDexSurplus, false)
	}
	return encoding.SurplusPair(s.BuyDexSurplus, s.SellDexSurplus, false)
}

func routeSwap(ctx context.Context, c *Context, call encoding.SwapCall, value *big.Int, route Route) (string, TxPlan, error) {
	switch route {
	case RouteRouter:
		if c.Chain.Router == (common.Address{}) {
			return "", TxPlan{}, ErrRouterUnavailable
		}
		data, err := croc.PackDirectSwap(call)
		if err != nil {
			return "", TxPlan{}, err
		}
		return "router", TxPlan{To: c.Chain.Router, Data: data, Value: value}, nil
	case RouteProxy:
		return proxySwap(c, call, value)
	}

	if c.Chain.Proxy.DfltColdSwap || c.Slots == nil {
		return proxySwap(c, call, value)
	}
	open, err := c.Slots.IsHotPathOpen(ctx)
	if err != nil {
		return "", TxPlan{}, fmt.Errorf("read hot path flag: %w", err)
	}
	if !open {
		return proxySwap(c, call, value)
	}
	data, err := croc.PackDirectSwap(call)
	if err != nil {
		return "", TxPlan{}, err
	}
	return "hot", TxPlan{To: c.Chain.Dex, Data: data, Value: value}, nil
}

func proxySwap(c *Context, call encoding.SwapCall, value *big.Int) (string, TxPlan, error) {
	cmd, err := encoding.EncodeSwapCmd(call)
	if err != nil {
		return "", TxPlan{}, err
	}
	tx, err := c.userCmd(encoding.HotProxyIdx, cmd, value)
	if err != nil {
		return "", TxPlan{}, err
	}
	return "proxy", tx, nil
}
