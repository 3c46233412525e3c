package planner

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"crocPlanner/internal/croc"
	"crocPlanner/internal/encoding"
	"crocPlanner/internal/pricing"
)

func TestPlanSwapSellNativeBase(t *testing.T) {
	c, _, impact := newTestContext(t)
	c.Slots = fakeSlots{open: true}
	impact.result = croc.ImpactResult{
		BaseFlow:   wei(1),
		QuoteFlow:  big.NewInt(-250_000_000_000_000_000),
		FinalPrice: mustEncode(t, 4.2),
	}

	plan, err := PlanSwap(context.Background(), c, testEth, testToken, "1", false, SwapOpts{})
	if err != nil {
		t.Fatalf("plan swap: %v", err)
	}
	if !plan.SellBase || !plan.QtyInBase {
		t.Fatalf("direction mismatch: sellBase=%v qtyInBase=%v", plan.SellBase, plan.QtyInBase)
	}
	if plan.Impact.SellQty != "1.0" || plan.Impact.BuyQty != "0.25" {
		t.Fatalf("impact qty mismatch: %+v", plan.Impact)
	}
	if !near(plan.Impact.PercentChange, 0.05) {
		t.Fatalf("percent change mismatch: %v", plan.Impact.PercentChange)
	}
	if plan.Call.MinOut.Cmp(big.NewInt(247_500_000_000_000_000)) != 0 {
		t.Fatalf("min out mismatch: %s", plan.Call.MinOut)
	}
	if plan.Call.LimitPrice.Cmp(pricing.MaxSqrtPrice) != 0 || !plan.Call.IsBuy {
		t.Fatalf("buy side limit mismatch: %+v", plan.Call)
	}
	if plan.Tx.Value.Cmp(wei(1)) != 0 {
		t.Fatalf("value mismatch: %s", plan.Tx.Value)
	}
	if plan.Route != "hot" || plan.Tx.To != testDex || plan.Tx.Callpath != 0 {
		t.Fatalf("expected hot path swap, got %s %+v", plan.Route, plan.Tx)
	}
	if !near(plan.PriceSlippage, 0.03) {
		t.Fatalf("price slippage mismatch: %v", plan.PriceSlippage)
	}
	if impact.last.Pool.PoolIdx != testPoolIdx || !impact.last.InBaseQty {
		t.Fatalf("impact request mismatch: %+v", impact.last)
	}
}

func TestPlanSwapBuyQtyInQuote(t *testing.T) {
	c, _, impact := newTestContext(t)
	impact.result = croc.ImpactResult{
		BaseFlow:   wei(-4),
		QuoteFlow:  wei(1),
		FinalPrice: mustEncode(t, 3.8),
	}

	plan, err := PlanSwap(context.Background(), c, testToken, testEth, "1", false, SwapOpts{})
	if err != nil {
		t.Fatalf("plan swap: %v", err)
	}
	if plan.SellBase || plan.QtyInBase {
		t.Fatalf("direction mismatch: %+v", plan)
	}
	if plan.Call.MinOut.Cmp(big.NewInt(3_960_000_000_000_000_000)) != 0 {
		t.Fatalf("min out mismatch: %s", plan.Call.MinOut)
	}
	if plan.Call.LimitPrice.Cmp(pricing.MinSqrtPrice) != 0 {
		t.Fatalf("sell side limit mismatch: %s", plan.Call.LimitPrice)
	}
	if plan.Tx.Value.Sign() != 0 {
		t.Fatalf("selling the quote token carries no value: %s", plan.Tx.Value)
	}
	if plan.Route != "proxy" {
		t.Fatalf("closed hot path should route through proxy, got %s", plan.Route)
	}
	path, cmd := unpackUserCmd(t, plan.Tx.Data)
	if path != encoding.HotProxyIdx || len(cmd) != 10*32 {
		t.Fatalf("proxy cmd mismatch: path=%d len=%d", path, len(cmd))
	}
}

func TestPlanSwapFixedOutputPadsInput(t *testing.T) {
	c, _, impact := newTestContext(t)
	impact.result = croc.ImpactResult{
		BaseFlow:   wei(2),
		QuoteFlow:  big.NewInt(-500_000_000_000_000_000),
		FinalPrice: mustEncode(t, 4.1),
	}

	plan, err := PlanSwap(context.Background(), c, testEth, testToken, "0.5", true, SwapOpts{Slippage: 0.05})
	if err != nil {
		t.Fatalf("plan swap: %v", err)
	}
	if plan.QtyInBase {
		t.Fatalf("buy quantity is in quote")
	}
	if plan.Call.MinOut.Cmp(big.NewInt(2_100_000_000_000_000_000)) != 0 {
		t.Fatalf("max in mismatch: %s", plan.Call.MinOut)
	}
	if plan.Tx.Value.Cmp(plan.Call.MinOut) != 0 {
		t.Fatalf("value should cover the padded input: %s", plan.Tx.Value)
	}
}

func TestPlanSwapSurplusValue(t *testing.T) {
	c, pools, impact := newTestContext(t)
	pools.surplus = big.NewInt(300_000_000_000_000_000)
	impact.result = croc.ImpactResult{
		BaseFlow:   wei(1),
		QuoteFlow:  big.NewInt(-250_000_000_000_000_000),
		FinalPrice: mustEncode(t, 4.2),
	}

	plan, err := PlanSwap(context.Background(), c, testEth, testToken, "1", false, SwapOpts{
		Settlement: SwapSettlement{SellDexSurplus: true},
	})
	if err != nil {
		t.Fatalf("plan swap: %v", err)
	}
	if plan.Call.Surplus != 1 {
		t.Fatalf("surplus flags mismatch: %d", plan.Call.Surplus)
	}
	if plan.Tx.Value.Cmp(big.NewInt(700_000_000_000_000_000)) != 0 {
		t.Fatalf("value mismatch: %s", plan.Tx.Value)
	}
}

func TestPlanSwapRouting(t *testing.T) {
	c, _, impact := newTestContext(t)
	impact.result = croc.ImpactResult{
		BaseFlow:   wei(1),
		QuoteFlow:  big.NewInt(-250_000_000_000_000_000),
		FinalPrice: mustEncode(t, 4.2),
	}

	if _, err := PlanSwap(context.Background(), c, testEth, testToken, "1", false, SwapOpts{Route: RouteRouter}); !errors.Is(err, ErrRouterUnavailable) {
		t.Fatalf("expected router unavailable, got %v", err)
	}

	c.Chain.Router = testRouter
	plan, err := PlanSwap(context.Background(), c, testEth, testToken, "1", false, SwapOpts{Route: RouteRouter})
	if err != nil {
		t.Fatalf("router swap: %v", err)
	}
	if plan.Route != "router" || plan.Tx.To != testRouter {
		t.Fatalf("router route mismatch: %s %s", plan.Route, plan.Tx.To.Hex())
	}

	c.Slots = fakeSlots{open: true}
	c.Chain.Proxy.DfltColdSwap = true
	plan, err = PlanSwap(context.Background(), c, testEth, testToken, "1", false, SwapOpts{})
	if err != nil {
		t.Fatalf("default swap: %v", err)
	}
	if plan.Route != "proxy" {
		t.Fatalf("cold swap default should use proxy, got %s", plan.Route)
	}
}

func TestPlanSwapRejectsBadInput(t *testing.T) {
	c, _, impact := newTestContext(t)
	impact.result = croc.ImpactResult{
		BaseFlow:   wei(1),
		QuoteFlow:  wei(1),
		FinalPrice: mustEncode(t, 4),
	}

	if _, err := PlanSwap(context.Background(), c, testEth, testToken, "1", false, SwapOpts{}); !errors.Is(err, ErrInvalidImpact) {
		t.Fatalf("expected invalid impact, got %v", err)
	}
	if _, err := PlanSwap(context.Background(), c, testEth, testToken, "1", false, SwapOpts{Slippage: 1}); err == nil {
		t.Fatalf("expected slippage error")
	}
	if _, err := PlanSwap(context.Background(), c, testEth, testToken, "abc", false, SwapOpts{}); err == nil {
		t.Fatalf("expected quantity error")
	}
}
