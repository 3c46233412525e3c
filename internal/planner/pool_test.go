package planner

import (
	"context"
	"errors"
	"math"
	"math/big"
	"testing"

	"crocPlanner/internal/croc"
	"crocPlanner/internal/encoding"
	"crocPlanner/internal/liquidity"
	"crocPlanner/internal/pricing"
	"crocPlanner/internal/tickgrid"
)

func TestPoolViewOrientation(t *testing.T) {
	c, pools, _ := newTestContext(t)
	pools.curve = croc.CurveState{SeedDeflator: 1 << 48}

	view := NewPoolView(c, testEth, testToken)
	if !view.UseTrueBase || view.Key.PoolIdx != testPoolIdx {
		t.Fatalf("view mismatch: %+v", view.Key)
	}
	price, err := view.DisplayPrice(context.Background())
	if err != nil {
		t.Fatalf("display price: %v", err)
	}
	if !near(price, 4) {
		t.Fatalf("display price mismatch: %v", price)
	}
	growth, err := view.CumAmbientGrowth(context.Background())
	if err != nil {
		t.Fatalf("growth: %v", err)
	}
	if growth != 1 {
		t.Fatalf("growth mismatch: %v", growth)
	}

	inverted := NewPoolView(c, testToken, testEth)
	if inverted.UseTrueBase || inverted.Base.Address != testEth.Address {
		t.Fatalf("inverted view must keep pool order")
	}
	price, err = inverted.DisplayPrice(context.Background())
	if err != nil {
		t.Fatalf("display price: %v", err)
	}
	if !near(price, 0.25) {
		t.Fatalf("inverted display price mismatch: %v", price)
	}

	pools.sqrtPrice = new(big.Int)
	isInit, err := view.IsInit(context.Background())
	if err != nil || isInit {
		t.Fatalf("zero price pool should not be initialized: %v %v", isInit, err)
	}
}

func TestDisplayToNeighborTickPrices(t *testing.T) {
	c, _, _ := newTestContext(t)

	for _, view := range []*PoolView{NewPoolView(c, testEth, testToken), NewPoolView(c, testToken, testEth)} {
		disp := view.ToDisplayPrice(4)
		got := view.DisplayToNeighborTickPrices(disp, DefaultNeighbors)
		if len(got.Below) != DefaultNeighbors || len(got.Above) != DefaultNeighbors {
			t.Fatalf("neighbor count mismatch: %+v", got)
		}
		for _, p := range got.Below {
			if p > disp {
				t.Fatalf("below neighbor %v above %v (trueBase=%v)", p, disp, view.UseTrueBase)
			}
		}
		for _, p := range got.Above {
			if p < disp {
				t.Fatalf("above neighbor %v below %v (trueBase=%v)", p, disp, view.UseTrueBase)
			}
		}
	}

	view := NewPoolView(c, testEth, testToken)
	lower, upper := view.DisplayToPinTick(4)
	if lower != 13860 || upper != 13864 {
		t.Fatalf("pin ticks mismatch: %d %d", lower, upper)
	}
}

func TestDisplayToOutsidePin(t *testing.T) {
	c, _, _ := newTestContext(t)
	view := NewPoolView(c, testEth, testToken)

	pin, err := view.DisplayToOutsidePin(context.Background(), 4)
	if err != nil {
		t.Fatalf("outside pin: %v", err)
	}
	if pin.Tick != 13868 || pin.IsBelow || pin.IsPriceBelow {
		t.Fatalf("same tick pin mismatch: %+v", pin)
	}

	pin, err = view.DisplayToOutsidePin(context.Background(), 2)
	if err != nil {
		t.Fatalf("outside pin: %v", err)
	}
	if !pin.IsBelow || pin.Tick != c.Grid.PinLower(2) || pin.Price > 2 {
		t.Fatalf("below pin mismatch: %+v", pin)
	}
}

func TestInitPool(t *testing.T) {
	c, _, _ := newTestContext(t)
	tx, err := NewPoolView(c, testEth, testToken).InitPool(4)
	if err != nil {
		t.Fatalf("init pool: %v", err)
	}
	if tx.Value.Cmp(EthInitBurn) != 0 {
		t.Fatalf("init burn mismatch: %s", tx.Value)
	}
	path, cmd := unpackUserCmd(t, tx.Data)
	if path != c.Chain.Proxy.Cold || cmdWord(cmd, 0).Uint64() != 71 {
		t.Fatalf("init cmd mismatch: path=%d code=%s", path, cmdWord(cmd, 0))
	}
	if cmdWord(cmd, 4).Cmp(mustEncode(t, 4)) != 0 {
		t.Fatalf("init price mismatch: %s", cmdWord(cmd, 4))
	}

	if _, err := NewPoolView(c, testEth, testToken).InitPool(-1); err == nil {
		t.Fatalf("expected negative price error")
	}
}

func TestMintAmbientBase(t *testing.T) {
	c, _, _ := newTestContext(t)
	plan, err := NewPoolView(c, testEth, testToken).MintAmbientBase(context.Background(), "2", Limits{0, 1e300}, MintOpts{})
	if err != nil {
		t.Fatalf("mint ambient: %v", err)
	}
	if plan.Tx.Value.Cmp(wei(2)) != 0 {
		t.Fatalf("value mismatch: %s", plan.Tx.Value)
	}
	path, cmd := unpackUserCmd(t, plan.Tx.Data)
	if path != c.Chain.Proxy.Liq {
		t.Fatalf("callpath mismatch: %d", path)
	}
	if cmdWord(cmd, 0).Uint64() != uint64(encoding.MintAmbientBase) || cmdWord(cmd, 6).Cmp(wei(2)) != 0 {
		t.Fatalf("cmd mismatch: code=%s qty=%s", cmdWord(cmd, 0), cmdWord(cmd, 6))
	}
	if cmdWord(cmd, 7).Cmp(pricing.MinSqrtPrice) != 0 || cmdWord(cmd, 8).Cmp(pricing.MaxSqrtPrice) != 0 {
		t.Fatalf("open limits must clamp: %s %s", cmdWord(cmd, 7), cmdWord(cmd, 8))
	}
}

func TestMintAmbientQuoteValue(t *testing.T) {
	c, pools, _ := newTestContext(t)
	view := NewPoolView(c, testEth, testToken)

	plan, err := view.MintAmbientQuote(context.Background(), "0.000001", Limits{3, 5}, MintOpts{})
	if err != nil {
		t.Fatalf("mint ambient quote: %v", err)
	}
	if plan.Tx.Value.Cmp(big.NewInt(5_005_000_000_000)) != 0 {
		t.Fatalf("value mismatch: %s", plan.Tx.Value)
	}

	pools.surplus = big.NewInt(5_000_000_000_000)
	plan, err = view.MintAmbientQuote(context.Background(), "0.000001", Limits{3, 5}, MintOpts{Surplus: Surplus{Base: true}})
	if err != nil {
		t.Fatalf("mint ambient quote: %v", err)
	}
	if plan.Surplus != 1 {
		t.Fatalf("surplus flags mismatch: %d", plan.Surplus)
	}
	if plan.Tx.Value.Cmp(big.NewInt(5_000_000_000)) != 0 {
		t.Fatalf("value over surplus mismatch: %s", plan.Tx.Value)
	}

	if _, err := view.MintAmbientQuote(context.Background(), "1", Limits{3, math.Inf(1)}, MintOpts{}); err == nil {
		t.Fatalf("expected infinite limit error")
	}
}

func TestMintAmbientInvertedView(t *testing.T) {
	c, _, _ := newTestContext(t)
	view := NewPoolView(c, testToken, testEth)

	plan, err := view.MintAmbientBase(context.Background(), "3", Limits{0.2, 0.3}, MintOpts{Surplus: Surplus{Base: true}})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if plan.QtyInBase {
		t.Fatalf("display base is the pool quote")
	}
	if plan.Surplus != 2 {
		t.Fatalf("surplus flags must follow pool order: %d", plan.Surplus)
	}
	_, cmd := unpackUserCmd(t, plan.Tx.Data)
	if cmdWord(cmd, 0).Uint64() != uint64(encoding.MintAmbientQuote) {
		t.Fatalf("code mismatch: %s", cmdWord(cmd, 0))
	}
	if cmdWord(cmd, 7).Cmp(cmdWord(cmd, 8)) >= 0 {
		t.Fatalf("limits must be sorted: %s %s", cmdWord(cmd, 7), cmdWord(cmd, 8))
	}
}

func TestBoundLimits(t *testing.T) {
	c, _, _ := newTestContext(t)
	view := NewPoolView(c, testEth, testToken)

	below := view.BoundLimits(4, Range{-100, 0}, Limits{0.5, 10}, true, 0.1)
	if !near(below[0], 1.0001) || below[1] != 10 {
		t.Fatalf("range below spot: %v", below)
	}

	above := view.BoundLimits(4, Range{20000, 20100}, Limits{0.5, 10}, true, 0.1)
	if want := tickgrid.TickToPrice(20000) / 1.0001; above[0] != 0.5 || !near(above[1], want) {
		t.Fatalf("range above spot: %v", above)
	}

	upper := tickgrid.TickToPrice(20000)
	inBase := view.BoundLimits(4, Range{0, 20000}, Limits{0.5, 10}, true, 0.1)
	if !near(inBase[0], liquidity.ConcBaseSlippagePrice(4, upper, 0.1)) || inBase[1] != 10 {
		t.Fatalf("in range base: %v", inBase)
	}

	inQuote := view.BoundLimits(4, Range{0, 20000}, Limits{0.5, 10}, false, 0.1)
	if inQuote[0] != 0.5 || !near(inQuote[1], liquidity.ConcQuoteSlippagePrice(4, 1, 0.1)) {
		t.Fatalf("in range quote: %v", inQuote)
	}

	tight := view.BoundLimits(4, Range{-100, 0}, Limits{2, 3}, true, 0.1)
	if tight[0] != 2 || tight[1] != 3 {
		t.Fatalf("user limits tighter than bounds must win: %v", tight)
	}
}

func TestMintRange(t *testing.T) {
	c, _, _ := newTestContext(t)
	view := NewPoolView(c, testEth, testToken)

	plan, err := view.MintRangeBase(context.Background(), "1", Range{0, 20000}, Limits{0, 1e300}, MintOpts{})
	if err != nil {
		t.Fatalf("mint range: %v", err)
	}
	if plan.Ambient || plan.Range != (Range{0, 20000}) {
		t.Fatalf("range mismatch: %+v", plan)
	}
	if plan.Tx.Value.Cmp(wei(1)) != 0 {
		t.Fatalf("value mismatch: %s", plan.Tx.Value)
	}
	wantLow := liquidity.ConcBaseSlippagePrice(4, tickgrid.TickToPrice(20000), DefaultFloatingSlippage)
	if !near(plan.DisplayLow, wantLow) {
		t.Fatalf("floating limit mismatch: %v want %v", plan.DisplayLow, wantLow)
	}
	_, cmd := unpackUserCmd(t, plan.Tx.Data)
	if cmdWord(cmd, 0).Uint64() != uint64(encoding.MintRangeBase) || cmdWord(cmd, 5).Int64() != 20000 {
		t.Fatalf("cmd mismatch: code=%s upper=%s", cmdWord(cmd, 0), cmdWord(cmd, 5))
	}

	quote, err := view.MintRangeQuote(context.Background(), "0.000001", Range{0, 20000}, Limits{0, 5}, MintOpts{})
	if err != nil {
		t.Fatalf("mint range quote: %v", err)
	}
	if quote.QtyInBase || quote.DisplayHigh >= 5 {
		t.Fatalf("quote sized mint must bound the upper limit: %+v", quote)
	}
	if quote.Tx.Value.Sign() <= 0 {
		t.Fatalf("native base must be attached: %s", quote.Tx.Value)
	}

	if _, err := view.MintRangeBase(context.Background(), "1", Range{20, 20}, Limits{0, 1e300}, MintOpts{}); !errors.Is(err, liquidity.ErrDegenerateRange) {
		t.Fatalf("expected degenerate range, got %v", err)
	}
}

func TestMintQuantitiesForTokenPair(t *testing.T) {
	c, _, _ := newTestContext(t)
	view := NewPoolView(c, testToken, testStable)
	if !view.UseTrueBase || view.Base.Address != testToken.Address {
		t.Fatalf("unexpected pool order: %+v", view.Key)
	}

	rng := Range{13000, 14800}
	plan, err := view.MintRangeBase(context.Background(), "1", rng, Limits{0, 1e300}, MintOpts{})
	if err != nil {
		t.Fatalf("mint range: %v", err)
	}
	if !plan.QtyInBase || plan.BaseQty.Cmp(wei(1)) != 0 {
		t.Fatalf("base side mismatch: %+v", plan)
	}
	if plan.Liquidity == nil || plan.Liquidity.Sign() <= 0 {
		t.Fatalf("liquidity missing: %v", plan.Liquidity)
	}
	lower, upper := rng.Prices()
	wantQuote, err := liquidity.QuoteTokenForConcLiq(plan.Snapshot.Price, plan.Liquidity, lower, upper)
	if err != nil {
		t.Fatalf("quote for liq: %v", err)
	}
	if plan.QuoteQty.Sign() <= 0 || plan.QuoteQty.Cmp(wantQuote) != 0 {
		t.Fatalf("quote qty %s want %s", plan.QuoteQty, wantQuote)
	}
	if plan.Tx.Value.Sign() != 0 {
		t.Fatalf("token pair must not attach value: %s", plan.Tx.Value)
	}

	quoteSized, err := view.MintRangeQuote(context.Background(), "0.5", rng, Limits{0, 1e300}, MintOpts{})
	if err != nil {
		t.Fatalf("mint range quote: %v", err)
	}
	wantBase, err := liquidity.BaseTokenForConcLiq(quoteSized.Snapshot.Price, quoteSized.Liquidity, lower, upper)
	if err != nil {
		t.Fatalf("base for liq: %v", err)
	}
	if quoteSized.BaseQty.Sign() <= 0 || quoteSized.BaseQty.Cmp(wantBase) != 0 {
		t.Fatalf("base qty %s want %s", quoteSized.BaseQty, wantBase)
	}

	ambient, err := view.MintAmbientBase(context.Background(), "2", Limits{0, 1e300}, MintOpts{})
	if err != nil {
		t.Fatalf("mint ambient: %v", err)
	}
	wantLiq, _ := liquidity.LiquidityForBaseQty(ambient.Snapshot.Price, wei(2), 1)
	wantAmbientQuote, _ := liquidity.QuoteVirtualReserves(ambient.Snapshot.Price, wantLiq, 1)
	if ambient.Liquidity.Cmp(wantLiq) != 0 || ambient.QuoteQty.Cmp(wantAmbientQuote) != 0 {
		t.Fatalf("ambient quantities: liq=%s quote=%s", ambient.Liquidity, ambient.QuoteQty)
	}

	if _, err := view.MintRangeBase(context.Background(), "1", Range{20000, 20400}, Limits{0, 1e300}, MintOpts{}); err == nil {
		t.Fatalf("range above spot holds no base and must fail when sized in base")
	}
}

func TestMintPlanCarriesItsSnapshot(t *testing.T) {
	c, pools, _ := newTestContext(t)
	pools.head = 900
	view := NewPoolView(c, testToken, testStable)

	plan, err := view.MintRangeBase(context.Background(), "1", Range{13000, 14800}, Limits{0, 1e300}, MintOpts{})
	if err != nil {
		t.Fatalf("mint range: %v", err)
	}
	if len(pools.blocks) != 2 {
		t.Fatalf("mint should read one snapshot, got %d reads", len(pools.blocks))
	}
	if plan.Snapshot.Block != 900 || plan.Snapshot.Tick != 13862 || plan.Snapshot.SqrtPrice.Cmp(pools.sqrtPrice) != 0 {
		t.Fatalf("plan snapshot mismatch: %+v", plan.Snapshot)
	}
}

func TestDisplayToRange(t *testing.T) {
	c, _, _ := newTestContext(t)
	view := NewPoolView(c, testEth, testToken)

	rng, err := view.DisplayToRange(3.6, 4.4)
	if err != nil {
		t.Fatalf("display range: %v", err)
	}
	want := Range{c.Grid.PinLower(3.6), c.Grid.PinUpper(4.4)}
	if rng != want || rng[0]%c.Grid.Size != 0 || rng[1]%c.Grid.Size != 0 {
		t.Fatalf("range %v want %v", rng, want)
	}
	if swapped, err := view.DisplayToRange(4.4, 3.6); err != nil || swapped != want {
		t.Fatalf("bounds in either order: %v %v", swapped, err)
	}

	if _, err := view.DisplayToRange(0, 4); !errors.Is(err, liquidity.ErrDegenerateRange) {
		t.Fatalf("expected degenerate range, got %v", err)
	}
}

func TestBurnPlans(t *testing.T) {
	c, _, _ := newTestContext(t)
	view := NewPoolView(c, testEth, testToken)

	tx, err := view.BurnRangeLiq(big.NewInt(5000), Range{0, 20000}, Limits{0, 1e300}, Surplus{})
	if err != nil {
		t.Fatalf("burn range: %v", err)
	}
	if tx.Value.Sign() != 0 {
		t.Fatalf("burn carries no value")
	}
	_, cmd := unpackUserCmd(t, tx.Data)
	if cmdWord(cmd, 0).Uint64() != uint64(encoding.BurnRangeLiq) || cmdWord(cmd, 6).Int64() != 4096 {
		t.Fatalf("burn range cmd mismatch: code=%s liq=%s", cmdWord(cmd, 0), cmdWord(cmd, 6))
	}

	tx, err = view.BurnAmbientAll(Limits{0, 1e300}, UseSurplus(true))
	if err != nil {
		t.Fatalf("burn ambient all: %v", err)
	}
	_, cmd = unpackUserCmd(t, tx.Data)
	if cmdWord(cmd, 6).Cmp(encoding.MaxLiquidity) != 0 || cmdWord(cmd, 9).Uint64() != 3 {
		t.Fatalf("burn all cmd mismatch: liq=%s surplus=%s", cmdWord(cmd, 6), cmdWord(cmd, 9))
	}

	tx, err = view.HarvestRange(Range{0, 20000}, Limits{0, 1e300}, Surplus{})
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	_, cmd = unpackUserCmd(t, tx.Data)
	if cmdWord(cmd, 0).Uint64() != uint64(encoding.HarvestRange) {
		t.Fatalf("harvest code mismatch: %s", cmdWord(cmd, 0))
	}
}
