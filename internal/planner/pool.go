package planner

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"crocPlanner/internal/croc"
	"crocPlanner/internal/encoding"
	"crocPlanner/internal/fixedpoint"
	"crocPlanner/internal/liquidity"
	"crocPlanner/internal/pricing"
	"crocPlanner/internal/tickgrid"
	"crocPlanner/internal/token"
)

const (
	// DefaultFloatingSlippage widens mint limits on the floating side.
	DefaultFloatingSlippage = 0.1
	// DefaultNeighbors is how many grid ticks the display helpers list per side.
	DefaultNeighbors = 3

	boundPrec    = 1.0001
	ethPrecisAdj = 1.001
)

// EthInitBurn is the native token sent with a pool initialization.
var EthInitBurn = big.NewInt(1_000_000_000_000)

// Range is a pair of ticks, lower first.
type Range [2]int32

// Prices returns the raw prices of both ends of the range.
func (r Range) Prices() (float64, float64) {
	return tickgrid.TickToPrice(r[0]), tickgrid.TickToPrice(r[1])
}

// Limits is a pair of display prices bounding where a mint or burn may execute.
type Limits [2]float64

// Surplus selects which side of the pair settles through surplus collateral,
// given in the view's (base, quote) order.
type Surplus struct {
	Base  bool `json:"base"`
	Quote bool `json:"quote"`
}

// UseSurplus applies one setting to both sides.
func UseSurplus(on bool) Surplus {
	return Surplus{Base: on, Quote: on}
}

// MintOpts tunes a mint plan.
type MintOpts struct {
	Surplus          Surplus
	FloatingSlippage float64
}

// MintPlan is a liquidity mint with its computed bounds. Liquidity and the
// pool-ordered token quantities are valued at Snapshot.
type MintPlan struct {
	Ambient     bool     `json:"ambient"`
	Range       Range    `json:"range,omitempty"`
	Qty         *big.Int `json:"qty"`
	QtyInBase   bool     `json:"qtyInBase"`
	Snapshot    Snapshot `json:"snapshot"`
	Liquidity   *big.Int `json:"liquidity"`
	BaseQty     *big.Int `json:"baseQty"`
	QuoteQty    *big.Int `json:"quoteQty"`
	LimitLow    *big.Int `json:"limitLow"`
	LimitHigh   *big.Int `json:"limitHigh"`
	DisplayLow  float64  `json:"displayLow"`
	DisplayHigh float64  `json:"displayHigh"`
	Surplus     uint8    `json:"surplusFlags"`
	Tx          TxPlan   `json:"tx"`
}

// PoolView plans pool operations for a pair as the user sees it. The view's
// base token need not be the pool's base; UseTrueBase records whether it is.
type PoolView struct {
	ctx         *Context
	Base        token.View
	Quote       token.View
	UseTrueBase bool
	Key         croc.PoolKey
	display     pricing.Display
}

// NewPoolView orders the pair and records how display prices are oriented.
// Inverted views display the reciprocal of the decimal-scaled pool price.
func NewPoolView(c *Context, base, quote token.View) *PoolView {
	sortedBase, sortedQuote := token.SortViews(base, quote)
	useTrueBase := sortedBase.Address == base.Address
	return &PoolView{
		ctx:         c,
		Base:        sortedBase,
		Quote:       sortedQuote,
		UseTrueBase: useTrueBase,
		Key:         c.PoolKey(sortedBase.Address, sortedQuote.Address),
		display: pricing.Display{
			BaseDecimals:  int(sortedBase.Decimals),
			QuoteDecimals: int(sortedQuote.Decimals),
			Inverted:      !useTrueBase,
		},
	}
}

// Snapshot reads the pool's spot price and tick.
func (p *PoolView) Snapshot(ctx context.Context) (Snapshot, error) {
	return TakeSnapshot(ctx, p.ctx.Pools, p.Key)
}

// IsInit reports whether the pool has been initialized.
func (p *PoolView) IsInit(ctx context.Context) (bool, error) {
	price, err := p.ctx.Pools.QueryPrice(ctx, p.Key, nil)
	if err != nil {
		return false, err
	}
	return price.Sign() > 0, nil
}

// SpotPrice returns the raw spot price.
func (p *PoolView) SpotPrice(ctx context.Context) (float64, error) {
	price, err := p.ctx.Pools.QueryPrice(ctx, p.Key, nil)
	if err != nil {
		return 0, err
	}
	return pricing.DecodeCrocPrice(price), nil
}

// DisplayPrice returns the spot price in display units.
func (p *PoolView) DisplayPrice(ctx context.Context) (float64, error) {
	spot, err := p.SpotPrice(ctx)
	if err != nil {
		return 0, err
	}
	return p.ToDisplayPrice(spot), nil
}

// CumAmbientGrowth returns the ambient seed deflator as a float.
func (p *PoolView) CumAmbientGrowth(ctx context.Context) (float64, error) {
	curve, err := p.ctx.Pools.QueryCurve(ctx, p.Key)
	if err != nil {
		return 0, err
	}
	return float64(curve.SeedDeflator) / math.Exp2(48), nil
}

// Grid is the tick grid the pool's ranges pin to.
func (p *PoolView) Grid() tickgrid.Grid {
	return p.ctx.Grid
}

// Display is the view's price orientation and decimal scaling.
func (p *PoolView) Display() pricing.Display {
	return p.display
}

func (p *PoolView) ToDisplayPrice(price float64) float64 {
	return p.display.ToDisplay(price)
}

func (p *PoolView) FromDisplayPrice(price float64) float64 {
	return p.display.FromDisplay(price)
}

// DisplayToPinTick returns the lower and upper grid ticks around a display price.
func (p *PoolView) DisplayToPinTick(dispPrice float64) (int32, int32) {
	spot := p.FromDisplayPrice(dispPrice)
	return p.ctx.Grid.PinLower(spot), p.ctx.Grid.PinUpper(spot)
}

// DisplayToRange pins a display price band outward to grid ticks: the lower
// raw price to the tick at or below it, the upper to the tick at or above.
func (p *PoolView) DisplayToRange(lowDisp, highDisp float64) (Range, error) {
	low, high := p.display.FromDisplayPair(lowDisp, highDisp)
	for _, v := range []float64{low, high} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return Range{}, fmt.Errorf("%w: display range [%v, %v]", liquidity.ErrDegenerateRange, lowDisp, highDisp)
		}
	}
	rng := Range{p.ctx.Grid.PinLower(low), p.ctx.Grid.PinUpper(high)}
	if rng[0] >= rng[1] {
		return Range{}, fmt.Errorf("%w: ticks %d >= %d", liquidity.ErrDegenerateRange, rng[0], rng[1])
	}
	return rng, nil
}

// DisplayToNeighborTicks lists grid ticks around a display price.
func (p *PoolView) DisplayToNeighborTicks(dispPrice float64, n int) tickgrid.Neighbors {
	return p.ctx.Grid.Neighbors(p.FromDisplayPrice(dispPrice), n)
}

// NeighborPrices are display prices of neighboring grid ticks.
type NeighborPrices struct {
	Below []float64 `json:"below"`
	Above []float64 `json:"above"`
}

// DisplayToNeighborTickPrices lists display prices of neighboring ticks,
// oriented so Below holds lower display prices in inverted views too.
func (p *PoolView) DisplayToNeighborTickPrices(dispPrice float64, n int) NeighborPrices {
	ticks := p.DisplayToNeighborTicks(dispPrice, n)
	toPrices := func(ticks []int32) []float64 {
		out := make([]float64, len(ticks))
		for i, tick := range ticks {
			out[i] = p.ToDisplayPrice(tickgrid.TickToPrice(tick))
		}
		return out
	}
	below, above := toPrices(ticks.Below), toPrices(ticks.Above)
	if p.UseTrueBase {
		return NeighborPrices{Below: below, Above: above}
	}
	return NeighborPrices{Below: above, Above: below}
}

// OutsidePin is a grid tick outside the pool price with its display price.
type OutsidePin struct {
	tickgrid.OutsidePin
	Price        float64 `json:"price"`
	IsPriceBelow bool    `json:"isPriceBelow"`
}

// DisplayToOutsidePin pins a display price to the nearest grid tick that a
// resting order could occupy without executing immediately.
func (p *PoolView) DisplayToOutsidePin(ctx context.Context, dispPrice float64) (OutsidePin, error) {
	spot, err := p.SpotPrice(ctx)
	if err != nil {
		return OutsidePin{}, err
	}
	pin := p.ctx.Grid.PinOutside(p.FromDisplayPrice(dispPrice), spot)
	pinPrice := p.ToDisplayPrice(tickgrid.TickToPrice(pin.Tick))
	return OutsidePin{OutsidePin: pin, Price: pinPrice, IsPriceBelow: pinPrice < dispPrice}, nil
}

// InitPool plans the creation of the pool at a display price.
func (p *PoolView) InitPool(initPrice float64) (TxPlan, error) {
	sqrtPrice, err := pricing.EncodeCrocPrice(p.FromDisplayPrice(initPrice))
	if err != nil {
		return TxPlan{}, fmt.Errorf("init price: %w", err)
	}
	cmd, err := encoding.EncodeInitPool(p.Base.Address, p.Quote.Address, p.Key.PoolIdx, sqrtPrice)
	if err != nil {
		return TxPlan{}, err
	}
	value := new(big.Int)
	if p.Base.IsNative() {
		value.Set(EthInitBurn)
	}
	return p.ctx.userCmd(p.ctx.Chain.Proxy.Cold, cmd, value)
}

// MintAmbientBase mints ambient liquidity sized in the view's base token.
func (p *PoolView) MintAmbientBase(ctx context.Context, qty string, limits Limits, opts MintOpts) (MintPlan, error) {
	return p.mintAmbient(ctx, qty, p.UseTrueBase, limits, opts)
}

// MintAmbientQuote mints ambient liquidity sized in the view's quote token.
func (p *PoolView) MintAmbientQuote(ctx context.Context, qty string, limits Limits, opts MintOpts) (MintPlan, error) {
	return p.mintAmbient(ctx, qty, !p.UseTrueBase, limits, opts)
}

// MintRangeBase mints range liquidity sized in the view's base token.
func (p *PoolView) MintRangeBase(ctx context.Context, qty string, rng Range, limits Limits, opts MintOpts) (MintPlan, error) {
	return p.mintRange(ctx, qty, p.UseTrueBase, rng, limits, opts)
}

// MintRangeQuote mints range liquidity sized in the view's quote token.
func (p *PoolView) MintRangeQuote(ctx context.Context, qty string, rng Range, limits Limits, opts MintOpts) (MintPlan, error) {
	return p.mintRange(ctx, qty, !p.UseTrueBase, rng, limits, opts)
}

func (p *PoolView) mintAmbient(ctx context.Context, qty string, isQtyBase bool, limits Limits, opts MintOpts) (MintPlan, error) {
	weiQty, err := p.normQty(qty, isQtyBase)
	if err != nil {
		return MintPlan{}, err
	}
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return MintPlan{}, err
	}
	liq, baseQty, quoteQty, err := ambientQuantities(snap.Price, weiQty, isQtyBase)
	if err != nil {
		return MintPlan{}, err
	}
	lower, upper, err := p.encodeLimits(limits)
	if err != nil {
		return MintPlan{}, err
	}
	surplus := p.surplusFlags(opts.Surplus)

	ethQty := weiQty
	if !isQtyBase {
		ethQty, err = p.calcEthInQuote(weiQty, limits)
		if err != nil {
			return MintPlan{}, err
		}
	}
	value, err := p.ethToAttach(ctx, ethQty, surplus)
	if err != nil {
		return MintPlan{}, err
	}

	enc := encoding.NewWarmPathEncoder(p.Base.Address, p.Quote.Address, p.Key.PoolIdx)
	cmd, err := enc.EncodeMintAmbient(weiQty, isQtyBase, lower, upper, surplus)
	if err != nil {
		return MintPlan{}, err
	}
	tx, err := p.ctx.userCmd(p.ctx.Chain.Proxy.Liq, cmd, value)
	if err != nil {
		return MintPlan{}, err
	}
	return MintPlan{
		Ambient:     true,
		Qty:         weiQty,
		QtyInBase:   isQtyBase,
		Snapshot:    snap,
		Liquidity:   liq,
		BaseQty:     baseQty,
		QuoteQty:    quoteQty,
		LimitLow:    lower,
		LimitHigh:   upper,
		DisplayLow:  limits[0],
		DisplayHigh: limits[1],
		Surplus:     surplus,
		Tx:          tx,
	}, nil
}

func (p *PoolView) mintRange(ctx context.Context, qty string, isQtyBase bool, rng Range, limits Limits, opts MintOpts) (MintPlan, error) {
	if rng[0] >= rng[1] {
		return MintPlan{}, fmt.Errorf("%w: ticks %d >= %d", liquidity.ErrDegenerateRange, rng[0], rng[1])
	}
	weiQty, err := p.normQty(qty, isQtyBase)
	if err != nil {
		return MintPlan{}, err
	}
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return MintPlan{}, err
	}
	liq, baseQty, quoteQty, err := concQuantities(snap.Price, weiQty, isQtyBase, rng)
	if err != nil {
		return MintPlan{}, err
	}

	slippage := opts.FloatingSlippage
	if slippage == 0 {
		slippage = DefaultFloatingSlippage
	}
	sane := p.BoundLimits(snap.Price, rng, limits, isQtyBase, slippage)
	lower, upper, err := p.encodeLimits(sane)
	if err != nil {
		return MintPlan{}, err
	}
	surplus := p.surplusFlags(opts.Surplus)

	ethQty := weiQty
	if !isQtyBase {
		ethQty, err = p.ethForRangeQuote(snap.Price, weiQty, rng, sane)
		if err != nil {
			return MintPlan{}, err
		}
	}
	value, err := p.ethToAttach(ctx, ethQty, surplus)
	if err != nil {
		return MintPlan{}, err
	}

	enc := encoding.NewWarmPathEncoder(p.Base.Address, p.Quote.Address, p.Key.PoolIdx)
	cmd, err := enc.EncodeMintRange(rng[0], rng[1], weiQty, isQtyBase, lower, upper, surplus)
	if err != nil {
		return MintPlan{}, err
	}
	tx, err := p.ctx.userCmd(p.ctx.Chain.Proxy.Liq, cmd, value)
	if err != nil {
		return MintPlan{}, err
	}
	return MintPlan{
		Range:       rng,
		Qty:         weiQty,
		QtyInBase:   isQtyBase,
		Snapshot:    snap,
		Liquidity:   liq,
		BaseQty:     baseQty,
		QuoteQty:    quoteQty,
		LimitLow:    lower,
		LimitHigh:   upper,
		DisplayLow:  sane[0],
		DisplayHigh: sane[1],
		Surplus:     surplus,
		Tx:          tx,
	}, nil
}

// ambientQuantities values an ambient deposit of qty at price, returning
// liquidity and both pool-ordered token quantities.
func ambientQuantities(price float64, qty *big.Int, isQtyBase bool) (liq, baseQty, quoteQty *big.Int, err error) {
	if isQtyBase {
		if liq, err = liquidity.LiquidityForBaseQty(price, qty, 1); err != nil {
			return nil, nil, nil, err
		}
		quoteQty, err = liquidity.QuoteVirtualReserves(price, liq, 1)
		return liq, new(big.Int).Set(qty), quoteQty, err
	}
	if liq, err = liquidity.LiquidityForQuoteQty(price, qty, 1); err != nil {
		return nil, nil, nil, err
	}
	baseQty, err = liquidity.BaseVirtualReserves(price, liq, 1)
	return liq, baseQty, new(big.Int).Set(qty), err
}

// concQuantities values a range deposit of qty at price. It fails when the
// range holds none of the sizing token at price.
func concQuantities(price float64, qty *big.Int, isQtyBase bool, rng Range) (liq, baseQty, quoteQty *big.Int, err error) {
	lowerPrice, upperPrice := rng.Prices()
	if isQtyBase {
		if math.IsInf(liquidity.BaseConcFactor(price, lowerPrice, upperPrice), 1) {
			return nil, nil, nil, fmt.Errorf("range %v holds no base token at the current price", rng)
		}
		if liq, err = liquidity.LiquidityForBaseConc(price, qty, lowerPrice, upperPrice); err != nil {
			return nil, nil, nil, err
		}
		quoteQty, err = liquidity.QuoteTokenForConcLiq(price, liq, lowerPrice, upperPrice)
		return liq, new(big.Int).Set(qty), quoteQty, err
	}
	if math.IsInf(liquidity.QuoteConcFactor(price, lowerPrice, upperPrice), 1) {
		return nil, nil, nil, fmt.Errorf("range %v holds no quote token at the current price", rng)
	}
	if liq, err = liquidity.LiquidityForQuoteConc(price, qty, lowerPrice, upperPrice); err != nil {
		return nil, nil, nil, err
	}
	baseQty, err = liquidity.BaseTokenForConcLiq(price, liq, lowerPrice, upperPrice)
	return liq, baseQty, new(big.Int).Set(qty), err
}

// BoundLimits tightens display limits for a range mint at spot. Ranges
// fully on one side of spot only need to stay on that side; in-range mints
// bound the floating token's price by slippage.
func (p *PoolView) BoundLimits(spot float64, rng Range, limits Limits, isQtyBase bool, floatingSlippage float64) Limits {
	lowerPrice, upperPrice := rng.Prices()
	boundLower, boundUpper := p.display.FromDisplayPair(limits[0], limits[1])

	amplifyLower, amplifyUpper := boundLower, boundUpper
	switch {
	case upperPrice < spot:
		amplifyLower = upperPrice * boundPrec
	case lowerPrice > spot:
		amplifyUpper = lowerPrice / boundPrec
	case isQtyBase:
		amplifyLower = liquidity.ConcBaseSlippagePrice(spot, upperPrice, floatingSlippage)
	default:
		amplifyUpper = liquidity.ConcQuoteSlippagePrice(spot, lowerPrice, floatingSlippage)
	}

	low, high := p.display.ToDisplayPair(math.Max(amplifyLower, boundLower), math.Min(amplifyUpper, boundUpper))
	return Limits{low, high}
}

// BurnAmbientLiq burns liq units of ambient liquidity.
func (p *PoolView) BurnAmbientLiq(liq *big.Int, limits Limits, surplus Surplus) (TxPlan, error) {
	lower, upper, err := p.encodeLimits(limits)
	if err != nil {
		return TxPlan{}, err
	}
	enc := encoding.NewWarmPathEncoder(p.Base.Address, p.Quote.Address, p.Key.PoolIdx)
	cmd, err := enc.EncodeBurnAmbient(liq, lower, upper, p.surplusFlags(surplus))
	if err != nil {
		return TxPlan{}, err
	}
	return p.ctx.userCmd(p.ctx.Chain.Proxy.Liq, cmd, nil)
}

// BurnAmbientAll burns the whole ambient position.
func (p *PoolView) BurnAmbientAll(limits Limits, surplus Surplus) (TxPlan, error) {
	lower, upper, err := p.encodeLimits(limits)
	if err != nil {
		return TxPlan{}, err
	}
	enc := encoding.NewWarmPathEncoder(p.Base.Address, p.Quote.Address, p.Key.PoolIdx)
	cmd, err := enc.EncodeBurnAmbientAll(lower, upper, p.surplusFlags(surplus))
	if err != nil {
		return TxPlan{}, err
	}
	return p.ctx.userCmd(p.ctx.Chain.Proxy.Liq, cmd, nil)
}

// BurnRangeLiq burns range liquidity, rounded down to the storage lot.
func (p *PoolView) BurnRangeLiq(liq *big.Int, rng Range, limits Limits, surplus Surplus) (TxPlan, error) {
	lower, upper, err := p.encodeLimits(limits)
	if err != nil {
		return TxPlan{}, err
	}
	enc := encoding.NewWarmPathEncoder(p.Base.Address, p.Quote.Address, p.Key.PoolIdx)
	cmd, err := enc.EncodeBurnRange(rng[0], rng[1], liquidity.RoundForConcLiq(liq), lower, upper, p.surplusFlags(surplus))
	if err != nil {
		return TxPlan{}, err
	}
	return p.ctx.userCmd(p.ctx.Chain.Proxy.Liq, cmd, nil)
}

// HarvestRange collects the rewards of a range position.
func (p *PoolView) HarvestRange(rng Range, limits Limits, surplus Surplus) (TxPlan, error) {
	lower, upper, err := p.encodeLimits(limits)
	if err != nil {
		return TxPlan{}, err
	}
	enc := encoding.NewWarmPathEncoder(p.Base.Address, p.Quote.Address, p.Key.PoolIdx)
	cmd, err := enc.EncodeHarvestRange(rng[0], rng[1], lower, upper, p.surplusFlags(surplus))
	if err != nil {
		return TxPlan{}, err
	}
	return p.ctx.userCmd(p.ctx.Chain.Proxy.Liq, cmd, nil)
}

// encodeLimits converts display limits to sorted on-chain sqrt prices. A
// zero limit in an inverted view becomes +Inf and encodes as the maximum.
func (p *PoolView) encodeLimits(limits Limits) (*big.Int, *big.Int, error) {
	lower, upper := p.display.FromDisplayPair(limits[0], limits[1])
	lowEnc, err := encodeLimit(lower)
	if err != nil {
		return nil, nil, fmt.Errorf("lower limit: %w", err)
	}
	highEnc, err := encodeLimit(upper)
	if err != nil {
		return nil, nil, fmt.Errorf("upper limit: %w", err)
	}
	return lowEnc, highEnc, nil
}

func encodeLimit(price float64) (*big.Int, error) {
	if math.IsInf(price, 1) {
		return new(big.Int).Set(pricing.MaxSqrtPrice), nil
	}
	enc, err := pricing.EncodeCrocPrice(price)
	if err != nil {
		return nil, err
	}
	return clampSqrtPrice(enc), nil
}

// clampSqrtPrice keeps open-ended limits such as 0 or 1e300 inside the
// range the dex accepts.
func clampSqrtPrice(price *big.Int) *big.Int {
	if price.Cmp(pricing.MinSqrtPrice) < 0 {
		return new(big.Int).Set(pricing.MinSqrtPrice)
	}
	if price.Cmp(pricing.MaxSqrtPrice) > 0 {
		return new(big.Int).Set(pricing.MaxSqrtPrice)
	}
	return price
}

func (p *PoolView) surplusFlags(s Surplus) uint8 {
	return encoding.SurplusPair(s.Base, s.Quote, !p.UseTrueBase)
}

func (p *PoolView) normQty(qty string, isBase bool) (*big.Int, error) {
	if isBase {
		return p.Base.NormQty(qty)
	}
	return p.Quote.NormQty(qty)
}

// calcEthInQuote bounds the base token needed alongside an ambient quote
// deposit by the highest price the mint may execute at.
func (p *PoolView) calcEthInQuote(quoteQty *big.Int, limits Limits) (*big.Int, error) {
	_, boundUpper := p.display.FromDisplayPair(limits[0], limits[1])
	wei := fixedpoint.RoundHalfUp(fixedpoint.ToFloat(quoteQty) * boundUpper * ethPrecisAdj)
	out, err := fixedpoint.FromFloat(wei)
	if err != nil {
		return nil, fmt.Errorf("quote sized deposit needs a finite upper limit: %w", err)
	}
	return out, nil
}

func (p *PoolView) ethForRangeQuote(spot float64, quoteQty *big.Int, rng Range, limits Limits) (*big.Int, error) {
	lowerPrice, upperPrice := rng.Prices()
	skew := liquidity.ConcDepositSkew(spot, lowerPrice, upperPrice)
	ambient, err := p.calcEthInQuote(quoteQty, limits)
	if err != nil {
		return nil, err
	}
	return fixedpoint.FromFloat(math.Ceil(fixedpoint.ToFloat(ambient) * skew))
}

// ethToAttach is the message value for a deposit that needs ethQty of the
// base token. Only native base tokens are sent as value.
func (p *PoolView) ethToAttach(ctx context.Context, ethQty *big.Int, surplus uint8) (*big.Int, error) {
	if !p.Base.IsNative() {
		return new(big.Int), nil
	}
	useBaseSurplus, _ := encoding.DecodeSurplus(surplus)
	if useBaseSurplus {
		return p.ctx.msgValOverSurplus(ctx, ethQty)
	}
	return new(big.Int).Set(ethQty), nil
}
