package encoding

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

const longFormSchema = 1

// Roll types used by chained long form directives.
const (
	RollNone       uint8 = 0
	RollSwapFrac   uint8 = 4
	RollMintRemain uint8 = 5
)

// SettlementDirective bounds the net token flow of one leg.
type SettlementDirective struct {
	Token      common.Address `json:"token"`
	LimitQty   *big.Int       `json:"limitQty"`
	DustThresh *big.Int       `json:"dustThresh"`
	UseSurplus bool           `json:"useSurplus"`
}

type ImproveDirective struct {
	IsEnabled   bool `json:"isEnabled"`
	UseBaseSide bool `json:"useBaseSide"`
}

type ChainingDirective struct {
	RollExit      bool `json:"rollExit"`
	SwapDefer     bool `json:"swapDefer"`
	OffsetSurplus bool `json:"offsetSurplus"`
}

type SwapDirective struct {
	IsBuy      bool     `json:"isBuy"`
	InBaseQty  bool     `json:"inBaseQty"`
	RollType   uint8    `json:"rollType"`
	Qty        *big.Int `json:"qty"`
	LimitPrice *big.Int `json:"limitPrice"`
}

type AmbientDirective struct {
	IsAdd     bool     `json:"isAdd"`
	RollType  uint8    `json:"rollType"`
	Liquidity *big.Int `json:"liquidity"`
}

type ConcentratedDirective struct {
	LowTick   int32    `json:"lowTick"`
	HighTick  int32    `json:"highTick"`
	IsRelTick bool     `json:"isRelTick"`
	IsAdd     bool     `json:"isAdd"`
	RollType  uint8    `json:"rollType"`
	Liquidity *big.Int `json:"liquidity"`
}

type PassiveDirective struct {
	Ambient      AmbientDirective         `json:"ambient"`
	Concentrated []*ConcentratedDirective `json:"concentrated"`
}

type PoolDirective struct {
	PoolIdx uint64            `json:"poolIdx"`
	Passive PassiveDirective  `json:"passive"`
	Swap    SwapDirective     `json:"swap"`
	Chain   ChainingDirective `json:"chain"`
}

type HopDirective struct {
	Pools      []*PoolDirective    `json:"pools"`
	Settlement SettlementDirective `json:"settlement"`
	Improve    ImproveDirective    `json:"improve"`
}

// OrderDirective is a multi-step long form order that the dex settles
// atomically.
type OrderDirective struct {
	Open SettlementDirective `json:"open"`
	Hops []*HopDirective     `json:"hops"`
}

// NewOrderDirective opens an order on openToken.
func NewOrderDirective(openToken common.Address) *OrderDirective {
	return &OrderDirective{Open: simpleSettle(openToken)}
}

func simpleSettle(token common.Address) SettlementDirective {
	return SettlementDirective{
		Token:      token,
		LimitQty:   new(big.Int).Lsh(big.NewInt(1), 125),
		DustThresh: new(big.Int),
	}
}

// AppendHop adds a hop that settles into nextToken.
func (o *OrderDirective) AppendHop(nextToken common.Address) *HopDirective {
	hop := &HopDirective{Settlement: simpleSettle(nextToken)}
	o.Hops = append(o.Hops, hop)
	return hop
}

// AppendPool adds a pool step to the last hop. It panics without a hop.
func (o *OrderDirective) AppendPool(poolIdx uint64) *PoolDirective {
	pool := &PoolDirective{
		PoolIdx: poolIdx,
		Passive: PassiveDirective{Ambient: AmbientDirective{Liquidity: new(big.Int)}},
		Swap:    SwapDirective{Qty: new(big.Int), LimitPrice: new(big.Int)},
	}
	hop := o.Hops[len(o.Hops)-1]
	hop.Pools = append(hop.Pools, pool)
	return pool
}

// AppendAmbientMint sets an ambient mint on the last pool step.
func (o *OrderDirective) AppendAmbientMint(liq *big.Int) *AmbientDirective {
	pool := o.lastPool()
	pool.Passive.Ambient = AmbientDirective{IsAdd: true, Liquidity: new(big.Int).Abs(liq)}
	return &pool.Passive.Ambient
}

// AppendRangeMint adds a range mint to the last pool step.
func (o *OrderDirective) AppendRangeMint(lowTick, highTick int32, liq *big.Int) *ConcentratedDirective {
	pool := o.lastPool()
	rng := &ConcentratedDirective{
		LowTick:   lowTick,
		HighTick:  highTick,
		IsAdd:     true,
		Liquidity: new(big.Int).Abs(liq),
	}
	pool.Passive.Concentrated = append(pool.Passive.Concentrated, rng)
	return rng
}

// AppendRangeBurn adds a range burn to the last pool step.
func (o *OrderDirective) AppendRangeBurn(lowTick, highTick int32, liq *big.Int) *ConcentratedDirective {
	rng := o.AppendRangeMint(lowTick, highTick, liq)
	rng.IsAdd = false
	return rng
}

func (o *OrderDirective) lastPool() *PoolDirective {
	hop := o.Hops[len(o.Hops)-1]
	return hop.Pools[len(hop.Pools)-1]
}

// EncodeBytes serializes the directive as consecutive 32 byte words.
func (o *OrderDirective) EncodeBytes() []byte {
	var w wordWriter
	w.uint(longFormSchema)
	w.settlement(o.Open)
	w.uint(uint64(len(o.Hops)))
	for _, hop := range o.Hops {
		w.hop(hop)
	}
	return w.buf
}

type wordWriter struct {
	buf []byte
}

func (w *wordWriter) word(v *big.Int) {
	if v == nil {
		v = new(big.Int)
	}
	w.buf = append(w.buf, math.U256Bytes(new(big.Int).Set(v))...)
}

func (w *wordWriter) uint(v uint64) {
	w.word(new(big.Int).SetUint64(v))
}

func (w *wordWriter) signed(v int64) {
	w.word(big.NewInt(v))
}

func (w *wordWriter) flag(v bool) {
	if v {
		w.uint(1)
		return
	}
	w.uint(0)
}

func (w *wordWriter) flags(bits ...bool) {
	var out uint64
	for _, bit := range bits {
		out <<= 1
		if bit {
			out |= 1
		}
	}
	w.uint(out)
}

func (w *wordWriter) settlement(s SettlementDirective) {
	w.buf = append(w.buf, common.LeftPadBytes(s.Token.Bytes(), 32)...)
	w.word(s.LimitQty)
	w.word(s.DustThresh)
	w.flag(s.UseSurplus)
}

func (w *wordWriter) hop(h *HopDirective) {
	w.uint(uint64(len(h.Pools)))
	for _, pool := range h.Pools {
		w.pool(pool)
	}
	w.settlement(h.Settlement)
	w.flags(h.Improve.IsEnabled, h.Improve.UseBaseSide)
}

func (w *wordWriter) pool(p *PoolDirective) {
	w.uint(p.PoolIdx)

	w.flag(p.Passive.Ambient.IsAdd)
	w.uint(uint64(p.Passive.Ambient.RollType))
	w.word(p.Passive.Ambient.Liquidity)
	w.uint(uint64(len(p.Passive.Concentrated)))
	for _, rng := range p.Passive.Concentrated {
		w.signed(int64(rng.LowTick))
		w.signed(int64(rng.HighTick))
		w.flag(rng.IsRelTick)
		w.flag(rng.IsAdd)
		w.uint(uint64(rng.RollType))
		w.word(rng.Liquidity)
	}

	w.flags(p.Swap.IsBuy, p.Swap.InBaseQty)
	w.uint(uint64(p.Swap.RollType))
	w.word(p.Swap.Qty)
	w.word(p.Swap.LimitPrice)

	w.flags(p.Chain.RollExit, p.Chain.SwapDefer, p.Chain.OffsetSurplus)
}
