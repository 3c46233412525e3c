package tickgrid

import (
	"fmt"
	"math"
)

const (
	// MinTick and MaxTick bound every tick the protocol can store.
	MinTick int32 = -665454
	MaxTick int32 = 831818

	// TickBase is the price ratio between adjacent ticks.
	TickBase = 1.0001
)

// Bounds are the inclusive tick limits of a deployment.
type Bounds struct {
	MinTick int32
	MaxTick int32
}

// ProtocolBounds are the tick limits enforced by the dex contract.
var ProtocolBounds = Bounds{MinTick: MinTick, MaxTick: MaxTick}

// Grid is the immutable tick spacing configuration of a pool.
type Grid struct {
	Size   int32
	Bounds Bounds
}

// NewGrid returns a grid with the protocol tick bounds.
func NewGrid(size int32) (Grid, error) {
	if size <= 0 {
		return Grid{}, fmt.Errorf("grid size must be positive: %d", size)
	}
	return Grid{Size: size, Bounds: ProtocolBounds}, nil
}

// OutsidePin is an on-grid tick on the far side of the pool price.
type OutsidePin struct {
	Tick    int32 `json:"tick"`
	IsBelow bool  `json:"isTickBelow"`
}

// Neighbors are on-grid ticks around a price, nearest first.
type Neighbors struct {
	Below []int32 `json:"below"`
	Above []int32 `json:"above"`
}

// PriceInTicks returns the continuous tick coordinate of a raw price.
func PriceInTicks(price float64) float64 {
	return math.Log(price) / math.Log(TickBase)
}

// PriceToTick returns the tick whose bucket contains price, clamped to the
// protocol bounds.
func PriceToTick(price float64) int32 {
	return clampTick(math.Floor(PriceInTicks(price)), ProtocolBounds.MinTick, ProtocolBounds.MaxTick)
}

// TickToPrice returns 1.0001^tick.
func TickToPrice(tick int32) float64 {
	return math.Pow(TickBase, float64(tick))
}

// LowerHorizon is the lowest grid-aligned tick at or below MinTick.
func (g Grid) LowerHorizon() int32 {
	return floorDiv(g.Bounds.MinTick, g.Size) * g.Size
}

// UpperHorizon is the highest grid-aligned tick at or above MaxTick.
func (g Grid) UpperHorizon() int32 {
	return -floorDiv(-g.Bounds.MaxTick, g.Size) * g.Size
}

// PinLower rounds price down to the grid.
func (g Grid) PinLower(price float64) int32 {
	size := float64(g.Size)
	tickGrid := math.Floor(PriceInTicks(price)/size) * size
	return g.clamp(math.Max(tickGrid, float64(g.LowerHorizon())))
}

// PinUpper rounds price up to the grid. Only a price inside the bucket of an
// on-grid tick pins to the same tick as PinLower.
func (g Grid) PinUpper(price float64) int32 {
	size := float64(g.Size)
	tickGrid := math.Ceil(math.Floor(PriceInTicks(price))/size) * size
	return g.clamp(math.Min(tickGrid, float64(g.UpperHorizon())))
}

// PinOutside returns the nearest on-grid tick for price that lies strictly
// outside the grid bucket holding poolPrice. A price in the same tick as the
// pool is placed above it.
func (g Grid) PinOutside(price, poolPrice float64) OutsidePin {
	priceTicks := math.Floor(PriceInTicks(price))
	poolTicks := math.Floor(PriceInTicks(poolPrice))
	poolLower, poolUpper := g.PinLower(poolPrice), g.PinUpper(poolPrice)

	if priceTicks < poolTicks {
		if priceTicks >= float64(poolLower) {
			return OutsidePin{Tick: poolLower - g.Size, IsBelow: true}
		}
		return OutsidePin{Tick: g.PinLower(price), IsBelow: true}
	}

	if priceTicks <= float64(poolUpper) {
		return OutsidePin{Tick: poolUpper + g.Size, IsBelow: false}
	}
	return OutsidePin{Tick: g.PinUpper(price), IsBelow: false}
}

// Neighbors lists n grid ticks on each side of PinLower(price). n of zero or
// less yields empty lists.
func (g Grid) Neighbors(price float64, n int) Neighbors {
	if n < 0 {
		n = 0
	}
	pinned := g.PinLower(price)
	out := Neighbors{
		Below: make([]int32, n),
		Above: make([]int32, n),
	}
	for i := 0; i < n; i++ {
		out.Below[i] = pinned - int32(i)*g.Size
		out.Above[i] = pinned + int32(i+1)*g.Size
	}
	return out
}

// PriceHalfBelowTick is the price half a grid step below tick.
func (g Grid) PriceHalfBelowTick(tick int32) float64 {
	return math.Pow(TickBase, float64(tick)-0.5*float64(g.Size))
}

// PriceHalfAboveTick is the price half a grid step above tick.
func (g Grid) PriceHalfAboveTick(tick int32) float64 {
	return math.Pow(TickBase, float64(tick)+0.5*float64(g.Size))
}

// CalcRangeTilt is the quote to base collateral ratio of a range order over
// [lowerTick, upperTick] at mktPrice. Zero means no quote is needed, +Inf
// means no base is needed.
func CalcRangeTilt(mktPrice float64, lowerTick, upperTick int32) float64 {
	lowerPrice := TickToPrice(lowerTick)
	upperPrice := TickToPrice(upperTick)

	switch {
	case mktPrice > upperPrice:
		return math.Inf(1)
	case mktPrice < lowerPrice:
		return 0
	default:
		basePartial := math.Sqrt(lowerPrice / mktPrice)
		quotePartial := math.Sqrt(mktPrice / upperPrice)
		return quotePartial / basePartial
	}
}

func (g Grid) clamp(tick float64) int32 {
	return clampTick(tick, g.LowerHorizon(), g.UpperHorizon())
}

// clampTick maps NaN to lo so non-positive prices land on the lower horizon.
func clampTick(tick float64, lo, hi int32) int32 {
	if math.IsNaN(tick) || tick <= float64(lo) {
		return lo
	}
	if tick >= float64(hi) {
		return hi
	}
	return int32(tick)
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
