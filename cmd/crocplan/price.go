package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"crocPlanner/internal/planner"
	"crocPlanner/internal/pricing"
	"crocPlanner/internal/tickgrid"
)

type priceReport struct {
	Display        float64                 `json:"display"`
	Raw            float64                 `json:"raw"`
	SqrtPrice      string                  `json:"sqrtPrice"`
	Tick           int32                   `json:"tick"`
	GridSize       int32                   `json:"gridSize"`
	PinLower       int32                   `json:"pinLower"`
	PinUpper       int32                   `json:"pinUpper"`
	HalfBelow      float64                 `json:"halfBelow"`
	HalfAbove      float64                 `json:"halfAbove"`
	Neighbors      tickgrid.Neighbors      `json:"neighbors"`
	NeighborPrices *planner.NeighborPrices `json:"neighborPrices,omitempty"`
	PoolDisplay    float64                 `json:"poolDisplayPrice,omitempty"`
	OutsidePin     *planner.OutsidePin     `json:"outsidePin,omitempty"`
}

func newPriceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price <display-price>",
		Short: "Convert a display price to on-chain forms and grid ticks",
		Long:  "Works offline from decimals and a grid size, or against a live pool when --base and --quote are given.",
		Args:  cobra.ExactArgs(1),
		RunE:  runPrice,
	}
	cmd.Flags().Int("base-decimals", 18, "base token decimals")
	cmd.Flags().Int("quote-decimals", 18, "quote token decimals")
	cmd.Flags().Bool("inverted", false, "display price is quoted in the inverted direction")
	cmd.Flags().Int32("grid", 0, "grid size (0 uses the chain table)")
	cmd.Flags().Int("neighbors", planner.DefaultNeighbors, "neighbor ticks per side")
	cmd.Flags().Float64("pool-display-price", 0, "pool display price for the outside pin")
	cmd.Flags().String("base", "", "view base token of a live pool")
	cmd.Flags().String("quote", "", "view quote token of a live pool")
	return cmd
}

func runPrice(cmd *cobra.Command, args []string) error {
	display, err := strconv.ParseFloat(args[0], 64)
	if err != nil || display <= 0 {
		return fmt.Errorf("display price must be positive: %q", args[0])
	}
	n, _ := cmd.Flags().GetInt("neighbors")

	base, _ := cmd.Flags().GetString("base")
	quote, _ := cmd.Flags().GetString("quote")
	if base != "" || quote != "" {
		if base == "" || quote == "" {
			return fmt.Errorf("a live pool needs both --base and --quote")
		}
		return runOnline(cmd, func(ctx context.Context, s *session) error {
			pool, err := s.openPool(ctx, base, quote)
			if err != nil {
				return err
			}
			report, err := poolPriceReport(ctx, pool, display, n)
			if err != nil {
				return err
			}
			return emit(s.out, report)
		})
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	gridSize, _ := cmd.Flags().GetInt32("grid")
	if gridSize == 0 {
		spec, err := cfg.LookupChain(cfg.ChainID)
		if err != nil {
			return fmt.Errorf("%w (pass --grid for offline use)", err)
		}
		gridSize = spec.GridSize
	}
	grid, err := tickgrid.NewGrid(gridSize)
	if err != nil {
		return err
	}

	baseDec, _ := cmd.Flags().GetInt("base-decimals")
	quoteDec, _ := cmd.Flags().GetInt("quote-decimals")
	inverted, _ := cmd.Flags().GetBool("inverted")
	conv := pricing.Display{BaseDecimals: baseDec, QuoteDecimals: quoteDec, Inverted: inverted}

	raw := conv.FromDisplay(display)
	pins := [2]int32{grid.PinLower(raw), grid.PinUpper(raw)}
	report, err := gridReport(grid, conv, display, raw, pins, grid.Neighbors(raw, n))
	if err != nil {
		return err
	}
	if poolDisplay, _ := cmd.Flags().GetFloat64("pool-display-price"); poolDisplay > 0 {
		pin := grid.PinOutside(raw, conv.FromDisplay(poolDisplay))
		pinPrice := conv.ToDisplay(tickgrid.TickToPrice(pin.Tick))
		report.PoolDisplay = poolDisplay
		report.OutsidePin = &planner.OutsidePin{OutsidePin: pin, Price: pinPrice, IsPriceBelow: pinPrice < display}
	}
	return emit(cmd.OutOrStdout(), report)
}

// gridReport fills the parts of a price report that need no pool state.
func gridReport(grid tickgrid.Grid, conv pricing.Display, display, raw float64, pins [2]int32, neighbors tickgrid.Neighbors) (priceReport, error) {
	sqrtPrice, err := pricing.EncodeCrocPrice(raw)
	if err != nil {
		return priceReport{}, err
	}
	return priceReport{
		Display:   display,
		Raw:       raw,
		SqrtPrice: sqrtPrice.String(),
		Tick:      tickgrid.PriceToTick(raw),
		GridSize:  grid.Size,
		PinLower:  pins[0],
		PinUpper:  pins[1],
		HalfBelow: conv.ToDisplay(grid.PriceHalfBelowTick(pins[0])),
		HalfAbove: conv.ToDisplay(grid.PriceHalfAboveTick(pins[0])),
		Neighbors: neighbors,
	}, nil
}

// poolPriceReport places a display price on a live pool's grid, with the
// outside pin taken against the pool's spot price.
func poolPriceReport(ctx context.Context, pool *planner.PoolView, display float64, n int) (priceReport, error) {
	lower, upper := pool.DisplayToPinTick(display)
	ticks := pool.DisplayToNeighborTicks(display, n)
	report, err := gridReport(pool.Grid(), pool.Display(), display, pool.FromDisplayPrice(display), [2]int32{lower, upper}, ticks)
	if err != nil {
		return priceReport{}, err
	}
	neighbors := pool.DisplayToNeighborTickPrices(display, n)
	report.NeighborPrices = &neighbors

	if report.PoolDisplay, err = pool.DisplayPrice(ctx); err != nil {
		return priceReport{}, err
	}
	pin, err := pool.DisplayToOutsidePin(ctx, display)
	if err != nil {
		return priceReport{}, err
	}
	report.OutsidePin = &pin
	return report, nil
}
