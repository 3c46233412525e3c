package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"crocPlanner/internal/model"
	"crocPlanner/internal/planner"
)

func parseRoute(input string) (planner.Route, error) {
	switch strings.ToLower(input) {
	case "", "auto":
		return planner.RouteAuto, nil
	case "proxy":
		return planner.RouteProxy, nil
	case "router":
		return planner.RouteRouter, nil
	}
	return planner.RouteAuto, fmt.Errorf("unknown route %q (auto, proxy, router)", input)
}

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap <sell> <buy> <qty>",
		Short: "Plan a swap with slippage protection",
		Long:  "Sells qty of the sell token, or buys qty of the buy token with --qty-is-buy.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			routeFlag, _ := flags.GetString("route")
			route, err := parseRoute(routeFlag)
			if err != nil {
				return err
			}
			qtyIsBuy, _ := flags.GetBool("qty-is-buy")
			slippage, _ := flags.GetFloat64("slippage")
			sellSurplus, _ := flags.GetBool("sell-surplus")
			buySurplus, _ := flags.GetBool("buy-surplus")
			opts := planner.SwapOpts{
				Slippage:   slippage,
				Settlement: planner.SwapSettlement{SellDexSurplus: sellSurplus, BuyDexSurplus: buySurplus},
				Route:      route,
			}

			return runOnline(cmd, func(ctx context.Context, s *session) error {
				sell, buy, err := s.resolvePair(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				plan, err := planner.PlanSwap(ctx, s.planner, sell, buy, args[2], qtyIsBuy, opts)
				if err != nil {
					return err
				}

				// Fixed output swaps cap the input at the slippage bound.
				need := plan.Call.Qty
				if qtyIsBuy {
					need = plan.Call.MinOut
				}
				if sell.IsNative() {
					need = plan.Tx.Value
				}
				s.checkFunding(ctx, sell, need, plan.Tx.To)

				pool := s.planner.PoolKey(plan.Base.Address, plan.Quote.Address)
				return s.record(ctx, model.PlanKindSwap, pool, plan.Tx, plan)
			})
		},
	}
	flags := cmd.Flags()
	flags.Bool("qty-is-buy", false, "qty is the amount to receive")
	flags.Float64("slippage", planner.DefaultSwapSlippage, "allowed quantity slippage in [0, 1)")
	flags.Bool("sell-surplus", false, "pay the sell token from dex surplus collateral")
	flags.Bool("buy-surplus", false, "keep the bought token as dex surplus collateral")
	flags.String("route", "auto", "entry point: auto, proxy or router")
	return cmd
}
