package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"crocPlanner/internal/model"
	"crocPlanner/internal/planner"
)

type knockoutReport struct {
	Action       string                `json:"action"`
	Order        *planner.KnockoutPlan `json:"order"`
	WillMintFail *bool                 `json:"willMintFail,omitempty"`
	Tx           planner.TxPlan        `json:"tx"`
}

func newKnockoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knockout <mint|burn|burn-liq|recover> <sell> <buy> <qty> <tick>",
		Short: "Plan a knockout limit order",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := args[0]
			var tick int32
			if _, err := fmt.Sscan(args[4], &tick); err != nil {
				return fmt.Errorf("knockout tick: %w", err)
			}
			flags := cmd.Flags()
			inBuy, _ := flags.GetBool("qty-is-buy")
			useSurplus, _ := flags.GetBool("surplus")
			liqFlag, _ := flags.GetString("liq")
			pivot, _ := flags.GetUint32("pivot-time")

			var liq *big.Int
			switch action {
			case "mint", "burn":
			case "burn-liq":
				var err error
				if liq, err = parseLiquidity(liqFlag); err != nil {
					return err
				}
			case "recover":
				if pivot == 0 {
					return fmt.Errorf("recover needs --pivot-time")
				}
			default:
				return fmt.Errorf("unknown knockout action %q", action)
			}

			return runOnline(cmd, func(ctx context.Context, s *session) error {
				sell, buy, err := s.resolvePair(ctx, args[1], args[2])
				if err != nil {
					return err
				}
				order, err := planner.PlanKnockout(s.planner, sell, buy, args[3], !inBuy, tick)
				if err != nil {
					return err
				}
				report := knockoutReport{Action: action, Order: order}

				switch action {
				case "mint":
					fail, err := order.WillMintFail(ctx)
					if err != nil {
						return err
					}
					report.WillMintFail = &fail
					if fail {
						s.logger.Warn("market already crossed the knockout range, the mint will revert")
					}
					report.Tx, err = order.Mint(ctx, useSurplus)
					if err != nil {
						return err
					}
					need := order.Qty
					if sell.IsNative() {
						need = report.Tx.Value
					}
					s.checkFunding(ctx, sell, need, report.Tx.To)
				case "burn":
					report.Tx, err = order.Burn(useSurplus)
				case "burn-liq":
					report.Tx, err = order.BurnLiq(liq, useSurplus)
				case "recover":
					report.Tx, err = order.Recover(pivot, useSurplus)
				}
				if err != nil {
					return err
				}
				pool := s.planner.PoolKey(order.Base.Address, order.Quote.Address)
				return s.record(ctx, model.PlanKindKnockout, pool, report.Tx, report)
			})
		},
	}
	flags := cmd.Flags()
	flags.Bool("qty-is-buy", false, "qty is the amount the order should receive")
	flags.Bool("surplus", false, "settle through dex surplus collateral")
	flags.String("liq", "", "liquidity to withdraw for burn-liq")
	flags.Uint32("pivot-time", 0, "pivot timestamp for recover")
	return cmd
}
