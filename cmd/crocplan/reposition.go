package main

import (
	"context"

	"github.com/spf13/cobra"

	"crocPlanner/internal/model"
	"crocPlanner/internal/planner"
)

type repositionReport struct {
	planner.RepositionPlan
	SwapOutput  string     `json:"swapOutput,omitempty"`
	PostBalance [2]float64 `json:"postBalance"`
}

func newRepositionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reposition <base> <quote>",
		Short: "Plan moving an out of range position in one order",
		Long:  "Burns the range given by --burn-lower/--burn-upper and re-mints into --lower/--upper, or ambient when no target range is given.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			liqFlag, _ := flags.GetString("liq")
			liq, err := parseLiquidity(liqFlag)
			if err != nil {
				return err
			}
			burnLower, _ := flags.GetInt32("burn-lower")
			burnUpper, _ := flags.GetInt32("burn-upper")
			impact, _ := flags.GetFloat64("impact")
			target := planner.RepositionTarget{Burn: planner.Range{burnLower, burnUpper}, Liquidity: liq}
			if rng, ok := readRange(flags); ok {
				target.Mint = &rng
			}

			return runOnline(cmd, func(ctx context.Context, s *session) error {
				pool, err := s.openPool(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				repo, err := planner.NewReposition(ctx, pool, target, impact)
				if err != nil {
					return err
				}
				s.observePool(ctx, pool.Key, repo.Snapshot())

				plan, err := repo.Plan()
				if err != nil {
					return err
				}
				report := repositionReport{RepositionPlan: plan}
				if report.SwapOutput, err = repo.SwapOutput(ctx); err != nil {
					return err
				}
				if report.PostBalance, err = repo.PostBalance(ctx); err != nil {
					return err
				}
				return s.record(ctx, model.PlanKindReposition, pool.Key, plan.Tx, report)
			})
		},
	}
	flags := cmd.Flags()
	flags.String("liq", "", "liquidity of the position to move")
	flags.Int32("burn-lower", 0, "lower tick of the current range")
	flags.Int32("burn-upper", 0, "upper tick of the current range")
	flags.Int32("lower", 0, "lower tick of the target range")
	flags.Int32("upper", 0, "upper tick of the target range")
	flags.Float64("impact", planner.DefaultRebalImpact, "price impact allowed on the swap leg")
	_ = cmd.MarkFlagRequired("liq")
	_ = cmd.MarkFlagRequired("burn-lower")
	_ = cmd.MarkFlagRequired("burn-upper")
	return cmd
}
