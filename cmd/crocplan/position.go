package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"crocPlanner/internal/config"
	"crocPlanner/internal/croc"
	"crocPlanner/internal/planner"
)

type positionReport struct {
	Kind     string               `json:"kind"`
	Owner    common.Address       `json:"owner"`
	Pool     croc.PoolKey         `json:"pool"`
	Block    uint64               `json:"block"`
	Spot     float64              `json:"displayPrice"`
	Range    *planner.Range       `json:"range,omitempty"`
	Position *croc.RangePosition  `json:"position,omitempty"`
	Tokens   *croc.PositionTokens `json:"tokens,omitempty"`
	Growth   float64              `json:"ambientGrowth,omitempty"`
	Rewards  *croc.PositionTokens `json:"rewards,omitempty"`
	Pivot    *croc.KnockoutPivot  `json:"pivot,omitempty"`
	Knockout *croc.KnockoutTokens `json:"knockout,omitempty"`
}

func newPositionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "position <range|ambient|knockout> <base> <quote>",
		Short: "Query a liquidity position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			switch kind {
			case "range", "ambient", "knockout":
			default:
				return fmt.Errorf("unknown position kind %q", kind)
			}
			flags := cmd.Flags()
			ownerFlag, _ := flags.GetString("owner")
			block, _ := flags.GetUint64("block")
			bid, _ := flags.GetBool("bid")
			rng, isRange := readRange(flags)
			if kind != "ambient" && !isRange {
				return fmt.Errorf("%s positions need --lower and --upper", kind)
			}

			return runOnline(cmd, func(ctx context.Context, s *session) error {
				owner := s.planner.Sender
				if ownerFlag != "" {
					addr, err := config.ParseAddress(ownerFlag)
					if err != nil {
						return fmt.Errorf("owner: %w", err)
					}
					owner = addr
				}
				if owner == (common.Address{}) {
					return fmt.Errorf("position queries need --owner or --sender")
				}

				pool, err := s.openPool(ctx, args[1], args[2])
				if err != nil {
					return err
				}
				if block == 0 {
					if block, err = s.client.LatestBlockNumber(ctx); err != nil {
						return err
					}
				}
				at := parseBlock(block)

				report := positionReport{Kind: kind, Owner: owner, Pool: pool.Key, Block: block}
				if report.Spot, err = pool.DisplayPrice(ctx); err != nil {
					return err
				}

				switch kind {
				case "ambient":
					tokens, err := s.query.QueryAmbientTokens(ctx, owner, pool.Key, at)
					if err != nil {
						return err
					}
					report.Tokens = &tokens
					if report.Growth, err = pool.CumAmbientGrowth(ctx); err != nil {
						return err
					}
				case "range":
					report.Range = &rng
					pos, err := s.query.QueryRangePosition(ctx, owner, pool.Key, rng[0], rng[1], at)
					if err != nil {
						return err
					}
					tokens, err := s.query.QueryRangeTokens(ctx, owner, pool.Key, rng[0], rng[1], at)
					if err != nil {
						return err
					}
					rewards, err := s.query.QueryConcRewards(ctx, owner, pool.Key, rng[0], rng[1], at)
					if err != nil {
						return err
					}
					report.Position, report.Tokens, report.Rewards = &pos, &tokens, &rewards
				case "knockout":
					report.Range = &rng
					pivotTick := rng[0]
					if !bid {
						pivotTick = rng[1]
					}
					pivot, err := s.query.QueryKnockoutPivot(ctx, pool.Key, bid, pivotTick, at)
					if err != nil {
						return err
					}
					tokens, err := s.query.QueryKnockoutTokens(ctx, owner, pool.Key, bid, rng[0], rng[1], at)
					if err != nil {
						return err
					}
					report.Pivot, report.Knockout = &pivot, &tokens
				}
				return emit(s.out, report)
			})
		},
	}
	flags := cmd.Flags()
	flags.String("owner", "", "position owner (defaults to --sender)")
	flags.Uint64("block", 0, "block to query (0 is latest)")
	flags.Int32("lower", 0, "lower tick")
	flags.Int32("upper", 0, "upper tick")
	flags.Bool("bid", true, "knockout order is a bid")
	return cmd
}
