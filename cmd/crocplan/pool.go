package main

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"crocPlanner/internal/model"
	"crocPlanner/internal/planner"
	"crocPlanner/internal/token"
)

func addLimitFlags(flags *pflag.FlagSet) {
	flags.Float64("limit-low", 0, "lowest display price the call may execute at")
	flags.Float64("limit-high", 1e300, "highest display price the call may execute at")
	flags.Bool("surplus", false, "settle both tokens through dex surplus collateral")
}

func readLimits(flags *pflag.FlagSet) (planner.Limits, planner.Surplus, error) {
	low, _ := flags.GetFloat64("limit-low")
	high, _ := flags.GetFloat64("limit-high")
	if low < 0 || high < 0 {
		return planner.Limits{}, planner.Surplus{}, fmt.Errorf("limits must not be negative")
	}
	if low > high {
		low, high = high, low
	}
	surplus, _ := flags.GetBool("surplus")
	return planner.Limits{low, high}, planner.UseSurplus(surplus), nil
}

func readRange(flags *pflag.FlagSet) (planner.Range, bool) {
	if !flags.Changed("lower") && !flags.Changed("upper") {
		return planner.Range{}, false
	}
	lower, _ := flags.GetInt32("lower")
	upper, _ := flags.GetInt32("upper")
	return planner.Range{lower, upper}, true
}

// readPriceRange reads a display price band for a range mint. Tick flags and
// price flags are mutually exclusive.
func readPriceRange(flags *pflag.FlagSet) (float64, float64, bool, error) {
	lowSet, highSet := flags.Changed("price-low"), flags.Changed("price-high")
	if !lowSet && !highSet {
		return 0, 0, false, nil
	}
	if !lowSet || !highSet {
		return 0, 0, false, fmt.Errorf("a price range needs both --price-low and --price-high")
	}
	if flags.Changed("lower") || flags.Changed("upper") {
		return 0, 0, false, fmt.Errorf("give the range as ticks or as prices, not both")
	}
	low, _ := flags.GetFloat64("price-low")
	high, _ := flags.GetFloat64("price-high")
	if low <= 0 || high <= 0 {
		return 0, 0, false, fmt.Errorf("range prices must be positive")
	}
	return low, high, true, nil
}

// mintNeeds is what the sender must fund per pool token. Native base is
// funded by the attached value, which already nets out surplus.
func mintNeeds(base token.View, plan planner.MintPlan) (*big.Int, *big.Int) {
	baseNeed := plan.BaseQty
	if base.IsNative() {
		baseNeed = plan.Tx.Value
	}
	return baseNeed, plan.QuoteQty
}

func parseLiquidity(input string) (*big.Int, error) {
	liq, err := token.ParseAtomic(input)
	if err != nil || liq.Sign() <= 0 {
		return nil, fmt.Errorf("liquidity must be a positive integer: %q", input)
	}
	return liq, nil
}

// openPool resolves a pair into a pool view oriented the way it was given.
func (s *session) openPool(ctx context.Context, base, quote string) (*planner.PoolView, error) {
	b, q, err := s.resolvePair(ctx, base, quote)
	if err != nil {
		return nil, err
	}
	return planner.NewPoolView(s.planner, b, q), nil
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <base> <quote> <display-price>",
		Short: "Plan the initialization of a pool",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := strconv.ParseFloat(args[2], 64)
			if err != nil || price <= 0 {
				return fmt.Errorf("init price must be positive: %q", args[2])
			}
			return runOnline(cmd, func(ctx context.Context, s *session) error {
				pool, err := s.openPool(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				live, err := pool.IsInit(ctx)
				if err != nil {
					return err
				}
				if live {
					s.logger.Warn("pool already initialized, the call will revert", zap.Uint64("pool_idx", pool.Key.PoolIdx))
				}
				tx, err := pool.InitPool(price)
				if err != nil {
					return err
				}
				s.checkFunding(ctx, pool.Base, tx.Value, tx.To)
				return s.record(ctx, model.PlanKindInit, pool.Key, tx, tx)
			})
		},
	}
}

func newMintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint <base> <quote> <qty>",
		Short: "Plan an ambient or range liquidity mint",
		Long:  "Mints ambient liquidity unless --lower and --upper give a tick range or --price-low and --price-high give a display price range.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			limits, surplus, err := readLimits(flags)
			if err != nil {
				return err
			}
			inQuote, _ := flags.GetBool("qty-in-quote")
			slippage, _ := flags.GetFloat64("floating-slippage")
			opts := planner.MintOpts{Surplus: surplus, FloatingSlippage: slippage}
			priceLow, priceHigh, byPrice, err := readPriceRange(flags)
			if err != nil {
				return err
			}
			rng, isRange := readRange(flags)

			return runOnline(cmd, func(ctx context.Context, s *session) error {
				pool, err := s.openPool(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if byPrice {
					if rng, err = pool.DisplayToRange(priceLow, priceHigh); err != nil {
						return err
					}
					isRange = true
				}

				var plan planner.MintPlan
				switch {
				case isRange && inQuote:
					plan, err = pool.MintRangeQuote(ctx, args[2], rng, limits, opts)
				case isRange:
					plan, err = pool.MintRangeBase(ctx, args[2], rng, limits, opts)
				case inQuote:
					plan, err = pool.MintAmbientQuote(ctx, args[2], limits, opts)
				default:
					plan, err = pool.MintAmbientBase(ctx, args[2], limits, opts)
				}
				if err != nil {
					return err
				}

				s.observePool(ctx, pool.Key, plan.Snapshot)

				baseNeed, quoteNeed := mintNeeds(pool.Base, plan)
				s.checkFunding(ctx, pool.Base, baseNeed, plan.Tx.To)
				s.checkFunding(ctx, pool.Quote, quoteNeed, plan.Tx.To)
				return s.record(ctx, model.PlanKindMint, pool.Key, plan.Tx, plan)
			})
		},
	}
	flags := cmd.Flags()
	flags.Bool("qty-in-quote", false, "qty is denominated in the quote token")
	flags.Int32("lower", 0, "lower tick of a range mint")
	flags.Int32("upper", 0, "upper tick of a range mint")
	flags.Float64("price-low", 0, "lower display price of a range mint")
	flags.Float64("price-high", 0, "upper display price of a range mint")
	flags.Float64("floating-slippage", 0, "extra price slippage allowed for range mints")
	addLimitFlags(flags)
	return cmd
}

type burnReport struct {
	Ambient bool            `json:"ambient"`
	Harvest bool            `json:"harvest,omitempty"`
	Range   *planner.Range  `json:"range,omitempty"`
	Liq     string          `json:"liq,omitempty"`
	Limits  planner.Limits  `json:"limits"`
	Surplus planner.Surplus `json:"surplus"`
	Tx      planner.TxPlan  `json:"tx"`
}

func newBurnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "burn <base> <quote>",
		Short: "Plan burning or harvesting a liquidity position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			limits, surplus, err := readLimits(flags)
			if err != nil {
				return err
			}
			rng, isRange := readRange(flags)
			harvest, _ := flags.GetBool("harvest")
			liqFlag, _ := flags.GetString("liq")
			if harvest && !isRange {
				return fmt.Errorf("harvest needs --lower and --upper")
			}
			var liq *big.Int
			if liqFlag != "" {
				if liq, err = parseLiquidity(liqFlag); err != nil {
					return err
				}
			} else if isRange && !harvest {
				return fmt.Errorf("range burns need --liq")
			}

			return runOnline(cmd, func(ctx context.Context, s *session) error {
				pool, err := s.openPool(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				report := burnReport{Ambient: !isRange, Harvest: harvest, Limits: limits, Surplus: surplus}
				if liq != nil {
					report.Liq = liq.String()
				}
				switch {
				case harvest:
					report.Range = &rng
					report.Tx, err = pool.HarvestRange(rng, limits, surplus)
				case isRange:
					report.Range = &rng
					report.Tx, err = pool.BurnRangeLiq(liq, rng, limits, surplus)
				case liq != nil:
					report.Tx, err = pool.BurnAmbientLiq(liq, limits, surplus)
				default:
					report.Tx, err = pool.BurnAmbientAll(limits, surplus)
				}
				if err != nil {
					return err
				}
				return s.record(ctx, model.PlanKindBurn, pool.Key, report.Tx, report)
			})
		},
	}
	flags := cmd.Flags()
	flags.String("liq", "", "liquidity to burn (ambient default burns everything)")
	flags.Int32("lower", 0, "lower tick of a range position")
	flags.Int32("upper", 0, "upper tick of a range position")
	flags.Bool("harvest", false, "collect range rewards without burning")
	addLimitFlags(flags)
	return cmd
}
