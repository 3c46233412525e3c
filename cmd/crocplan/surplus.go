package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"crocPlanner/internal/config"
	"crocPlanner/internal/croc"
	"crocPlanner/internal/model"
	"crocPlanner/internal/planner"
	"crocPlanner/internal/token"
)

type surplusReport struct {
	Action    string         `json:"action"`
	Token     token.View     `json:"token"`
	Recipient common.Address `json:"recipient"`
	Qty       string         `json:"qty"`
	Balance   string         `json:"surplusBalance,omitempty"`
	Tx        planner.TxPlan `json:"tx"`
}

func newSurplusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "surplus <deposit|withdraw|transfer> <token> <qty>",
		Short: "Plan a surplus collateral deposit, withdrawal or transfer",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := args[0]
			switch action {
			case "deposit", "withdraw", "transfer":
			default:
				return fmt.Errorf("unknown surplus action %q", action)
			}
			toFlag, _ := cmd.Flags().GetString("to")

			return runOnline(cmd, func(ctx context.Context, s *session) error {
				recv := s.planner.Sender
				if toFlag != "" {
					addr, err := config.ParseAddress(toFlag)
					if err != nil {
						return fmt.Errorf("recipient: %w", err)
					}
					recv = addr
				}
				if recv == (common.Address{}) {
					return fmt.Errorf("surplus %s needs --to or --sender", action)
				}
				tok, err := s.resolveToken(ctx, args[1])
				if err != nil {
					return err
				}

				report := surplusReport{Action: action, Token: tok, Recipient: recv, Qty: args[2]}
				switch action {
				case "deposit":
					report.Tx, err = s.planner.DepositSurplus(recv, tok, args[2])
				case "withdraw":
					report.Tx, err = s.planner.WithdrawSurplus(recv, tok, args[2])
				case "transfer":
					report.Tx, err = s.planner.TransferSurplus(recv, tok, args[2])
				}
				if err != nil {
					return err
				}

				if s.planner.Sender != (common.Address{}) {
					balance, err := s.query.QuerySurplus(ctx, s.planner.Sender, tok.Address)
					if err != nil {
						return err
					}
					report.Balance = balance.String()
					if action != "deposit" {
						if need, err := tok.NormQty(args[2]); err == nil && balance.Cmp(need) < 0 {
							s.logger.Warn("surplus balance below the requested quantity")
						}
					}
				}
				if action == "deposit" {
					need, err := tok.NormQty(args[2])
					if err != nil {
						return err
					}
					s.checkFunding(ctx, tok, need, report.Tx.To)
				}

				pool := croc.PoolKey{Base: tok.Address}
				return s.record(ctx, model.PlanKindSurplus, pool, report.Tx, report)
			})
		},
	}
	cmd.Flags().String("to", "", "recipient of the surplus (defaults to --sender)")
	return cmd
}

type approveReport struct {
	Token   token.View     `json:"token"`
	Spender common.Address `json:"spender"`
	Amount  string         `json:"amount"`
	Current string         `json:"currentAllowance,omitempty"`
	Tx      planner.TxPlan `json:"tx"`
}

func newApproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve <token> [qty]",
		Short: "Plan an ERC20 approval of the dex",
		Long:  "Approves qty of the token, or the maximum the dex can pull when qty is omitted.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnline(cmd, func(ctx context.Context, s *session) error {
				tok, err := s.resolveToken(ctx, args[0])
				if err != nil {
					return err
				}
				var amount *big.Int
				if len(args) == 2 {
					if amount, err = tok.NormQty(args[1]); err != nil {
						return err
					}
				}
				tx, err := s.planner.Approve(tok, amount)
				if err != nil {
					return err
				}

				report := approveReport{Token: tok, Spender: s.chain.Dex, Tx: tx}
				report.Amount = "max"
				if amount != nil {
					report.Amount = amount.String()
				}
				if s.planner.Sender != (common.Address{}) {
					current, err := s.tokens.Allowance(ctx, tok.Address, s.planner.Sender, s.chain.Dex)
					if err != nil {
						return err
					}
					report.Current = current.String()
				}

				pool := croc.PoolKey{Base: tok.Address}
				return s.record(ctx, model.PlanKindApprove, pool, tx, report)
			})
		},
	}
	return cmd
}
