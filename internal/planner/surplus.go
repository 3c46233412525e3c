package planner

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"crocPlanner/internal/croc"
	"crocPlanner/internal/encoding"
	"crocPlanner/internal/token"
)

// DepositSurplus moves qty of tok from the sender's wallet into recv's
// surplus collateral. Native deposits carry the quantity as value.
func (c *Context) DepositSurplus(recv common.Address, tok token.View, qty string) (TxPlan, error) {
	wei, err := tok.NormQty(qty)
	if err != nil {
		return TxPlan{}, err
	}
	cmd, err := encoding.EncodeSurplusOp(encoding.SurplusDeposit, recv, wei, tok.Address)
	if err != nil {
		return TxPlan{}, err
	}
	value := new(big.Int)
	if tok.IsNative() {
		value.Set(wei)
	}
	return c.userCmd(c.Chain.Proxy.Cold, cmd, value)
}

// WithdrawSurplus pays qty of tok out of the sender's surplus to recv.
func (c *Context) WithdrawSurplus(recv common.Address, tok token.View, qty string) (TxPlan, error) {
	return c.surplusOp(encoding.SurplusWithdraw, recv, tok, qty)
}

// TransferSurplus moves qty of tok between surplus accounts.
func (c *Context) TransferSurplus(recv common.Address, tok token.View, qty string) (TxPlan, error) {
	return c.surplusOp(encoding.SurplusTransfer, recv, tok, qty)
}

func (c *Context) surplusOp(code uint8, recv common.Address, tok token.View, qty string) (TxPlan, error) {
	wei, err := tok.NormQty(qty)
	if err != nil {
		return TxPlan{}, err
	}
	cmd, err := encoding.EncodeSurplusOp(code, recv, wei, tok.Address)
	if err != nil {
		return TxPlan{}, err
	}
	return c.userCmd(c.Chain.Proxy.Cold, cmd, nil)
}

// Approve plans an ERC20 approval of the dex. A nil amount approves the
// maximum the dex can ever pull.
func (c *Context) Approve(tok token.View, amount *big.Int) (TxPlan, error) {
	if tok.IsNative() {
		return TxPlan{}, fmt.Errorf("native token needs no approval")
	}
	if amount == nil {
		amount = new(big.Int).Set(encoding.MaxLiquidity)
	}
	data, err := croc.PackApprove(c.Chain.Dex, amount)
	if err != nil {
		return TxPlan{}, err
	}
	return TxPlan{To: tok.Address, Data: data, Value: new(big.Int)}, nil
}
