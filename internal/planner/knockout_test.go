package planner

import (
	"context"
	"math/big"
	"testing"

	"crocPlanner/internal/encoding"
	"crocPlanner/internal/fixedpoint"
	"crocPlanner/internal/tickgrid"
)

func TestPlanKnockoutBid(t *testing.T) {
	c, pools, _ := newTestContext(t)

	plan, err := PlanKnockout(c, testEth, testToken, "1", true, 100)
	if err != nil {
		t.Fatalf("plan knockout: %v", err)
	}
	if !plan.SellBase || !plan.QtyInBase || plan.Range != (Range{100, 104}) {
		t.Fatalf("bid layout mismatch: %+v", plan)
	}
	if plan.Qty.Cmp(wei(1)) != 0 {
		t.Fatalf("qty mismatch: %s", plan.Qty)
	}

	fail, err := plan.WillMintFail(context.Background())
	if err != nil {
		t.Fatalf("will mint fail: %v", err)
	}
	if fail {
		t.Fatalf("bid below the market should mint")
	}
	pools.tick = 50
	if fail, _ := plan.WillMintFail(context.Background()); !fail {
		t.Fatalf("bid above the market should fail")
	}

	tx, err := plan.Mint(context.Background(), false)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if tx.Value.Cmp(wei(1)) != 0 {
		t.Fatalf("native bid must attach value: %s", tx.Value)
	}
	path, cmd := unpackUserCmd(t, tx.Data)
	if path != c.Chain.Proxy.Knockout {
		t.Fatalf("callpath mismatch: %d", path)
	}
	if cmdWord(cmd, 0).Uint64() != uint64(encoding.KnockoutMint) || cmdWord(cmd, 4).Int64() != 100 || cmdWord(cmd, 5).Int64() != 104 {
		t.Fatalf("mint cmd mismatch: code=%s ticks=%s,%s", cmdWord(cmd, 0), cmdWord(cmd, 4), cmdWord(cmd, 5))
	}
	if cmdWord(cmd, 6).Uint64() != 1 {
		t.Fatalf("bid flag mismatch: %s", cmdWord(cmd, 6))
	}

	pools.surplus = big.NewInt(400_000_000_000_000_000)
	tx, err = plan.Mint(context.Background(), true)
	if err != nil {
		t.Fatalf("mint with surplus: %v", err)
	}
	if tx.Value.Cmp(big.NewInt(600_000_000_000_000_000)) != 0 {
		t.Fatalf("value over surplus mismatch: %s", tx.Value)
	}
}

func TestPlanKnockoutAsk(t *testing.T) {
	c, _, _ := newTestContext(t)

	plan, err := PlanKnockout(c, testToken, testEth, "1", true, 20000)
	if err != nil {
		t.Fatalf("plan knockout: %v", err)
	}
	if plan.SellBase || plan.Range != (Range{19996, 20000}) {
		t.Fatalf("ask layout mismatch: %+v", plan)
	}
	if fail, err := plan.WillMintFail(context.Background()); err != nil || fail {
		t.Fatalf("ask above the market should mint: %v %v", fail, err)
	}
	tx, err := plan.Mint(context.Background(), false)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if tx.Value.Sign() != 0 {
		t.Fatalf("ask carries no value: %s", tx.Value)
	}

	for name, build := range map[string]func() (TxPlan, error){
		"burn":     func() (TxPlan, error) { return plan.Burn(false) },
		"burn liq": func() (TxPlan, error) { return plan.BurnLiq(big.NewInt(5000), false) },
		"recover":  func() (TxPlan, error) { return plan.Recover(1_700_000_000, true) },
	} {
		tx, err := build()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		path, cmd := unpackUserCmd(t, tx.Data)
		if path != c.Chain.Proxy.Knockout || cmdWord(cmd, 6).Sign() != 0 {
			t.Fatalf("%s cmd mismatch: path=%d bid=%s", name, path, cmdWord(cmd, 6))
		}
	}
}

func TestPlanKnockoutInBuyQty(t *testing.T) {
	c, _, _ := newTestContext(t)

	plan, err := PlanKnockout(c, testEth, testToken, "1", false, 100)
	if err != nil {
		t.Fatalf("plan knockout: %v", err)
	}
	if !plan.QtyInBase {
		t.Fatalf("derived sell quantity of a bid is in base")
	}
	lower := fixedpoint.ToFloat(wei(1)) * tickgrid.TickToPrice(100)
	upper := fixedpoint.ToFloat(wei(1)) * tickgrid.TickToPrice(104) * 1.001
	if got := fixedpoint.ToFloat(plan.Qty); got < lower || got > upper {
		t.Fatalf("sell qty %v outside [%v, %v]", got, lower, upper)
	}
}
