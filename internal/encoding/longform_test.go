package encoding

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func wordAt(data []byte, idx int) *big.Int {
	return new(big.Int).SetBytes(data[idx*32 : (idx+1)*32])
}

func TestOrderDirectiveEncodeBytes(t *testing.T) {
	order := NewOrderDirective(testBase)
	order.AppendHop(testQuote)
	pool := order.AppendPool(420)
	order.AppendRangeBurn(-64, 64, big.NewInt(4096))
	pool.Chain.SwapDefer = true
	pool.Swap.RollType = RollSwapFrac
	pool.Swap.Qty = big.NewInt(7000)
	pool.Swap.IsBuy = true
	pool.Swap.InBaseQty = true
	order.AppendPool(420)
	mint := order.AppendAmbientMint(big.NewInt(0))
	mint.RollType = RollMintRemain

	data := order.EncodeBytes()
	if len(data)%32 != 0 {
		t.Fatalf("encoding not word aligned: %d", len(data))
	}

	// schema + open(4) + hop count + pool count + pool one + pool two + settle(4) + improve
	poolOne := 1 + 4 + 6 + 4 + 1
	poolTwo := 1 + 4 + 4 + 1
	want := 1 + 4 + 1 + 1 + poolOne + poolTwo + 4 + 1
	if len(data)/32 != want {
		t.Fatalf("word count: want=%d result=%d", want, len(data)/32)
	}

	if wordAt(data, 0).Int64() != 1 {
		t.Fatalf("schema mismatch")
	}
	if common.BytesToAddress(data[32:64]) != testBase {
		t.Fatalf("open token mismatch")
	}
	if wordAt(data, 2).Cmp(new(big.Int).Lsh(big.NewInt(1), 125)) != 0 {
		t.Fatalf("open limit mismatch: %s", wordAt(data, 2))
	}

	// First range tick is encoded in two's complement.
	lowTick := wordAt(data, 1+4+1+1+1+4)
	want256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(64))
	if lowTick.Cmp(want256) != 0 {
		t.Fatalf("negative tick encoding: %s", lowTick.Text(16))
	}
}

func TestOrderDirectiveBuilders(t *testing.T) {
	order := NewOrderDirective(testQuote)
	hop := order.AppendHop(testBase)
	order.AppendPool(36000)
	burn := order.AppendRangeBurn(10, 20, big.NewInt(-2048))

	if burn.IsAdd || burn.Liquidity.Int64() != 2048 {
		t.Fatalf("range burn mismatch: %+v", burn)
	}
	if len(hop.Pools) != 1 || len(hop.Pools[0].Passive.Concentrated) != 1 {
		t.Fatalf("pool structure mismatch")
	}
	if hop.Settlement.Token != testBase {
		t.Fatalf("hop settlement token mismatch")
	}
}
