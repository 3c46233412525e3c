package token

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestSortPair(t *testing.T) {
	dai := common.HexToAddress("0x4F96Fe3b7A6Cf9725f59d353F723c1bDb64CA6Aa")

	base, quote := SortPair(NativeToken, dai)
	if base != NativeToken || quote != dai {
		t.Fatalf("sorted pair mismatch: %s %s", base.Hex(), quote.Hex())
	}

	base, quote = SortPair(dai, NativeToken)
	if base != NativeToken || quote != dai {
		t.Fatalf("unsorted pair mismatch: %s %s", base.Hex(), quote.Hex())
	}
}

func TestSortViews(t *testing.T) {
	usdc := View{Address: common.HexToAddress("0xf817257fed379853cDe0fa4F97AB987181B1E5Ea"), Decimals: 6}
	weth := View{Address: common.HexToAddress("0xB5a30b0FDc5EA94A52fDc42e3E9760Cb8449Fb37"), Decimals: 18}

	base, quote := SortViews(usdc, weth)
	if base.Address != weth.Address || quote.Address != usdc.Address {
		t.Fatalf("views sorted wrong: %s %s", base.Address.Hex(), quote.Address.Hex())
	}
	if !NativeView().IsNative() || usdc.IsNative() {
		t.Fatalf("native detection mismatch")
	}
}
