package planner

import (
	"context"
	"errors"
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"crocPlanner/internal/config"
	"crocPlanner/internal/croc"
	"crocPlanner/internal/encoding"
	"crocPlanner/internal/pricing"
	"crocPlanner/internal/token"
)

var (
	testDex    = common.HexToAddress("0x88B96aF200c8a9c35442C8AC6cd3D22695AaE4F0")
	testRouter = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testSender = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testToken  = token.View{Address: common.HexToAddress("0x4F96Fe3b7A6Cf9725f59d353F723c1bDb64CA6Aa"), Decimals: 18, Symbol: "TKN"}
	testStable = token.View{Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Decimals: 6, Symbol: "USDC"}
	testEth    = token.NativeView()
)

const testPoolIdx = 36000

type fakePools struct {
	sqrtPrice *big.Int
	tick      int32
	curve     croc.CurveState
	surplus   *big.Int
	err       error

	head   uint64
	mu     sync.Mutex
	blocks []*big.Int
}

func (f *fakePools) LatestBlock(context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakePools) readAt(block *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks = append(f.blocks, block)
}

func (f *fakePools) QueryPrice(_ context.Context, _ croc.PoolKey, block *big.Int) (*big.Int, error) {
	f.readAt(block)
	if f.err != nil {
		return nil, f.err
	}
	return new(big.Int).Set(f.sqrtPrice), nil
}

func (f *fakePools) QueryCurveTick(_ context.Context, _ croc.PoolKey, block *big.Int) (int32, error) {
	f.readAt(block)
	return f.tick, f.err
}

func (f *fakePools) QueryCurve(context.Context, croc.PoolKey) (croc.CurveState, error) {
	return f.curve, f.err
}

func (f *fakePools) QuerySurplus(_ context.Context, owner, tok common.Address) (*big.Int, error) {
	if f.surplus == nil {
		return new(big.Int), nil
	}
	return new(big.Int).Set(f.surplus), nil
}

type fakeImpact struct {
	result croc.ImpactResult
	last   croc.ImpactRequest
}

func (f *fakeImpact) CalcImpact(_ context.Context, req croc.ImpactRequest) (croc.ImpactResult, error) {
	f.last = req
	return f.result, nil
}

type fakeSlots struct {
	open    bool
	proxies map[uint16]common.Address
}

func (f fakeSlots) IsHotPathOpen(context.Context) (bool, error) {
	return f.open, nil
}

func (f fakeSlots) ProxyContract(_ context.Context, idx uint16) (common.Address, error) {
	return f.proxies[idx], nil
}

func testChain() config.ChainSpec {
	return config.ChainSpec{
		ChainID:   10143,
		Name:      "test",
		PoolIndex: testPoolIdx,
		GridSize:  4,
		Proxy:     config.DefaultProxyPaths,
		Dex:       testDex,
	}
}

// newTestContext prices the pool at 4.0 with the market tick just below it.
func newTestContext(t *testing.T) (*Context, *fakePools, *fakeImpact) {
	t.Helper()
	pools := &fakePools{
		sqrtPrice: mustEncode(t, 4),
		tick:      13862,
	}
	impact := &fakeImpact{}
	c, err := NewContext(testChain(), testSender, pools, impact, fakeSlots{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	return c, pools, impact
}

func mustEncode(t *testing.T, price float64) *big.Int {
	t.Helper()
	out, err := pricing.EncodeCrocPrice(price)
	if err != nil {
		t.Fatalf("encode price %v: %v", price, err)
	}
	return out
}

func wei(eth int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(eth), big.NewInt(1e18))
}

func unpackUserCmd(t *testing.T, data []byte) (uint16, []byte) {
	t.Helper()
	parsed, err := croc.DexABI()
	if err != nil {
		t.Fatalf("dex abi: %v", err)
	}
	method := parsed.Methods["userCmd"]
	if string(data[:4]) != string(method.ID) {
		t.Fatalf("selector mismatch: %x", data[:4])
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack userCmd: %v", err)
	}
	return values[0].(uint16), values[1].([]byte)
}

func cmdWord(cmd []byte, i int) *big.Int {
	return new(big.Int).SetBytes(cmd[i*32 : (i+1)*32])
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}

func TestNewContextRejectsBadGrid(t *testing.T) {
	chain := testChain()
	chain.GridSize = 0
	if _, err := NewContext(chain, testSender, &fakePools{}, nil, nil, nil); err == nil {
		t.Fatalf("expected grid error")
	}
	if _, err := NewContext(testChain(), testSender, nil, nil, nil, nil); err == nil {
		t.Fatalf("expected nil querier error")
	}
}

func TestTakeSnapshot(t *testing.T) {
	c, pools, _ := newTestContext(t)
	snap, err := TakeSnapshot(context.Background(), pools, c.PoolKey(testEth.Address, testToken.Address))
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !near(snap.Price, 4) || snap.Tick != 13862 {
		t.Fatalf("snapshot mismatch: %+v", snap)
	}

	pools.sqrtPrice = new(big.Int)
	if _, err := TakeSnapshot(context.Background(), pools, croc.PoolKey{}); !errors.Is(err, ErrPoolNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}

	pools.err = errors.New("rpc down")
	if _, err := TakeSnapshot(context.Background(), pools, croc.PoolKey{}); err == nil {
		t.Fatalf("expected query error")
	}
}

func TestTakeSnapshotPinsBlock(t *testing.T) {
	c, pools, _ := newTestContext(t)
	pools.head = 4521
	snap, err := TakeSnapshot(context.Background(), pools, c.PoolKey(testEth.Address, testToken.Address))
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Block != 4521 {
		t.Fatalf("snapshot block: %d", snap.Block)
	}
	if len(pools.blocks) != 2 {
		t.Fatalf("expected price and tick reads, got %d", len(pools.blocks))
	}
	for _, b := range pools.blocks {
		if b == nil || b.Uint64() != 4521 {
			t.Fatalf("read not pinned to head: %v", b)
		}
	}
}

func TestMissingProxies(t *testing.T) {
	c, _, _ := newTestContext(t)
	installed := common.HexToAddress("0x3333333333333333333333333333333333333333")
	c.Slots = fakeSlots{proxies: map[uint16]common.Address{
		c.Chain.Proxy.Cold: installed,
		c.Chain.Proxy.Liq:  installed,
		c.Chain.Proxy.Long: installed,
	}}
	missing, err := c.MissingProxies(context.Background())
	if err != nil {
		t.Fatalf("missing proxies: %v", err)
	}
	if len(missing) != 1 || missing[0] != c.Chain.Proxy.Knockout {
		t.Fatalf("expected knockout path missing, got %v", missing)
	}

	c.Slots = nil
	if missing, err := c.MissingProxies(context.Background()); err != nil || missing != nil {
		t.Fatalf("no slot reader: %v %v", missing, err)
	}
}

func TestMsgValOverSurplusWithoutSender(t *testing.T) {
	c, pools, _ := newTestContext(t)
	pools.surplus = big.NewInt(5)
	c.Sender = common.Address{}
	got, err := c.msgValOverSurplus(context.Background(), big.NewInt(100))
	if err != nil {
		t.Fatalf("msg val: %v", err)
	}
	if got.Sign() != 0 {
		t.Fatalf("expected zero value without sender, got %s", got)
	}

	c.Sender = testSender
	got, err = c.msgValOverSurplus(context.Background(), big.NewInt(100))
	if err != nil {
		t.Fatalf("msg val: %v", err)
	}
	if got.Int64() != 95 {
		t.Fatalf("expected 95, got %s", got)
	}
}

func TestDepositSurplus(t *testing.T) {
	c, _, _ := newTestContext(t)
	tx, err := c.DepositSurplus(testSender, testEth, "1.5")
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if tx.Value.Cmp(big.NewInt(1_500_000_000_000_000_000)) != 0 {
		t.Fatalf("value mismatch: %s", tx.Value)
	}
	path, cmd := unpackUserCmd(t, tx.Data)
	if path != config.DefaultProxyPaths.Cold {
		t.Fatalf("callpath mismatch: %d", path)
	}
	if cmdWord(cmd, 0).Uint64() != uint64(encoding.SurplusDeposit) {
		t.Fatalf("code mismatch: %s", cmdWord(cmd, 0))
	}

	tx, err = c.WithdrawSurplus(testSender, testToken, "2")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if tx.Value.Sign() != 0 {
		t.Fatalf("withdraw should carry no value")
	}
}

func TestApprove(t *testing.T) {
	c, _, _ := newTestContext(t)
	if _, err := c.Approve(testEth, nil); err == nil {
		t.Fatalf("expected native approval error")
	}
	tx, err := c.Approve(testToken, nil)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if tx.To != testToken.Address {
		t.Fatalf("approval must target the token, got %s", tx.To.Hex())
	}
	parsed, err := croc.ERC20ABI()
	if err != nil {
		t.Fatalf("erc20 abi: %v", err)
	}
	values, err := parsed.Methods["approve"].Inputs.Unpack(tx.Data[4:])
	if err != nil {
		t.Fatalf("unpack approve: %v", err)
	}
	if values[0].(common.Address) != testDex {
		t.Fatalf("spender mismatch: %v", values[0])
	}
	if values[1].(*big.Int).Cmp(encoding.MaxLiquidity) != 0 {
		t.Fatalf("amount mismatch: %v", values[1])
	}
}
