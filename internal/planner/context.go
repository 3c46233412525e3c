package planner

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"crocPlanner/internal/config"
	"crocPlanner/internal/croc"
	"crocPlanner/internal/tickgrid"
	"crocPlanner/internal/token"
)

var (
	// ErrPoolNotInitialized is returned when the pool has no spot price.
	ErrPoolNotInitialized = errors.New("pool not initialized")
	// ErrPositionInRange is returned when a reposition targets a position
	// that the market has not left.
	ErrPositionInRange = errors.New("position not out of range")
	// ErrInvalidImpact is returned when a simulated swap moves both tokens
	// in the same direction.
	ErrInvalidImpact = errors.New("invalid impact: base and quote flows have matching signs")
	// ErrRouterUnavailable is returned when a router swap is requested on a
	// chain without a router.
	ErrRouterUnavailable = errors.New("router not available on network")
)

// PoolQuerier reads live pool state. *croc.Query satisfies it.
type PoolQuerier interface {
	LatestBlock(ctx context.Context) (uint64, error)
	QueryPrice(ctx context.Context, pool croc.PoolKey, block *big.Int) (*big.Int, error)
	QueryCurveTick(ctx context.Context, pool croc.PoolKey, block *big.Int) (int32, error)
	QueryCurve(ctx context.Context, pool croc.PoolKey) (croc.CurveState, error)
	QuerySurplus(ctx context.Context, owner, token common.Address) (*big.Int, error)
}

// ImpactEstimator simulates swaps. *croc.Impact satisfies it.
type ImpactEstimator interface {
	CalcImpact(ctx context.Context, req croc.ImpactRequest) (croc.ImpactResult, error)
}

// SlotReader reads dex storage: the hot path flag and the proxy installed on
// each call path. *croc.SlotReader satisfies it.
type SlotReader interface {
	IsHotPathOpen(ctx context.Context) (bool, error)
	ProxyContract(ctx context.Context, idx uint16) (common.Address, error)
}

// Context is the resolved per-session planning context.
type Context struct {
	Chain  config.ChainSpec
	Grid   tickgrid.Grid
	Sender common.Address

	Pools  PoolQuerier
	Impact ImpactEstimator
	Slots  SlotReader
	Logger *zap.Logger
}

// NewContext validates the chain spec and binds the collaborators.
func NewContext(chain config.ChainSpec, sender common.Address, pools PoolQuerier, impact ImpactEstimator, slots SlotReader, logger *zap.Logger) (*Context, error) {
	grid, err := chain.Grid()
	if err != nil {
		return nil, fmt.Errorf("chain %d: %w", chain.ChainID, err)
	}
	if pools == nil {
		return nil, fmt.Errorf("pool querier is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{
		Chain:  chain,
		Grid:   grid,
		Sender: sender,
		Pools:  pools,
		Impact: impact,
		Slots:  slots,
		Logger: logger,
	}, nil
}

// PoolKey returns the key of the chain's standard pool for a sorted pair.
func (c *Context) PoolKey(base, quote common.Address) croc.PoolKey {
	return croc.PoolKey{Base: base, Quote: quote, PoolIdx: c.Chain.PoolIndex}
}

// MissingProxies lists the configured call paths that have no proxy
// installed on the dex. Plans routed to them would revert.
func (c *Context) MissingProxies(ctx context.Context) ([]uint16, error) {
	if c.Slots == nil {
		return nil, nil
	}
	var missing []uint16
	paths := c.Chain.Proxy
	for _, idx := range []uint16{paths.Cold, paths.Liq, paths.Long, paths.Knockout} {
		proxy, err := c.Slots.ProxyContract(ctx, idx)
		if err != nil {
			return nil, fmt.Errorf("proxy path %d: %w", idx, err)
		}
		if proxy == (common.Address{}) {
			missing = append(missing, idx)
		}
	}
	return missing, nil
}

// msgValOverSurplus returns how much of needed native token must be sent
// after the sender's surplus collateral is spent.
func (c *Context) msgValOverSurplus(ctx context.Context, needed *big.Int) (*big.Int, error) {
	if c.Sender == (common.Address{}) {
		c.Logger.Warn("no sender address known, assuming surplus covers message value")
		return new(big.Int), nil
	}
	surplus, err := c.Pools.QuerySurplus(ctx, c.Sender, token.NativeToken)
	if err != nil {
		return nil, fmt.Errorf("query surplus: %w", err)
	}
	return token.MsgValOverSurplus(needed, surplus), nil
}

// TxPlan is an unsigned dex call ready for submission.
type TxPlan struct {
	To       common.Address `json:"to"`
	Callpath uint16         `json:"callpath,omitempty"`
	Data     hexutil.Bytes  `json:"data"`
	Value    *big.Int       `json:"value"`
}

func (c *Context) userCmd(callpath uint16, cmd []byte, value *big.Int) (TxPlan, error) {
	data, err := croc.PackUserCmd(callpath, cmd)
	if err != nil {
		return TxPlan{}, err
	}
	if value == nil {
		value = new(big.Int)
	}
	return TxPlan{To: c.Chain.Dex, Callpath: callpath, Data: data, Value: value}, nil
}
