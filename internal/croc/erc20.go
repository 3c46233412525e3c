package croc

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"crocPlanner/internal/token"
)

// TokenMeta is the ERC20 metadata a token view is resolved from.
type TokenMeta struct {
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
}

// View drops the name, which plans never carry.
func (m TokenMeta) View() token.View {
	return token.View{Address: m.Address, Decimals: m.Decimals, Symbol: m.Symbol}
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// Tokens resolves ERC20 metadata and balances. The native token is answered
// locally.
type Tokens struct {
	caller Caller
	retry  RetryPolicy
	cache  *TokenMetaCache
	logger *zap.Logger
}

func NewTokens(caller Caller, policy RetryPolicy, cache *TokenMetaCache, logger *zap.Logger) *Tokens {
	if cache == nil {
		cache = NewTokenMetaCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tokens{caller: caller, retry: policy, cache: cache, logger: logger}
}

// View returns a token view with decimals and symbol resolved.
func (t *Tokens) View(ctx context.Context, addr common.Address) (token.View, error) {
	if addr == token.NativeToken {
		return token.NativeView(), nil
	}
	meta, ok := t.cache.Get(addr)
	if !ok {
		var err error
		meta, err = t.FetchTokenMeta(ctx, addr)
		if err != nil {
			return token.View{}, err
		}
		t.cache.Set(addr, meta)
	}
	return meta.View(), nil
}

// FetchTokenMeta loads token metadata via ERC20 calls. Decimals are
// required; symbol and name fall back to bytes32 encodings.
func (t *Tokens) FetchTokenMeta(ctx context.Context, addr common.Address) (TokenMeta, error) {
	meta := TokenMeta{Address: addr}

	stringABI, err := erc20ABIString.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := callMethod(ctx, t.caller, t.retry, addr, stringABI, "decimals", nil)
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	if values, err := callMethod(ctx, t.caller, t.retry, addr, stringABI, "symbol", nil); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := callMethod(ctx, t.caller, t.retry, addr, bytes32ABI, "symbol", nil); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else {
		t.logger.Debug("symbol call failed", zap.String("token", addr.Hex()), zap.Error(err))
	}

	if values, err := callMethod(ctx, t.caller, t.retry, addr, stringABI, "name", nil); err == nil {
		if name, ok := values[0].(string); ok {
			meta.Name = name
		}
	} else if values, err := callMethod(ctx, t.caller, t.retry, addr, bytes32ABI, "name", nil); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			meta.Name = name
		}
	} else {
		t.logger.Debug("name call failed", zap.String("token", addr.Hex()), zap.Error(err))
	}

	return meta, nil
}

// BalanceOf returns owner's ERC20 balance of addr.
func (t *Tokens) BalanceOf(ctx context.Context, addr, owner common.Address) (*big.Int, error) {
	parsed, err := erc20ABIString.get()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := callMethod(ctx, t.caller, t.retry, addr, parsed, "balanceOf", nil, owner)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// Allowance returns how much spender may pull from owner.
func (t *Tokens) Allowance(ctx context.Context, addr, owner, spender common.Address) (*big.Int, error) {
	parsed, err := erc20ABIString.get()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := callMethod(ctx, t.caller, t.retry, addr, parsed, "allowance", nil, owner, spender)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// PackApprove encodes an ERC20 approval of amount to spender.
func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	parsed, err := erc20ABIString.get()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := parsed.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("pack approve: %w", err)
	}
	return data, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}
