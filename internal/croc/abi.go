package croc

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const queryABIJSON = `[
  {"inputs": [{"name": "base", "type": "address"}, {"name": "quote", "type": "address"}, {"name": "poolIdx", "type": "uint256"}],
   "name": "queryPrice", "outputs": [{"name": "", "type": "uint128"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "base", "type": "address"}, {"name": "quote", "type": "address"}, {"name": "poolIdx", "type": "uint256"}],
   "name": "queryCurveTick", "outputs": [{"name": "", "type": "int24"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "base", "type": "address"}, {"name": "quote", "type": "address"}, {"name": "poolIdx", "type": "uint256"}],
   "name": "queryLiquidity", "outputs": [{"name": "", "type": "uint128"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "base", "type": "address"}, {"name": "quote", "type": "address"}, {"name": "poolIdx", "type": "uint256"}],
   "name": "queryCurve", "outputs": [
     {"name": "priceRoot", "type": "uint128"}, {"name": "ambientSeeds", "type": "uint128"}, {"name": "concLiq", "type": "uint128"},
     {"name": "seedDeflator", "type": "uint64"}, {"name": "concGrowth", "type": "uint64"}],
   "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}, {"name": "token", "type": "address"}],
   "name": "querySurplus", "outputs": [{"name": "surplus", "type": "uint128"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}, {"name": "base", "type": "address"}, {"name": "quote", "type": "address"},
     {"name": "poolIdx", "type": "uint256"}, {"name": "lowerTick", "type": "int24"}, {"name": "upperTick", "type": "int24"}],
   "name": "queryRangePosition", "outputs": [
     {"name": "liq", "type": "uint128"}, {"name": "fee", "type": "uint64"}, {"name": "timestamp", "type": "uint32"}, {"name": "atomic", "type": "bool"}],
   "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}, {"name": "base", "type": "address"}, {"name": "quote", "type": "address"},
     {"name": "poolIdx", "type": "uint256"}, {"name": "lowerTick", "type": "int24"}, {"name": "upperTick", "type": "int24"}],
   "name": "queryRangeTokens", "outputs": [
     {"name": "liq", "type": "uint128"}, {"name": "baseQty", "type": "uint128"}, {"name": "quoteQty", "type": "uint128"}],
   "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}, {"name": "base", "type": "address"}, {"name": "quote", "type": "address"},
     {"name": "poolIdx", "type": "uint256"}],
   "name": "queryAmbientTokens", "outputs": [
     {"name": "liq", "type": "uint128"}, {"name": "baseQty", "type": "uint128"}, {"name": "quoteQty", "type": "uint128"}],
   "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "base", "type": "address"}, {"name": "quote", "type": "address"}, {"name": "poolIdx", "type": "uint256"},
     {"name": "isBid", "type": "bool"}, {"name": "tick", "type": "int24"}],
   "name": "queryKnockoutPivot", "outputs": [
     {"name": "lots", "type": "uint96"}, {"name": "pivot", "type": "uint32"}, {"name": "range", "type": "uint16"}],
   "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}, {"name": "base", "type": "address"}, {"name": "quote", "type": "address"},
     {"name": "poolIdx", "type": "uint256"}, {"name": "pivot", "type": "uint32"}, {"name": "isBid", "type": "bool"},
     {"name": "lowerTick", "type": "int24"}, {"name": "upperTick", "type": "int24"}],
   "name": "queryKnockoutTokens", "outputs": [
     {"name": "liq", "type": "uint128"}, {"name": "baseQty", "type": "uint128"}, {"name": "quoteQty", "type": "uint128"}, {"name": "knockedOut", "type": "bool"}],
   "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}, {"name": "base", "type": "address"}, {"name": "quote", "type": "address"},
     {"name": "poolIdx", "type": "uint256"}, {"name": "lowerTick", "type": "int24"}, {"name": "upperTick", "type": "int24"}],
   "name": "queryConcRewards", "outputs": [
     {"name": "liqRewards", "type": "uint128"}, {"name": "baseRewards", "type": "uint128"}, {"name": "quoteRewards", "type": "uint128"}],
   "stateMutability": "view", "type": "function"}
]`

const impactABIJSON = `[
  {"inputs": [{"name": "base", "type": "address"}, {"name": "quote", "type": "address"}, {"name": "poolIdx", "type": "uint256"},
     {"name": "isBuy", "type": "bool"}, {"name": "inBaseQty", "type": "bool"}, {"name": "qty", "type": "uint128"},
     {"name": "poolTip", "type": "uint16"}, {"name": "limitPrice", "type": "uint128"}],
   "name": "calcImpact", "outputs": [
     {"name": "baseFlow", "type": "int128"}, {"name": "quoteFlow", "type": "int128"}, {"name": "finalPrice", "type": "uint128"}],
   "stateMutability": "view", "type": "function"}
]`

const dexABIJSON = `[
  {"inputs": [{"name": "callpath", "type": "uint16"}, {"name": "cmd", "type": "bytes"}],
   "name": "userCmd", "outputs": [{"name": "", "type": "bytes"}], "stateMutability": "payable", "type": "function"},
  {"inputs": [{"name": "base", "type": "address"}, {"name": "quote", "type": "address"}, {"name": "poolIdx", "type": "uint256"},
     {"name": "isBuy", "type": "bool"}, {"name": "inBaseQty", "type": "bool"}, {"name": "qty", "type": "uint128"},
     {"name": "tip", "type": "uint16"}, {"name": "limitPrice", "type": "uint128"}, {"name": "minOut", "type": "uint128"},
     {"name": "reserveFlags", "type": "uint8"}],
   "name": "swap", "outputs": [{"name": "baseFlow", "type": "int128"}, {"name": "quoteFlow", "type": "int128"}],
   "stateMutability": "payable", "type": "function"}
]`

const erc20ABIStringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}, {"name": "spender", "type": "address"}], "name": "allowance", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "spender", "type": "address"}, {"name": "amount", "type": "uint256"}], "name": "approve", "outputs": [{"type": "bool"}], "stateMutability": "nonpayable", "type": "function"}
]`

const erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

type lazyABI struct {
	once   sync.Once
	json   string
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.json))
	})
	return l.parsed, l.err
}

var (
	queryABI        = &lazyABI{json: queryABIJSON}
	impactABI       = &lazyABI{json: impactABIJSON}
	dexABI          = &lazyABI{json: dexABIJSON}
	erc20ABIString  = &lazyABI{json: erc20ABIStringJSON}
	erc20ABIBytes32 = &lazyABI{json: erc20ABIBytes32JSON}
)

// QueryABI returns the parsed query contract ABI.
func QueryABI() (abi.ABI, error) { return queryABI.get() }

// ImpactABI returns the parsed impact contract ABI.
func ImpactABI() (abi.ABI, error) { return impactABI.get() }

// DexABI returns the parsed dex entry point ABI.
func DexABI() (abi.ABI, error) { return dexABI.get() }

// ERC20ABI returns the parsed ERC20 ABI with string metadata.
func ERC20ABI() (abi.ABI, error) { return erc20ABIString.get() }
