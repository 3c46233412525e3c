package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"crocPlanner/internal/tickgrid"
)

// ErrUnsupportedChain is returned when no chain entry matches the requested id.
var ErrUnsupportedChain = errors.New("unsupported chain")

// DefaultRPCURL is the Monad testnet endpoint.
const DefaultRPCURL = "https://testnet-rpc.monad.xyz"

// ProxyPaths are the dex call path indices for each command family.
type ProxyPaths struct {
	Cold         uint16 `mapstructure:"cold"`
	Liq          uint16 `mapstructure:"liq"`
	Long         uint16 `mapstructure:"long"`
	Knockout     uint16 `mapstructure:"knockout"`
	DfltColdSwap bool   `mapstructure:"dflt-cold-swap"`
}

// DefaultProxyPaths matches the dex's standard proxy layout.
var DefaultProxyPaths = ProxyPaths{Cold: 3, Liq: 2, Long: 4, Knockout: 7}

// ChainSpec is the static per-chain deployment description.
type ChainSpec struct {
	ChainID   uint64
	Name      string
	RPCURL    string
	PoolIndex uint64
	GridSize  int32
	Proxy     ProxyPaths
	Dex       common.Address
	Query     common.Address
	Impact    common.Address
	Router    common.Address
}

// Grid returns the tick grid of the chain's standard pool type.
func (c ChainSpec) Grid() (tickgrid.Grid, error) {
	return tickgrid.NewGrid(c.GridSize)
}

type rawChain struct {
	ChainID   uint64     `mapstructure:"chain-id"`
	Name      string     `mapstructure:"name"`
	RPC       string     `mapstructure:"rpc"`
	PoolIndex uint64     `mapstructure:"pool-index"`
	GridSize  int32      `mapstructure:"grid-size"`
	Proxy     ProxyPaths `mapstructure:"proxy-paths"`
	Dex       string     `mapstructure:"dex"`
	Query     string     `mapstructure:"query"`
	Impact    string     `mapstructure:"impact"`
	Router    string     `mapstructure:"router"`
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	ChainID       uint64
	RPCURL        string
	Sender        string
	Journal       string
	PGDSN         string
	RetryAttempts uint
	RetryDelay    time.Duration
	LogLevel      string
	Chains        []ChainSpec
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CROCPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("chain-id", uint64(10143))
	v.SetDefault("retry-attempts", uint(3))
	v.SetDefault("retry-delay", 200*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var raws []rawChain
	if err := v.UnmarshalKey("chains", &raws); err != nil {
		return Config{}, fmt.Errorf("decode chains: %w", err)
	}
	chains, err := parseChains(raws)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ChainID:       v.GetUint64("chain-id"),
		RPCURL:        v.GetString("rpc"),
		Sender:        v.GetString("sender"),
		Journal:       v.GetString("journal"),
		PGDSN:         v.GetString("pg-dsn"),
		RetryAttempts: v.GetUint("retry-attempts"),
		RetryDelay:    v.GetDuration("retry-delay"),
		LogLevel:      v.GetString("log-level"),
		Chains:        chains,
	}

	return cfg, nil
}

// LookupChain finds the chain entry for id.
func (c Config) LookupChain(id uint64) (ChainSpec, error) {
	for _, chain := range c.Chains {
		if chain.ChainID == id {
			return chain, nil
		}
	}
	return ChainSpec{}, fmt.Errorf("chain %d: %w", id, ErrUnsupportedChain)
}

// ActiveChain returns the selected chain with the rpc flag applied over the
// chain table's endpoint.
func (c Config) ActiveChain() (ChainSpec, error) {
	chain, err := c.LookupChain(c.ChainID)
	if err != nil {
		return ChainSpec{}, err
	}
	if c.RPCURL != "" {
		chain.RPCURL = c.RPCURL
	}
	if chain.RPCURL == "" {
		chain.RPCURL = DefaultRPCURL
	}
	return chain, nil
}

func parseChains(raws []rawChain) ([]ChainSpec, error) {
	chains := make([]ChainSpec, 0, len(raws))
	seen := make(map[uint64]struct{}, len(raws))
	for _, raw := range raws {
		if raw.ChainID == 0 {
			return nil, fmt.Errorf("chain %q: missing chain-id", raw.Name)
		}
		if _, dup := seen[raw.ChainID]; dup {
			return nil, fmt.Errorf("chain %d: duplicate entry", raw.ChainID)
		}
		seen[raw.ChainID] = struct{}{}
		if raw.GridSize <= 0 {
			return nil, fmt.Errorf("chain %d: grid-size must be positive", raw.ChainID)
		}

		addrs, err := ParseAddresses([]string{raw.Dex, raw.Query, raw.Impact, raw.Router})
		if err != nil {
			return nil, fmt.Errorf("chain %d: %w", raw.ChainID, err)
		}

		proxy := raw.Proxy
		if proxy == (ProxyPaths{}) {
			proxy = DefaultProxyPaths
		}

		chains = append(chains, ChainSpec{
			ChainID:   raw.ChainID,
			Name:      raw.Name,
			RPCURL:    raw.RPC,
			PoolIndex: raw.PoolIndex,
			GridSize:  raw.GridSize,
			Proxy:     proxy,
			Dex:       addrs[0],
			Query:     addrs[1],
			Impact:    addrs[2],
			Router:    addrs[3],
		})
	}
	return chains, nil
}

// ParseAddresses converts string addresses into common.Address. Empty
// entries map to the zero address so positions are preserved.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			addresses = append(addresses, common.Address{})
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addresses = append(addresses, common.HexToAddress(input))
	}
	return addresses, nil
}

// ParseAddress converts a single required address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}
