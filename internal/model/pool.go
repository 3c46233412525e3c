package model

import "time"

// Pool is the state of a pool as last observed while planning.
type Pool struct {
	ChainID    uint64    `json:"chain_id"`
	Base       string    `json:"base"`
	Quote      string    `json:"quote"`
	PoolIdx    uint64    `json:"pool_idx"`
	GridSize   int32     `json:"grid_size"`
	SqrtPrice  string    `json:"sqrt_price"`
	Tick       int32     `json:"tick"`
	ObservedAt time.Time `json:"observed_at"`
}
