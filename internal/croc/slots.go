package croc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	hotPathSlot    = 0
	proxySlotStart = 1
	// hotOpenBit is the bit of slot zero that enables the hot swap path.
	hotOpenBit = 8*22 - 1
)

// SlotReader decodes dex settings directly from contract storage.
type SlotReader struct {
	storage StorageReader
	dex     common.Address
}

func NewSlotReader(storage StorageReader, dex common.Address) *SlotReader {
	return &SlotReader{storage: storage, dex: dex}
}

func (r *SlotReader) readSlot(ctx context.Context, slot uint64) (*uint256.Int, error) {
	if r.storage == nil {
		return nil, fmt.Errorf("storage reader is nil")
	}
	key := common.BigToHash(new(big.Int).SetUint64(slot))
	raw, err := r.storage.StorageAt(ctx, r.dex, key, nil)
	if err != nil {
		return nil, fmt.Errorf("read slot %d: %w", slot, err)
	}
	return new(uint256.Int).SetBytes(raw), nil
}

// IsHotPathOpen reports whether swaps may use the direct hot path.
func (r *SlotReader) IsHotPathOpen(ctx context.Context) (bool, error) {
	word, err := r.readSlot(ctx, hotPathSlot)
	if err != nil {
		return false, err
	}
	return HotPathOpen(word), nil
}

// HotPathOpen extracts the hot path flag from the raw slot zero word.
func HotPathOpen(word *uint256.Int) bool {
	shifted := new(uint256.Int).Lsh(word, 8*(32-22))
	return !shifted.Rsh(shifted, 255).IsZero()
}

// ProxyContract returns the proxy registered on the given call path.
func (r *SlotReader) ProxyContract(ctx context.Context, idx uint16) (common.Address, error) {
	word, err := r.readSlot(ctx, proxySlotStart+uint64(idx))
	if err != nil {
		return common.Address{}, err
	}
	return common.Address(word.Bytes20()), nil
}
