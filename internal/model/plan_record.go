package model

import (
	"encoding/json"
	"time"
)

// Plan kinds recorded in the journal.
const (
	PlanKindSwap       = "swap"
	PlanKindMint       = "mint"
	PlanKindBurn       = "burn"
	PlanKindKnockout   = "knockout"
	PlanKindReposition = "reposition"
	PlanKindSurplus    = "surplus"
	PlanKindApprove    = "approve"
	PlanKindInit       = "init"
)

// PlanRecord is one planned transaction as stored in the journal.
type PlanRecord struct {
	ChainID   uint64          `json:"chain_id"`
	Kind      string          `json:"kind"`
	Base      string          `json:"base"`
	Quote     string          `json:"quote"`
	PoolIdx   uint64          `json:"pool_idx"`
	Sender    string          `json:"sender,omitempty"`
	To        string          `json:"to"`
	Value     string          `json:"value"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
}

// NewPlanRecord serializes plan as the record payload.
func NewPlanRecord(kind string, chainID uint64, plan interface{}, now time.Time) (PlanRecord, error) {
	payload, err := json.Marshal(plan)
	if err != nil {
		return PlanRecord{}, err
	}
	return PlanRecord{
		ChainID:   chainID,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: now.UTC().Format(time.RFC3339),
	}, nil
}

// MarshalJSON ensures PlanRecord is encoded with stable field names.
func (pr PlanRecord) MarshalJSON() ([]byte, error) {
	type Alias PlanRecord
	return json.Marshal(Alias(pr))
}

// UnmarshalJSON decodes a PlanRecord from JSON.
func (pr *PlanRecord) UnmarshalJSON(data []byte) error {
	type Alias PlanRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*pr = PlanRecord(a)
	return nil
}
