package sle

import (
	"encoding/binary"

	"github.com/LeJamon/offerd/internal/core/ledger/entry"
	"github.com/LeJamon/offerd/internal/types"
)

// Holding is one owner's balance of one asset kind.
type Holding struct {
	AssetKind types.Address `json:"asset_kind"`
	Owner     types.Address `json:"owner"`
	Amount    uint64        `json:"amount,string"`
}

// Type implements Entry.
func (h *Holding) Type() entry.Type { return entry.TypeHolding }

// Payload implements Entry.
func (h *Holding) Payload() []byte {
	buf := make([]byte, 0, 72)
	buf = append(buf, h.AssetKind[:]...)
	buf = append(buf, h.Owner[:]...)
	return binary.LittleEndian.AppendUint64(buf, h.Amount)
}

// ParseHolding decodes a stored holding.
func ParseHolding(data []byte) (*Holding, uint64, error) {
	s, err := decodeAs(data, entry.TypeHolding)
	if err != nil {
		return nil, 0, err
	}
	r := &reader{buf: s.Payload}
	h := &Holding{AssetKind: r.addr(), Owner: r.addr(), Amount: r.u64()}
	if err := r.done(); err != nil {
		return nil, 0, err
	}
	return h, s.Deposit, nil
}
