package sle

import (
	"encoding/binary"

	"github.com/LeJamon/offerd/internal/core/ledger/entry"
	"github.com/LeJamon/offerd/internal/types"
)

// AssetKind defines a fungible asset. Only Authority may mint it.
type AssetKind struct {
	Authority types.Address `json:"authority"`
	Supply    uint64        `json:"supply,string"`
	Decimals  uint8         `json:"decimals"`
}

// Type implements Entry.
func (a *AssetKind) Type() entry.Type { return entry.TypeAssetKind }

// Payload implements Entry.
func (a *AssetKind) Payload() []byte {
	buf := make([]byte, 0, 41)
	buf = append(buf, a.Authority[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, a.Supply)
	return append(buf, a.Decimals)
}

// ParseAssetKind decodes a stored asset kind.
func ParseAssetKind(data []byte) (*AssetKind, uint64, error) {
	s, err := decodeAs(data, entry.TypeAssetKind)
	if err != nil {
		return nil, 0, err
	}
	r := &reader{buf: s.Payload}
	a := &AssetKind{Authority: r.addr(), Supply: r.u64(), Decimals: r.u8()}
	if err := r.done(); err != nil {
		return nil, 0, err
	}
	return a, s.Deposit, nil
}
