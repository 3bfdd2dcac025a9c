package sle

import (
	"encoding/binary"

	"github.com/LeJamon/offerd/internal/core/ledger/entry"
)

// Native is the native currency balance of an identity.
type Native struct {
	Balance uint64 `json:"balance,string"`
}

// Type implements Entry.
func (n *Native) Type() entry.Type { return entry.TypeNative }

// Payload implements Entry.
func (n *Native) Payload() []byte {
	return binary.LittleEndian.AppendUint64(nil, n.Balance)
}

// ParseNative decodes a stored native account.
func ParseNative(data []byte) (*Native, uint64, error) {
	s, err := decodeAs(data, entry.TypeNative)
	if err != nil {
		return nil, 0, err
	}
	r := &reader{buf: s.Payload}
	n := &Native{Balance: r.u64()}
	if err := r.done(); err != nil {
		return nil, 0, err
	}
	return n, s.Deposit, nil
}
