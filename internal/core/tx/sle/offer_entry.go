package sle

import (
	"encoding/binary"
	"encoding/json"

	"github.com/LeJamon/offerd/internal/core/ledger/entry"
	"github.com/LeJamon/offerd/internal/types"
)

// Offer is an open escrow offer. Its vault is the holding of
// OfferedAssetKind owned by the offer address.
type Offer struct {
	ID               uint64
	Maker            types.Address
	OfferedAssetKind types.Address
	OfferedAmount    uint64
	Terms            PaymentTerms
	Bump             uint8
}

// Type implements Entry.
func (o *Offer) Type() entry.Type { return entry.TypeOffer }

// Payload implements Entry.
func (o *Offer) Payload() []byte {
	buf := make([]byte, 0, 8+32+32+8+1+32+8+1)
	buf = binary.LittleEndian.AppendUint64(buf, o.ID)
	buf = append(buf, o.Maker[:]...)
	buf = append(buf, o.OfferedAssetKind[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, o.OfferedAmount)
	buf = AppendPaymentTerms(buf, o.Terms)
	return append(buf, o.Bump)
}

// ParseOffer decodes a stored offer.
func ParseOffer(data []byte) (*Offer, uint64, error) {
	s, err := decodeAs(data, entry.TypeOffer)
	if err != nil {
		return nil, 0, err
	}
	r := &reader{buf: s.Payload}
	o := &Offer{
		ID:               r.u64(),
		Maker:            r.addr(),
		OfferedAssetKind: r.addr(),
		OfferedAmount:    r.u64(),
	}
	o.Terms = readPaymentTerms(r)
	o.Bump = r.u8()
	if err := r.done(); err != nil {
		return nil, 0, err
	}
	return o, s.Deposit, nil
}

type offerJSON struct {
	ID               uint64          `json:"id,string"`
	Maker            types.Address   `json:"maker"`
	OfferedAssetKind types.Address   `json:"offered_asset_kind"`
	OfferedAmount    uint64          `json:"offered_amount,string"`
	Terms            json.RawMessage `json:"payment_terms"`
	Bump             uint8           `json:"bump"`
}

// MarshalJSON implements json.Marshaler.
func (o Offer) MarshalJSON() ([]byte, error) {
	terms, err := json.Marshal(marshalTerms(o.Terms))
	if err != nil {
		return nil, err
	}
	return json.Marshal(offerJSON{
		ID:               o.ID,
		Maker:            o.Maker,
		OfferedAssetKind: o.OfferedAssetKind,
		OfferedAmount:    o.OfferedAmount,
		Terms:            terms,
		Bump:             o.Bump,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Offer) UnmarshalJSON(data []byte) error {
	var j offerJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	terms, err := UnmarshalPaymentTerms(j.Terms)
	if err != nil {
		return err
	}
	*o = Offer{
		ID:               j.ID,
		Maker:            j.Maker,
		OfferedAssetKind: j.OfferedAssetKind,
		OfferedAmount:    j.OfferedAmount,
		Terms:            terms,
		Bump:             j.Bump,
	}
	return nil
}
