package sle

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/LeJamon/offerd/internal/types"
)

// Payment terms wire tags
const (
	TermsTagAsset  uint8 = 0
	TermsTagNative uint8 = 1
)

// PaymentTerms is what a taker must deliver to settle an offer.
// It is either AssetTerms or NativeTerms.
type PaymentTerms interface {
	// Amount is the quantity the taker pays.
	Amount() uint64
	// Tag is the wire discriminant.
	Tag() uint8
	isPaymentTerms()
}

// AssetTerms requires Quantity units of AssetKind.
type AssetTerms struct {
	AssetKind types.Address
	Quantity  uint64
}

// NativeTerms requires Quantity units of native currency.
type NativeTerms struct {
	Quantity uint64
}

func (t AssetTerms) Amount() uint64  { return t.Quantity }
func (t AssetTerms) Tag() uint8      { return TermsTagAsset }
func (AssetTerms) isPaymentTerms()   {}
func (t NativeTerms) Amount() uint64 { return t.Quantity }
func (t NativeTerms) Tag() uint8     { return TermsTagNative }
func (NativeTerms) isPaymentTerms()  {}

// AppendPaymentTerms appends the wire form of t to buf. Nil terms append
// nothing, so the result does not decode.
func AppendPaymentTerms(buf []byte, t PaymentTerms) []byte {
	switch v := t.(type) {
	case AssetTerms:
		buf = append(buf, TermsTagAsset)
		buf = append(buf, v.AssetKind[:]...)
		return binary.LittleEndian.AppendUint64(buf, v.Quantity)
	case NativeTerms:
		buf = append(buf, TermsTagNative)
		return binary.LittleEndian.AppendUint64(buf, v.Quantity)
	default:
		return buf
	}
}

func readPaymentTerms(r *reader) PaymentTerms {
	switch tag := r.u8(); {
	case r.err != nil:
		return nil
	case tag == TermsTagAsset:
		asset := r.addr()
		return AssetTerms{AssetKind: asset, Quantity: r.u64()}
	case tag == TermsTagNative:
		return NativeTerms{Quantity: r.u64()}
	default:
		r.err = fmt.Errorf("%w: unknown payment terms tag %d", ErrMalformed, tag)
		return nil
	}
}

// DecodePaymentTerms parses a complete wire-form payment terms value.
func DecodePaymentTerms(b []byte) (PaymentTerms, error) {
	r := &reader{buf: b}
	t := readPaymentTerms(r)
	if err := r.done(); err != nil {
		return nil, err
	}
	return t, nil
}

// termsJSON is the external JSON shape of payment terms.
type termsJSON struct {
	Kind      string         `json:"kind"`
	AssetKind *types.Address `json:"asset_kind,omitempty"`
	Amount    uint64         `json:"amount,string"`
}

func marshalTerms(t PaymentTerms) termsJSON {
	switch v := t.(type) {
	case AssetTerms:
		asset := v.AssetKind
		return termsJSON{Kind: "asset", AssetKind: &asset, Amount: v.Quantity}
	case NativeTerms:
		return termsJSON{Kind: "native", Amount: v.Quantity}
	}
	return termsJSON{}
}

func (j termsJSON) terms() (PaymentTerms, error) {
	switch j.Kind {
	case "asset":
		if j.AssetKind == nil {
			return nil, fmt.Errorf("%w: asset terms without asset_kind", ErrMalformed)
		}
		return AssetTerms{AssetKind: *j.AssetKind, Quantity: j.Amount}, nil
	case "native":
		return NativeTerms{Quantity: j.Amount}, nil
	}
	return nil, fmt.Errorf("%w: unknown payment terms kind %q", ErrMalformed, j.Kind)
}

// MarshalJSON implements json.Marshaler.
func (t AssetTerms) MarshalJSON() ([]byte, error) { return json.Marshal(marshalTerms(t)) }

// MarshalJSON implements json.Marshaler.
func (t NativeTerms) MarshalJSON() ([]byte, error) { return json.Marshal(marshalTerms(t)) }

// UnmarshalPaymentTerms parses the JSON form produced by MarshalJSON.
func UnmarshalPaymentTerms(data []byte) (PaymentTerms, error) {
	var j termsJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, err
	}
	return j.terms()
}
