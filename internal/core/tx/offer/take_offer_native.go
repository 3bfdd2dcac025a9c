package offer

import (
	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	"github.com/LeJamon/offerd/internal/core/tx/transfer"
	"github.com/LeJamon/offerd/internal/types"
)

// TakeOfferWithNative settles an offer whose terms are paid in native
// currency.
type TakeOfferWithNative struct {
	// Taker settles the offer and must sign
	Taker types.Address `json:"taker"`

	// Maker is the recorded maker of the offer
	Maker types.Address `json:"maker"`

	// Offer is the offer address
	Offer types.Address `json:"offer"`

	// Vault is the offer's vault holding
	Vault types.Address `json:"vault"`

	// OfferedAssetKind is the asset in escrow
	OfferedAssetKind types.Address `json:"offered_asset_kind"`

	// TakerDestination is the taker's holding of the offered asset
	TakerDestination types.Address `json:"taker_destination"`
}

// NewTakeOfferWithNative creates a TakeOfferWithNative instruction for the
// offer with id.
func NewTakeOfferWithNative(taker, maker types.Address, id uint64, offeredAssetKind types.Address) *TakeOfferWithNative {
	offer, _ := keylet.Offer(id)
	takerDest, _ := keylet.Holding(taker, offeredAssetKind)
	return &TakeOfferWithNative{
		Taker:            taker,
		Maker:            maker,
		Offer:            offer.Key,
		Vault:            keylet.Vault(offer.Key, offeredAssetKind).Key,
		OfferedAssetKind: offeredAssetKind,
		TakerDestination: takerDest.Key,
	}
}

// TxType returns the instruction type
func (t *TakeOfferWithNative) TxType() tx.Type {
	return tx.TypeTakeOfferWithNative
}

// Encode implements tx.Instruction
func (t *TakeOfferWithNative) Encode() []byte {
	var w tx.Writer
	return w.Address(t.Taker).Address(t.Maker).Address(t.Offer).Address(t.Vault).
		Address(t.OfferedAssetKind).Address(t.TakerDestination).
		Bytes()
}

func decodeTakeOfferWithNative(body []byte) (tx.Instruction, error) {
	r := tx.NewReader(body)
	t := &TakeOfferWithNative{
		Taker:            r.Address(),
		Maker:            r.Address(),
		Offer:            r.Address(),
		Vault:            r.Address(),
		OfferedAssetKind: r.Address(),
		TakerDestination: r.Address(),
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate validates the TakeOfferWithNative instruction
func (t *TakeOfferWithNative) Validate() tx.Result {
	return tx.TesSUCCESS
}

// Apply applies the TakeOfferWithNative instruction
func (t *TakeOfferWithNative) Apply(ctx *tx.ApplyContext) tx.Result {
	o, r := readOffer(ctx, t.Offer)
	if !r.IsSuccess() {
		return r
	}
	if r := ctx.Authorize(tx.SignerAuthority(t.Taker)); !r.IsSuccess() {
		return r
	}
	if r := checkRecord(o, t.Offer, t.Maker, t.Vault, t.OfferedAssetKind); !r.IsSuccess() {
		return r
	}

	terms, ok := o.Terms.(sle.NativeTerms)
	if !ok {
		return tx.TecTERMS_MISMATCH
	}
	if r := checkOwner(ctx, t.TakerDestination, t.Taker, o.OfferedAssetKind); !r.IsSuccess() {
		return r
	}

	if r := transfer.TransferNative(ctx, t.Taker, o.Maker, terms.Quantity); !r.IsSuccess() {
		return r
	}
	return release(ctx, t.Offer, t.Vault, t.TakerDestination, o)
}
