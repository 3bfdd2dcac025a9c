package offer

import (
	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	"github.com/LeJamon/offerd/internal/core/tx/transfer"
	"github.com/LeJamon/offerd/internal/types"
)

// TakeOffer settles an offer whose terms are paid in an asset. The taker
// pays the maker, receives the whole vault, and the offer closes.
type TakeOffer struct {
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

	// PaymentAssetKind is the asset the terms require
	PaymentAssetKind types.Address `json:"payment_asset_kind"`

	// TakerSource is the taker's holding of the payment asset
	TakerSource types.Address `json:"taker_source"`

	// TakerDestination is the taker's holding of the offered asset
	TakerDestination types.Address `json:"taker_destination"`

	// MakerDestination is the maker's holding of the payment asset
	MakerDestination types.Address `json:"maker_destination"`
}

// NewTakeOffer creates a TakeOffer instruction for the offer with id,
// deriving every holding from the parties and asset kinds.
func NewTakeOffer(taker, maker types.Address, id uint64, offeredAssetKind, paymentAssetKind types.Address) *TakeOffer {
	offer, _ := keylet.Offer(id)
	takerSource, _ := keylet.Holding(taker, paymentAssetKind)
	takerDest, _ := keylet.Holding(taker, offeredAssetKind)
	makerDest, _ := keylet.Holding(maker, paymentAssetKind)
	return &TakeOffer{
		Taker:            taker,
		Maker:            maker,
		Offer:            offer.Key,
		Vault:            keylet.Vault(offer.Key, offeredAssetKind).Key,
		OfferedAssetKind: offeredAssetKind,
		PaymentAssetKind: paymentAssetKind,
		TakerSource:      takerSource.Key,
		TakerDestination: takerDest.Key,
		MakerDestination: makerDest.Key,
	}
}

// TxType returns the instruction type
func (t *TakeOffer) TxType() tx.Type {
	return tx.TypeTakeOffer
}

// Encode implements tx.Instruction
func (t *TakeOffer) Encode() []byte {
	var w tx.Writer
	return w.Address(t.Taker).Address(t.Maker).Address(t.Offer).Address(t.Vault).
		Address(t.OfferedAssetKind).Address(t.PaymentAssetKind).
		Address(t.TakerSource).Address(t.TakerDestination).Address(t.MakerDestination).
		Bytes()
}

func decodeTakeOffer(body []byte) (tx.Instruction, error) {
	r := tx.NewReader(body)
	t := &TakeOffer{
		Taker:            r.Address(),
		Maker:            r.Address(),
		Offer:            r.Address(),
		Vault:            r.Address(),
		OfferedAssetKind: r.Address(),
		PaymentAssetKind: r.Address(),
		TakerSource:      r.Address(),
		TakerDestination: r.Address(),
		MakerDestination: r.Address(),
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate validates the TakeOffer instruction
func (t *TakeOffer) Validate() tx.Result {
	if t.OfferedAssetKind == t.PaymentAssetKind {
		return tx.TemSAME_ASSET
	}
	return tx.TesSUCCESS
}

// Apply applies the TakeOffer instruction
func (t *TakeOffer) Apply(ctx *tx.ApplyContext) tx.Result {
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

	terms, ok := o.Terms.(sle.AssetTerms)
	if !ok {
		return tx.TecTERMS_MISMATCH
	}
	if terms.AssetKind != t.PaymentAssetKind {
		return tx.TecACCOUNT_MISMATCH
	}
	if r := checkOwner(ctx, t.MakerDestination, o.Maker, terms.AssetKind); !r.IsSuccess() {
		return r
	}
	if r := checkOwner(ctx, t.TakerDestination, t.Taker, o.OfferedAssetKind); !r.IsSuccess() {
		return r
	}

	if r := transfer.TransferAsset(ctx, t.TakerSource, t.MakerDestination, terms.AssetKind, terms.Quantity, tx.SignerAuthority(t.Taker)); !r.IsSuccess() {
		return r
	}
	return release(ctx, t.Offer, t.Vault, t.TakerDestination, o)
}
