package offer

import (
	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/types"
)

// RefundOffer cancels an open offer and returns the vault to the maker.
// Only the recorded maker may refund.
type RefundOffer struct {
	// Maker must be the recorded maker and must sign
	Maker types.Address `json:"maker"`

	// Offer is the offer address
	Offer types.Address `json:"offer"`

	// Vault is the offer's vault holding
	Vault types.Address `json:"vault"`

	// OfferedAssetKind is the asset in escrow
	OfferedAssetKind types.Address `json:"offered_asset_kind"`

	// MakerDestination is the maker's holding of the offered asset
	MakerDestination types.Address `json:"maker_destination"`
}

// NewRefundOffer creates a RefundOffer instruction for the offer with id.
func NewRefundOffer(maker types.Address, id uint64, offeredAssetKind types.Address) *RefundOffer {
	offer, _ := keylet.Offer(id)
	dest, _ := keylet.Holding(maker, offeredAssetKind)
	return &RefundOffer{
		Maker:            maker,
		Offer:            offer.Key,
		Vault:            keylet.Vault(offer.Key, offeredAssetKind).Key,
		OfferedAssetKind: offeredAssetKind,
		MakerDestination: dest.Key,
	}
}

// TxType returns the instruction type
func (r *RefundOffer) TxType() tx.Type {
	return tx.TypeRefundOffer
}

// Encode implements tx.Instruction
func (r *RefundOffer) Encode() []byte {
	var w tx.Writer
	return w.Address(r.Maker).Address(r.Offer).Address(r.Vault).
		Address(r.OfferedAssetKind).Address(r.MakerDestination).
		Bytes()
}

func decodeRefundOffer(body []byte) (tx.Instruction, error) {
	rd := tx.NewReader(body)
	r := &RefundOffer{
		Maker:            rd.Address(),
		Offer:            rd.Address(),
		Vault:            rd.Address(),
		OfferedAssetKind: rd.Address(),
		MakerDestination: rd.Address(),
	}
	if err := rd.Done(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate validates the RefundOffer instruction
func (r *RefundOffer) Validate() tx.Result {
	return tx.TesSUCCESS
}

// Apply applies the RefundOffer instruction
func (r *RefundOffer) Apply(ctx *tx.ApplyContext) tx.Result {
	o, res := readOffer(ctx, r.Offer)
	if !res.IsSuccess() {
		return res
	}
	if o.Maker != r.Maker || !ctx.IsSigner(o.Maker) {
		return tx.TecNO_PERMISSION
	}
	if res := checkRecord(o, r.Offer, r.Maker, r.Vault, r.OfferedAssetKind); !res.IsSuccess() {
		return res
	}
	if res := checkOwner(ctx, r.MakerDestination, o.Maker, o.OfferedAssetKind); !res.IsSuccess() {
		return res
	}
	return release(ctx, r.Offer, r.Vault, r.MakerDestination, o)
}
