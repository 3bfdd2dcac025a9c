// Package offer implements the escrow offer lifecycle: MakeOffer locks an
// asset in a vault owned by the offer's derived address, TakeOffer and
// TakeOfferWithNative settle it against payment, and RefundOffer returns
// it to the maker. A settled or refunded offer has no record at all.
package offer

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/LeJamon/offerd/internal/core/ledger/entry"
	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	"github.com/LeJamon/offerd/internal/core/tx/transfer"
	"github.com/LeJamon/offerd/internal/types"
)

func init() {
	tx.Register(tx.TypeMakeOffer, decodeMakeOffer)
	tx.Register(tx.TypeTakeOffer, decodeTakeOffer)
	tx.Register(tx.TypeTakeOfferWithNative, decodeTakeOfferWithNative)
	tx.Register(tx.TypeRefundOffer, decodeRefundOffer)
}

// MakeOffer opens an offer and moves the offered amount into its vault.
type MakeOffer struct {
	// Maker creates the offer and must sign
	Maker types.Address `json:"maker"`

	// OfferedAssetKind is the asset placed in escrow
	OfferedAssetKind types.Address `json:"offered_asset_kind"`

	// Source is the maker's holding of the offered asset
	Source types.Address `json:"source"`

	// Offer is the derived offer address
	Offer types.Address `json:"offer"`

	// Vault is the derived vault holding
	Vault types.Address `json:"vault"`

	// ID is chosen by the maker and seeds the offer address
	ID uint64 `json:"id,string"`

	// OfferedAmount is moved into the vault
	OfferedAmount uint64 `json:"offered_amount,string"`

	// Terms is what a taker must pay
	Terms sle.PaymentTerms `json:"payment_terms"`
}

// NewMakeOffer creates a MakeOffer instruction with every derived account
// filled in.
func NewMakeOffer(maker, offeredAssetKind types.Address, id, amount uint64, terms sle.PaymentTerms) *MakeOffer {
	source, _ := keylet.Holding(maker, offeredAssetKind)
	offer, _ := keylet.Offer(id)
	return &MakeOffer{
		Maker:            maker,
		OfferedAssetKind: offeredAssetKind,
		Source:           source.Key,
		Offer:            offer.Key,
		Vault:            keylet.Vault(offer.Key, offeredAssetKind).Key,
		ID:               id,
		OfferedAmount:    amount,
		Terms:            terms,
	}
}

// TxType returns the instruction type
func (m *MakeOffer) TxType() tx.Type {
	return tx.TypeMakeOffer
}

// Encode implements tx.Instruction
func (m *MakeOffer) Encode() []byte {
	var w tx.Writer
	w.Address(m.Maker).Address(m.OfferedAssetKind).Address(m.Source).Address(m.Offer).Address(m.Vault)
	w.U64(m.ID).U64(m.OfferedAmount)
	return sle.AppendPaymentTerms(w.Bytes(), m.Terms)
}

func decodeMakeOffer(body []byte) (tx.Instruction, error) {
	r := tx.NewReader(body)
	m := &MakeOffer{
		Maker:            r.Address(),
		OfferedAssetKind: r.Address(),
		Source:           r.Address(),
		Offer:            r.Address(),
		Vault:            r.Address(),
		ID:               r.U64(),
		OfferedAmount:    r.U64(),
	}
	rest := r.Rest()
	if err := r.Done(); err != nil {
		return nil, err
	}
	terms, err := sle.DecodePaymentTerms(rest)
	if err != nil {
		return nil, err
	}
	m.Terms = terms
	return m, nil
}

// Validate validates the MakeOffer instruction
func (m *MakeOffer) Validate() tx.Result {
	if m.Terms == nil {
		return tx.TemMALFORMED
	}
	if m.OfferedAmount == 0 || m.Terms.Amount() == 0 {
		return tx.TemBAD_AMOUNT
	}
	if t, ok := m.Terms.(sle.AssetTerms); ok && t.AssetKind == m.OfferedAssetKind {
		return tx.TemSAME_ASSET
	}
	return tx.TesSUCCESS
}

// Apply applies the MakeOffer instruction
func (m *MakeOffer) Apply(ctx *tx.ApplyContext) tx.Result {
	if r := ctx.Authorize(tx.SignerAuthority(m.Maker)); !r.IsSuccess() {
		return r
	}

	offerKey, bump := keylet.Offer(m.ID)
	vaultKey := keylet.Vault(offerKey.Key, m.OfferedAssetKind)
	if m.Offer != offerKey.Key || m.Vault != vaultKey.Key {
		return tx.TecACCOUNT_MISMATCH
	}

	if t, ok := m.Terms.(sle.AssetTerms); ok {
		exists, err := ctx.View.Exists(keylet.AssetKind(t.AssetKind))
		if err != nil {
			return internal(err, "check payment asset")
		}
		if !exists {
			return tx.TecNO_ENTRY
		}
	}

	record := &sle.Offer{
		ID:               m.ID,
		Maker:            m.Maker,
		OfferedAssetKind: m.OfferedAssetKind,
		OfferedAmount:    m.OfferedAmount,
		Terms:            m.Terms,
		Bump:             bump,
	}
	if r := transfer.CreateEntry(ctx, offerKey, record, m.Maker); !r.IsSuccess() {
		return r
	}
	vault := &sle.Holding{AssetKind: m.OfferedAssetKind, Owner: offerKey.Key}
	if r := transfer.CreateEntry(ctx, vaultKey, vault, m.Maker); !r.IsSuccess() {
		return r
	}

	return transfer.TransferAsset(ctx, m.Source, m.Vault, m.OfferedAssetKind, m.OfferedAmount, tx.SignerAuthority(m.Maker))
}

func internal(err error, what string) tx.Result {
	log.WithError(err).Errorf("offer: %s", what)
	return tx.TefINTERNAL
}

// readOffer loads the open offer at addr. Absence is TecOBJECT_NOT_FOUND,
// which is also what a settled or refunded offer looks like.
func readOffer(ctx *tx.ApplyContext, addr types.Address) (*sle.Offer, tx.Result) {
	data, err := ctx.View.Read(keylet.At(entry.TypeOffer, addr))
	if errors.Is(err, tx.ErrEntryNotFound) {
		return nil, tx.TecOBJECT_NOT_FOUND
	}
	if err != nil {
		return nil, internal(err, "read offer")
	}
	o, _, err := sle.ParseOffer(data)
	if err != nil {
		return nil, tx.TecOBJECT_NOT_FOUND
	}
	return o, tx.TesSUCCESS
}

// offerAuthority is the program authority over the offer's vault.
func offerAuthority(addr types.Address, o *sle.Offer) tx.Authority {
	seeds := append(keylet.OfferSeeds(o.ID), []byte{o.Bump})
	return tx.ProgramAuthority(addr, keylet.OfferProgramID, seeds...)
}

// release empties the vault into destination and closes the vault and the
// offer, returning both deposits to the maker.
func release(ctx *tx.ApplyContext, addr, vault, destination types.Address, o *sle.Offer) tx.Result {
	held, _, r := transfer.ReadHolding(ctx, vault)
	if !r.IsSuccess() {
		return r
	}
	auth := offerAuthority(addr, o)
	if r := transfer.TransferAsset(ctx, vault, destination, o.OfferedAssetKind, held.Amount, auth); !r.IsSuccess() {
		return r
	}
	if r := transfer.CloseHolding(ctx, vault, o.Maker, auth); !r.IsSuccess() {
		return r
	}
	return transfer.CloseEntry(ctx, keylet.At(entry.TypeOffer, addr), o.Maker)
}

// checkRecord verifies the caller-supplied accounts against the offer
// record.
func checkRecord(o *sle.Offer, addr, maker, vault, offeredAssetKind types.Address) tx.Result {
	if o.Maker != maker || o.OfferedAssetKind != offeredAssetKind {
		return tx.TecACCOUNT_MISMATCH
	}
	if keylet.Vault(addr, o.OfferedAssetKind).Key != vault {
		return tx.TecACCOUNT_MISMATCH
	}
	return tx.TesSUCCESS
}

// checkOwner verifies that the holding at addr belongs to owner and keeps
// assetKind.
func checkOwner(ctx *tx.ApplyContext, addr, owner, assetKind types.Address) tx.Result {
	h, _, r := transfer.ReadHolding(ctx, addr)
	if !r.IsSuccess() {
		return r
	}
	if h.Owner != owner || h.AssetKind != assetKind {
		return tx.TecACCOUNT_MISMATCH
	}
	return tx.TesSUCCESS
}
