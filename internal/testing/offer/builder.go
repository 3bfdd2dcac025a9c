package offer

import (
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/core/tx/account"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	offertx "github.com/LeJamon/offerd/internal/core/tx/offer"
	jtx "github.com/LeJamon/offerd/internal/testing"
)

// MakeOfferBuilder provides a fluent interface for building MakeOffer instructions.
type MakeOfferBuilder struct {
	maker  *jtx.Account
	asset  *jtx.Asset
	id     uint64
	amount uint64
	terms  sle.PaymentTerms
}

// MakeOffer creates a new MakeOfferBuilder for amount units of asset.
// The payment terms default to nothing and must be set.
func MakeOffer(maker *jtx.Account, asset *jtx.Asset, id, amount uint64) *MakeOfferBuilder {
	return &MakeOfferBuilder{maker: maker, asset: asset, id: id, amount: amount}
}

// ForAsset sets asset payment terms.
func (b *MakeOfferBuilder) ForAsset(asset *jtx.Asset, amount uint64) *MakeOfferBuilder {
	b.terms = sle.AssetTerms{AssetKind: asset.ID, Quantity: amount}
	return b
}

// ForNative sets native currency payment terms.
func (b *MakeOfferBuilder) ForNative(amount uint64) *MakeOfferBuilder {
	b.terms = sle.NativeTerms{Quantity: amount}
	return b
}

// Build constructs the MakeOffer instruction.
func (b *MakeOfferBuilder) Build() *offertx.MakeOffer {
	return offertx.NewMakeOffer(b.maker.ID, b.asset.ID, b.id, b.amount, b.terms)
}

// Take builds the instructions a taker submits to settle an asset-terms
// offer: the taker's holding of the offered asset, the maker's holding of
// the payment asset, then TakeOffer itself.
func Take(taker, maker *jtx.Account, id uint64, offered, payment *jtx.Asset) []tx.Instruction {
	return []tx.Instruction{
		account.NewCreateHolding(taker.ID, taker.ID, offered.ID),
		account.NewCreateHolding(taker.ID, maker.ID, payment.ID),
		offertx.NewTakeOffer(taker.ID, maker.ID, id, offered.ID, payment.ID),
	}
}

// TakeNative builds the instructions that settle a native-terms offer.
func TakeNative(taker, maker *jtx.Account, id uint64, offered *jtx.Asset) []tx.Instruction {
	return []tx.Instruction{
		account.NewCreateHolding(taker.ID, taker.ID, offered.ID),
		offertx.NewTakeOfferWithNative(taker.ID, maker.ID, id, offered.ID),
	}
}

// Refund builds the RefundOffer instruction for maker.
func Refund(maker *jtx.Account, id uint64, offered *jtx.Asset) *offertx.RefundOffer {
	return offertx.NewRefundOffer(maker.ID, id, offered.ID)
}
