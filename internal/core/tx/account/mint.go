package account

import (
	log "github.com/sirupsen/logrus"

	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	"github.com/LeJamon/offerd/internal/core/tx/transfer"
	"github.com/LeJamon/offerd/internal/types"
)

// MintTo creates new units of an asset into a holding.
type MintTo struct {
	// AssetKind is the asset to mint
	AssetKind types.Address `json:"asset_kind"`

	// Destination is the holding credited
	Destination types.Address `json:"destination"`

	// Authority is the asset's mint authority and must sign
	Authority types.Address `json:"authority"`

	// Amount is the number of units minted
	Amount uint64 `json:"amount,string"`
}

// NewMintTo creates a MintTo instruction
func NewMintTo(assetKind, destination, authority types.Address, amount uint64) *MintTo {
	return &MintTo{AssetKind: assetKind, Destination: destination, Authority: authority, Amount: amount}
}

// TxType returns the instruction type
func (m *MintTo) TxType() tx.Type {
	return tx.TypeMintTo
}

// Encode implements tx.Instruction
func (m *MintTo) Encode() []byte {
	var w tx.Writer
	return w.Address(m.AssetKind).Address(m.Destination).Address(m.Authority).U64(m.Amount).Bytes()
}

func decodeMintTo(body []byte) (tx.Instruction, error) {
	r := tx.NewReader(body)
	m := &MintTo{
		AssetKind:   r.Address(),
		Destination: r.Address(),
		Authority:   r.Address(),
		Amount:      r.U64(),
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate validates the MintTo instruction
func (m *MintTo) Validate() tx.Result {
	if m.Amount == 0 {
		return tx.TemBAD_AMOUNT
	}
	return tx.TesSUCCESS
}

// Apply applies the MintTo instruction
func (m *MintTo) Apply(ctx *tx.ApplyContext) tx.Result {
	asset, deposit, r := readAsset(ctx, m.AssetKind)
	if !r.IsSuccess() {
		return r
	}
	if r := ctx.Authorize(tx.SignerAuthority(m.Authority)); !r.IsSuccess() {
		return r
	}
	if asset.Authority != m.Authority {
		return tx.TecNO_PERMISSION
	}

	supply, r := transfer.AddAmount(asset.Supply, m.Amount)
	if !r.IsSuccess() {
		return r
	}
	if r := transfer.CreditAsset(ctx, m.Destination, m.AssetKind, m.Amount); !r.IsSuccess() {
		return r
	}

	asset.Supply = supply
	if err := ctx.View.Update(keylet.AssetKind(m.AssetKind), sle.Encode(asset, deposit)); err != nil {
		log.WithError(err).Error("account: update asset supply")
		return tx.TefINTERNAL
	}
	return tx.TesSUCCESS
}
