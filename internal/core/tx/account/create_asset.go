// Package account implements the instructions that set up the accounts an
// offer trades between: asset definitions, holdings, minting and the native
// currency faucet.
package account

import (
	"fmt"

	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	"github.com/LeJamon/offerd/internal/core/tx/transfer"
	"github.com/LeJamon/offerd/internal/types"
)

func init() {
	tx.Register(tx.TypeCreateAsset, decodeCreateAsset)
	tx.Register(tx.TypeCreateHolding, decodeCreateHolding)
	tx.Register(tx.TypeMintTo, decodeMintTo)
	tx.Register(tx.TypeFundNative, decodeFundNative)
}

// CreateAsset defines a new asset kind. The asset address is a fresh
// identity and must co-sign, so nobody can claim an address they do not
// hold the key for.
type CreateAsset struct {
	// Asset is the address of the new asset kind
	Asset types.Address `json:"asset"`

	// Payer funds the storage deposit
	Payer types.Address `json:"payer"`

	// Authority may mint the asset
	Authority types.Address `json:"authority"`

	// Decimals is informational only
	Decimals uint8 `json:"decimals"`
}

// NewCreateAsset creates a CreateAsset instruction
func NewCreateAsset(asset, payer, authority types.Address, decimals uint8) *CreateAsset {
	return &CreateAsset{Asset: asset, Payer: payer, Authority: authority, Decimals: decimals}
}

// TxType returns the instruction type
func (c *CreateAsset) TxType() tx.Type {
	return tx.TypeCreateAsset
}

// Encode implements tx.Instruction
func (c *CreateAsset) Encode() []byte {
	var w tx.Writer
	return w.Address(c.Asset).Address(c.Payer).Address(c.Authority).U8(c.Decimals).Bytes()
}

func decodeCreateAsset(body []byte) (tx.Instruction, error) {
	r := tx.NewReader(body)
	c := &CreateAsset{
		Asset:     r.Address(),
		Payer:     r.Address(),
		Authority: r.Address(),
		Decimals:  r.U8(),
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate validates the CreateAsset instruction
func (c *CreateAsset) Validate() tx.Result {
	if c.Asset.IsZero() || c.Authority.IsZero() {
		return tx.TemMALFORMED
	}
	return tx.TesSUCCESS
}

// Apply applies the CreateAsset instruction
func (c *CreateAsset) Apply(ctx *tx.ApplyContext) tx.Result {
	if r := ctx.Authorize(tx.SignerAuthority(c.Asset)); !r.IsSuccess() {
		return r
	}
	return transfer.CreateEntry(ctx, keylet.AssetKind(c.Asset), &sle.AssetKind{
		Authority: c.Authority,
		Decimals:  c.Decimals,
	}, c.Payer)
}

func (c *CreateAsset) String() string {
	return fmt.Sprintf("CreateAsset{asset=%s authority=%s}", c.Asset, c.Authority)
}
