package account

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	"github.com/LeJamon/offerd/internal/core/tx/transfer"
	"github.com/LeJamon/offerd/internal/types"
)

// CreateHolding opens the holding that keeps Owner's balance of AssetKind.
// Creating a holding that already exists succeeds without changes, so
// callers can always prepend it to a transaction that needs it.
type CreateHolding struct {
	// Payer funds the storage deposit
	Payer types.Address `json:"payer"`

	// Owner controls the holding
	Owner types.Address `json:"owner"`

	// AssetKind is the asset the holding keeps
	AssetKind types.Address `json:"asset_kind"`

	// Holding is the derived holding address
	Holding types.Address `json:"holding"`
}

// NewCreateHolding creates a CreateHolding instruction for the derived
// holding of owner and assetKind.
func NewCreateHolding(payer, owner, assetKind types.Address) *CreateHolding {
	k, _ := keylet.Holding(owner, assetKind)
	return &CreateHolding{Payer: payer, Owner: owner, AssetKind: assetKind, Holding: k.Key}
}

// TxType returns the instruction type
func (c *CreateHolding) TxType() tx.Type {
	return tx.TypeCreateHolding
}

// Encode implements tx.Instruction
func (c *CreateHolding) Encode() []byte {
	var w tx.Writer
	return w.Address(c.Payer).Address(c.Owner).Address(c.AssetKind).Address(c.Holding).Bytes()
}

func decodeCreateHolding(body []byte) (tx.Instruction, error) {
	r := tx.NewReader(body)
	c := &CreateHolding{
		Payer:     r.Address(),
		Owner:     r.Address(),
		AssetKind: r.Address(),
		Holding:   r.Address(),
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate validates the CreateHolding instruction
func (c *CreateHolding) Validate() tx.Result {
	if c.Owner.IsZero() || c.AssetKind.IsZero() {
		return tx.TemMALFORMED
	}
	return tx.TesSUCCESS
}

// Apply applies the CreateHolding instruction
func (c *CreateHolding) Apply(ctx *tx.ApplyContext) tx.Result {
	if _, _, r := readAsset(ctx, c.AssetKind); !r.IsSuccess() {
		return r
	}
	k, _ := keylet.Holding(c.Owner, c.AssetKind)
	if k.Key != c.Holding {
		return tx.TecACCOUNT_MISMATCH
	}

	exists, err := ctx.View.Exists(k)
	if err != nil {
		log.WithError(err).Error("account: check holding")
		return tx.TefINTERNAL
	}
	if exists {
		h, _, r := transfer.ReadHolding(ctx, c.Holding)
		if !r.IsSuccess() {
			return r
		}
		if h.Owner != c.Owner || h.AssetKind != c.AssetKind {
			return tx.TecACCOUNT_MISMATCH
		}
		return tx.TesSUCCESS
	}

	return transfer.CreateEntry(ctx, k, &sle.Holding{
		AssetKind: c.AssetKind,
		Owner:     c.Owner,
	}, c.Payer)
}

// readAsset loads an asset definition. A missing asset is TecNO_ENTRY.
func readAsset(ctx *tx.ApplyContext, addr types.Address) (*sle.AssetKind, uint64, tx.Result) {
	data, err := ctx.View.Read(keylet.AssetKind(addr))
	if errors.Is(err, tx.ErrEntryNotFound) {
		return nil, 0, tx.TecNO_ENTRY
	}
	if err != nil {
		log.WithError(err).Error("account: read asset")
		return nil, 0, tx.TefINTERNAL
	}
	a, deposit, err := sle.ParseAssetKind(data)
	if err != nil {
		return nil, 0, tx.TecNO_ENTRY
	}
	return a, deposit, tx.TesSUCCESS
}
