package account

import (
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/core/tx/transfer"
	"github.com/LeJamon/offerd/internal/types"
)

// FundNative credits native currency from nothing. It only works on
// ledgers started with the faucet enabled.
type FundNative struct {
	// Recipient is the identity credited
	Recipient types.Address `json:"recipient"`

	// Amount is the native amount credited
	Amount uint64 `json:"amount,string"`
}

// NewFundNative creates a FundNative instruction
func NewFundNative(recipient types.Address, amount uint64) *FundNative {
	return &FundNative{Recipient: recipient, Amount: amount}
}

// TxType returns the instruction type
func (f *FundNative) TxType() tx.Type {
	return tx.TypeFundNative
}

// Encode implements tx.Instruction
func (f *FundNative) Encode() []byte {
	var w tx.Writer
	return w.Address(f.Recipient).U64(f.Amount).Bytes()
}

func decodeFundNative(body []byte) (tx.Instruction, error) {
	r := tx.NewReader(body)
	f := &FundNative{
		Recipient: r.Address(),
		Amount:    r.U64(),
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate validates the FundNative instruction
func (f *FundNative) Validate() tx.Result {
	if f.Amount == 0 {
		return tx.TemBAD_AMOUNT
	}
	if f.Recipient.IsZero() {
		return tx.TemMALFORMED
	}
	return tx.TesSUCCESS
}

// Apply applies the FundNative instruction
func (f *FundNative) Apply(ctx *tx.ApplyContext) tx.Result {
	if !ctx.Config.FaucetEnabled {
		return tx.TemDISABLED
	}
	return transfer.CreditNative(ctx, f.Recipient, f.Amount)
}
