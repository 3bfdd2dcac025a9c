// Package transfer moves value between accounts inside an applying
// transaction: asset units between holdings, native currency between
// identities, and storage deposits in and out of created entries.
package transfer

import (
	"errors"
	"math/bits"

	"github.com/LeJamon/offerd/internal/core/ledger/entry"
	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	"github.com/LeJamon/offerd/internal/types"
	log "github.com/sirupsen/logrus"
)

// AddAmount returns a+b, or TecOVERFLOW if the sum does not fit.
func AddAmount(a, b uint64) (uint64, tx.Result) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, tx.TecOVERFLOW
	}
	return sum, tx.TesSUCCESS
}

// internal maps an unexpected view error to TefINTERNAL.
func internal(err error, what string) tx.Result {
	log.WithError(err).Errorf("transfer: %s", what)
	return tx.TefINTERNAL
}

func holdingKey(addr types.Address) keylet.Keylet {
	return keylet.At(entry.TypeHolding, addr)
}

// ReadHolding loads a holding. A missing or non-holding entry is TecNO_ENTRY.
func ReadHolding(ctx *tx.ApplyContext, addr types.Address) (*sle.Holding, uint64, tx.Result) {
	data, err := ctx.View.Read(holdingKey(addr))
	if errors.Is(err, tx.ErrEntryNotFound) {
		return nil, 0, tx.TecNO_ENTRY
	}
	if err != nil {
		return nil, 0, internal(err, "read holding")
	}
	h, deposit, err := sle.ParseHolding(data)
	if err != nil {
		return nil, 0, tx.TecNO_ENTRY
	}
	return h, deposit, tx.TesSUCCESS
}

func writeHolding(ctx *tx.ApplyContext, addr types.Address, h *sle.Holding, deposit uint64) tx.Result {
	if err := ctx.View.Update(holdingKey(addr), sle.Encode(h, deposit)); err != nil {
		return internal(err, "update holding")
	}
	return tx.TesSUCCESS
}

// TransferAsset moves amount of assetKind from one holding to another.
// auth must be the owner of the source holding.
func TransferAsset(ctx *tx.ApplyContext, from, to, assetKind types.Address, amount uint64, auth tx.Authority) tx.Result {
	src, srcDeposit, r := ReadHolding(ctx, from)
	if !r.IsSuccess() {
		return r
	}
	if src.AssetKind != assetKind || src.Owner != auth.Address {
		return tx.TecACCOUNT_MISMATCH
	}
	if r := ctx.Authorize(auth); !r.IsSuccess() {
		return r
	}

	dst, dstDeposit, r := ReadHolding(ctx, to)
	if !r.IsSuccess() {
		return r
	}
	if dst.AssetKind != assetKind {
		return tx.TecACCOUNT_MISMATCH
	}

	if src.Amount < amount {
		return tx.TecINSUFFICIENT_FUNDS
	}
	if from == to {
		return tx.TesSUCCESS
	}
	credited, r := AddAmount(dst.Amount, amount)
	if !r.IsSuccess() {
		return r
	}

	src.Amount -= amount
	dst.Amount = credited
	if r := writeHolding(ctx, from, src, srcDeposit); !r.IsSuccess() {
		return r
	}
	return writeHolding(ctx, to, dst, dstDeposit)
}

// CreditAsset adds amount to the holding at to. Minting is the only caller
// that creates units without a matching debit.
func CreditAsset(ctx *tx.ApplyContext, to, assetKind types.Address, amount uint64) tx.Result {
	dst, deposit, r := ReadHolding(ctx, to)
	if !r.IsSuccess() {
		return r
	}
	if dst.AssetKind != assetKind {
		return tx.TecACCOUNT_MISMATCH
	}
	credited, r := AddAmount(dst.Amount, amount)
	if !r.IsSuccess() {
		return r
	}
	dst.Amount = credited
	return writeHolding(ctx, to, dst, deposit)
}

// NativeBalance returns the native balance of id. An identity that never
// received native currency has balance zero. An address occupied by another
// entry type, such as an asset kind, is TecACCOUNT_MISMATCH.
func NativeBalance(ctx *tx.ApplyContext, id types.Address) (uint64, tx.Result) {
	data, err := ctx.View.Read(keylet.Native(id))
	if errors.Is(err, tx.ErrEntryNotFound) {
		return 0, tx.TesSUCCESS
	}
	if err != nil {
		return 0, internal(err, "read native account")
	}
	if entry.TypeOf(data) != entry.TypeNative {
		return 0, tx.TecACCOUNT_MISMATCH
	}
	n, _, err := sle.ParseNative(data)
	if err != nil {
		return 0, internal(err, "parse native account")
	}
	return n.Balance, tx.TesSUCCESS
}

func setNative(ctx *tx.ApplyContext, id types.Address, balance uint64) tx.Result {
	k := keylet.Native(id)
	data := sle.Encode(&sle.Native{Balance: balance}, 0)

	exists, err := ctx.View.Exists(k)
	if err != nil {
		return internal(err, "check native account")
	}
	if exists {
		err = ctx.View.Update(k, data)
	} else {
		err = ctx.View.Insert(k, data)
	}
	if err != nil {
		return internal(err, "write native account")
	}
	return tx.TesSUCCESS
}

// CreditNative adds amount to id's native balance, creating the account if
// needed.
func CreditNative(ctx *tx.ApplyContext, id types.Address, amount uint64) tx.Result {
	if amount == 0 {
		return tx.TesSUCCESS
	}
	bal, r := NativeBalance(ctx, id)
	if !r.IsSuccess() {
		return r
	}
	bal, r = AddAmount(bal, amount)
	if !r.IsSuccess() {
		return r
	}
	return setNative(ctx, id, bal)
}

// debitNative removes amount from id's native balance. The caller has
// already authorized id.
func debitNative(ctx *tx.ApplyContext, id types.Address, amount uint64) tx.Result {
	if amount == 0 {
		return tx.TesSUCCESS
	}
	bal, r := NativeBalance(ctx, id)
	if !r.IsSuccess() {
		return r
	}
	if bal < amount {
		return tx.TecINSUFFICIENT_FUNDS
	}
	return setNative(ctx, id, bal-amount)
}

// TransferNative moves native currency from a signing identity to another
// identity.
func TransferNative(ctx *tx.ApplyContext, from, to types.Address, amount uint64) tx.Result {
	if r := ctx.Authorize(tx.SignerAuthority(from)); !r.IsSuccess() {
		return r
	}
	if from == to {
		bal, r := NativeBalance(ctx, from)
		if r.IsSuccess() && bal < amount {
			return tx.TecINSUFFICIENT_FUNDS
		}
		return r
	}
	if r := debitNative(ctx, from, amount); !r.IsSuccess() {
		return r
	}
	return CreditNative(ctx, to, amount)
}

// CreateEntry inserts e at k. payer must sign and pays the storage deposit
// from its native balance; the deposit is kept in the entry until it is
// closed. An occupied key is TecDUPLICATE.
func CreateEntry(ctx *tx.ApplyContext, k keylet.Keylet, e sle.Entry, payer types.Address) tx.Result {
	if r := ctx.Authorize(tx.SignerAuthority(payer)); !r.IsSuccess() {
		return r
	}
	exists, err := ctx.View.Exists(k)
	if err != nil {
		return internal(err, "check entry")
	}
	if exists {
		return tx.TecDUPLICATE
	}

	deposit := ctx.Deposit(sle.EncodedSize(e))
	if r := debitNative(ctx, payer, deposit); !r.IsSuccess() {
		return r
	}
	if err := ctx.View.Insert(k, sle.Encode(e, deposit)); err != nil {
		return internal(err, "insert entry")
	}
	return tx.TesSUCCESS
}

// CloseEntry erases the entry at k and returns its deposit to destination.
func CloseEntry(ctx *tx.ApplyContext, k keylet.Keylet, destination types.Address) tx.Result {
	data, err := ctx.View.Read(k)
	if errors.Is(err, tx.ErrEntryNotFound) {
		return tx.TecNO_ENTRY
	}
	if err != nil {
		return internal(err, "read entry")
	}
	stored, err := sle.Decode(data)
	if err != nil {
		return internal(err, "decode entry")
	}
	if err := ctx.View.Erase(k); err != nil {
		return internal(err, "erase entry")
	}
	return CreditNative(ctx, destination, stored.Deposit)
}

// CloseHolding closes an empty holding owned by auth and returns its
// deposit to destination.
func CloseHolding(ctx *tx.ApplyContext, addr, destination types.Address, auth tx.Authority) tx.Result {
	h, _, r := ReadHolding(ctx, addr)
	if !r.IsSuccess() {
		return r
	}
	if h.Owner != auth.Address {
		return tx.TecACCOUNT_MISMATCH
	}
	if r := ctx.Authorize(auth); !r.IsSuccess() {
		return r
	}
	if h.Amount != 0 {
		return tx.TecHAS_OBLIGATIONS
	}
	return CloseEntry(ctx, holdingKey(addr), destination)
}
