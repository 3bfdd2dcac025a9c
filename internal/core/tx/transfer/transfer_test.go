package transfer

import (
	"math"
	"testing"

	"github.com/LeJamon/offerd/internal/core/ledger"
	"github.com/LeJamon/offerd/internal/core/ledger/entry"
	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	"github.com/LeJamon/offerd/internal/crypto"
	"github.com/LeJamon/offerd/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapView map[types.Address][]byte

func (m mapView) Read(k keylet.Keylet) ([]byte, error) {
	if v, ok := m[k.Key]; ok {
		return v, nil
	}
	return nil, ledger.ErrNotFound
}

func (m mapView) Exists(k keylet.Keylet) (bool, error) {
	_, ok := m[k.Key]
	return ok, nil
}

var (
	alice = crypto.KeypairFromName("alice").Address()
	bob   = crypto.KeypairFromName("bob").Address()
	gold  = crypto.KeypairFromName("asset:gold").Address()
	lead  = crypto.KeypairFromName("asset:lead").Address()
)

type fixture struct {
	base mapView
	ctx  *tx.ApplyContext
}

func newFixture(signers ...types.Address) *fixture {
	f := &fixture{base: mapView{}}
	f.reset(signers...)
	return f
}

func (f *fixture) reset(signers ...types.Address) {
	f.ctx = tx.NewApplyContext(tx.NewApplyStateTable(f.base), tx.EngineConfig{DepositBase: 100, DepositPerByte: 1}, signers)
}

func (f *fixture) native(id types.Address, balance uint64) {
	f.base[id] = sle.Encode(&sle.Native{Balance: balance}, 0)
}

func (f *fixture) holding(owner, asset types.Address, amount uint64) types.Address {
	k, _ := keylet.Holding(owner, asset)
	f.base[k.Key] = sle.Encode(&sle.Holding{AssetKind: asset, Owner: owner, Amount: amount}, 0)
	return k.Key
}

func (f *fixture) amount(t *testing.T, addr types.Address) uint64 {
	t.Helper()
	h, _, r := ReadHolding(f.ctx, addr)
	require.Equal(t, tx.TesSUCCESS, r)
	return h.Amount
}

func (f *fixture) balance(t *testing.T, id types.Address) uint64 {
	t.Helper()
	bal, r := NativeBalance(f.ctx, id)
	require.Equal(t, tx.TesSUCCESS, r)
	return bal
}

func TestAddAmount(t *testing.T) {
	sum, r := AddAmount(2, 3)
	assert.Equal(t, tx.TesSUCCESS, r)
	assert.Equal(t, uint64(5), sum)

	sum, r = AddAmount(math.MaxUint64, 0)
	assert.Equal(t, tx.TesSUCCESS, r)
	assert.Equal(t, uint64(math.MaxUint64), sum)

	_, r = AddAmount(math.MaxUint64, 1)
	assert.Equal(t, tx.TecOVERFLOW, r)
}

func TestTransferAsset(t *testing.T) {
	f := newFixture(alice)
	from := f.holding(alice, gold, 10)
	to := f.holding(bob, gold, 1)
	f.reset(alice)

	require.Equal(t, tx.TesSUCCESS, TransferAsset(f.ctx, from, to, gold, 4, tx.SignerAuthority(alice)))
	assert.Equal(t, uint64(6), f.amount(t, from))
	assert.Equal(t, uint64(5), f.amount(t, to))

	// the whole balance may move
	require.Equal(t, tx.TesSUCCESS, TransferAsset(f.ctx, from, to, gold, 6, tx.SignerAuthority(alice)))
	assert.Equal(t, uint64(0), f.amount(t, from))
	assert.Equal(t, uint64(11), f.amount(t, to))
}

func TestTransferAsset_Errors(t *testing.T) {
	f := newFixture()
	from := f.holding(alice, gold, 10)
	to := f.holding(bob, gold, 0)
	leadHolding := f.holding(bob, lead, 0)
	full := f.holding(crypto.KeypairFromName("carol").Address(), gold, math.MaxUint64)
	missing, _ := keylet.Holding(bob, crypto.KeypairFromName("asset:tin").Address())

	tests := []struct {
		name    string
		signers []types.Address
		from    types.Address
		to      types.Address
		asset   types.Address
		amount  uint64
		auth    tx.Authority
		result  tx.Result
	}{
		{"missing source", []types.Address{alice}, missing.Key, to, gold, 1, tx.SignerAuthority(alice), tx.TecNO_ENTRY},
		{"missing destination", []types.Address{alice}, from, missing.Key, gold, 1, tx.SignerAuthority(alice), tx.TecNO_ENTRY},
		{"not the owner", []types.Address{bob}, from, to, gold, 1, tx.SignerAuthority(bob), tx.TecACCOUNT_MISMATCH},
		{"unsigned owner", []types.Address{bob}, from, to, gold, 1, tx.SignerAuthority(alice), tx.TefBAD_AUTH},
		{"source of another asset", []types.Address{alice}, from, to, lead, 1, tx.SignerAuthority(alice), tx.TecACCOUNT_MISMATCH},
		{"destination of another asset", []types.Address{alice}, from, leadHolding, gold, 1, tx.SignerAuthority(alice), tx.TecACCOUNT_MISMATCH},
		{"insufficient", []types.Address{alice}, from, to, gold, 11, tx.SignerAuthority(alice), tx.TecINSUFFICIENT_FUNDS},
		{"overflow", []types.Address{alice}, from, full, gold, 1, tx.SignerAuthority(alice), tx.TecOVERFLOW},
		{"forged program authority", []types.Address{alice}, from, to, gold, 1,
			tx.ProgramAuthority(alice, keylet.OfferProgramID, []byte("offer")), tx.TecNO_PERMISSION},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.reset(tt.signers...)
			r := TransferAsset(f.ctx, tt.from, tt.to, tt.asset, tt.amount, tt.auth)
			assert.Equal(t, tt.result, r)
			assert.Equal(t, uint64(10), f.amount(t, from))
		})
	}
}

func TestTransferAsset_SelfTransfer(t *testing.T) {
	f := newFixture()
	from := f.holding(alice, gold, 10)
	f.reset(alice)

	assert.Equal(t, tx.TesSUCCESS, TransferAsset(f.ctx, from, from, gold, 10, tx.SignerAuthority(alice)))
	assert.Equal(t, uint64(10), f.amount(t, from))
	assert.Equal(t, tx.TecINSUFFICIENT_FUNDS, TransferAsset(f.ctx, from, from, gold, 11, tx.SignerAuthority(alice)))
}

func TestTransferAsset_FromVault(t *testing.T) {
	f := newFixture()
	offer, bump := keylet.Offer(9)
	vault := f.holding(offer.Key, gold, 5)
	to := f.holding(bob, gold, 0)
	f.reset(bob)

	seeds := append(keylet.OfferSeeds(9), []byte{bump})
	auth := tx.ProgramAuthority(offer.Key, keylet.OfferProgramID, seeds...)
	require.Equal(t, tx.TesSUCCESS, TransferAsset(f.ctx, vault, to, gold, 5, auth))
	assert.Equal(t, uint64(5), f.amount(t, to))
	assert.Equal(t, uint64(0), f.amount(t, vault))
}

func TestTransferAsset_VaultNeedsProgramAuthority(t *testing.T) {
	f := newFixture()
	offer, _ := keylet.Offer(9)
	vault := f.holding(offer.Key, gold, 5)
	to := f.holding(bob, gold, 0)
	f.reset(bob)

	assert.Equal(t, tx.TefBAD_AUTH, TransferAsset(f.ctx, vault, to, gold, 5, tx.SignerAuthority(offer.Key)))
	assert.Equal(t, uint64(5), f.amount(t, vault))
}

func TestCreditAsset(t *testing.T) {
	f := newFixture()
	to := f.holding(alice, gold, math.MaxUint64-1)
	f.reset()

	require.Equal(t, tx.TesSUCCESS, CreditAsset(f.ctx, to, gold, 1))
	assert.Equal(t, uint64(math.MaxUint64), f.amount(t, to))
	assert.Equal(t, tx.TecOVERFLOW, CreditAsset(f.ctx, to, gold, 1))
	assert.Equal(t, tx.TecACCOUNT_MISMATCH, CreditAsset(f.ctx, to, lead, 1))
}

func TestNative(t *testing.T) {
	f := newFixture()
	f.native(alice, 50)
	f.reset(alice)

	assert.Equal(t, uint64(0), f.balance(t, bob))
	require.Equal(t, tx.TesSUCCESS, TransferNative(f.ctx, alice, bob, 20))
	assert.Equal(t, uint64(30), f.balance(t, alice))
	assert.Equal(t, uint64(20), f.balance(t, bob))

	assert.Equal(t, tx.TecINSUFFICIENT_FUNDS, TransferNative(f.ctx, alice, bob, 31))
	assert.Equal(t, tx.TefBAD_AUTH, TransferNative(f.ctx, bob, alice, 1))
	assert.Equal(t, tx.TesSUCCESS, TransferNative(f.ctx, alice, alice, 30))
	assert.Equal(t, tx.TecINSUFFICIENT_FUNDS, TransferNative(f.ctx, alice, alice, 31))
	assert.Equal(t, uint64(30), f.balance(t, alice))

	require.Equal(t, tx.TesSUCCESS, CreditNative(f.ctx, bob, math.MaxUint64-20))
	assert.Equal(t, tx.TecOVERFLOW, CreditNative(f.ctx, bob, 1))
	assert.Equal(t, tx.TecOVERFLOW, TransferNative(f.ctx, alice, bob, 1))
}

func TestNative_AddressHoldsOtherEntry(t *testing.T) {
	f := newFixture()
	f.native(alice, 50)
	f.base[gold] = sle.Encode(&sle.AssetKind{Authority: alice, Decimals: 2}, 0)
	f.reset(alice, gold)

	_, r := NativeBalance(f.ctx, gold)
	assert.Equal(t, tx.TecACCOUNT_MISMATCH, r)
	assert.Equal(t, tx.TecACCOUNT_MISMATCH, CreditNative(f.ctx, gold, 1))
	assert.Equal(t, tx.TecACCOUNT_MISMATCH, TransferNative(f.ctx, alice, gold, 1))
	assert.Equal(t, tx.TecACCOUNT_MISMATCH, TransferNative(f.ctx, gold, alice, 1))
	assert.Equal(t, entry.TypeAssetKind, entry.TypeOf(f.base[gold]))
}

func TestCreateAndCloseEntry(t *testing.T) {
	f := newFixture()
	f.native(alice, 1000)
	f.reset(alice)

	asset := &sle.AssetKind{Authority: alice}
	deposit := f.ctx.Deposit(sle.EncodedSize(asset))
	k := keylet.AssetKind(gold)

	require.Equal(t, tx.TesSUCCESS, CreateEntry(f.ctx, k, asset, alice))
	assert.Equal(t, 1000-deposit, f.balance(t, alice))
	assert.Equal(t, tx.TecDUPLICATE, CreateEntry(f.ctx, k, asset, alice))
	assert.Equal(t, tx.TefBAD_AUTH, CreateEntry(f.ctx, keylet.AssetKind(lead), asset, bob))

	data, err := f.ctx.View.Read(k)
	require.NoError(t, err)
	stored, err := sle.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, deposit, stored.Deposit)
	assert.Equal(t, entry.TypeAssetKind, stored.Type)

	require.Equal(t, tx.TesSUCCESS, CloseEntry(f.ctx, k, bob))
	assert.Equal(t, deposit, f.balance(t, bob))
	assert.Equal(t, tx.TecNO_ENTRY, CloseEntry(f.ctx, k, bob))
}

func TestCreateEntry_InsufficientDeposit(t *testing.T) {
	f := newFixture()
	f.native(alice, 10)
	f.reset(alice)

	r := CreateEntry(f.ctx, keylet.AssetKind(gold), &sle.AssetKind{Authority: alice}, alice)
	assert.Equal(t, tx.TecINSUFFICIENT_FUNDS, r)
	assert.Equal(t, uint64(10), f.balance(t, alice))
}

func TestCloseHolding(t *testing.T) {
	f := newFixture()
	empty := f.holding(alice, gold, 0)
	full := f.holding(alice, lead, 1)
	f.reset(alice)

	assert.Equal(t, tx.TecHAS_OBLIGATIONS, CloseHolding(f.ctx, full, alice, tx.SignerAuthority(alice)))
	assert.Equal(t, tx.TecACCOUNT_MISMATCH, CloseHolding(f.ctx, empty, alice, tx.SignerAuthority(bob)))

	f.reset(bob)
	assert.Equal(t, tx.TefBAD_AUTH, CloseHolding(f.ctx, empty, bob, tx.SignerAuthority(alice)))

	f.reset(alice)
	require.Equal(t, tx.TesSUCCESS, CloseHolding(f.ctx, empty, bob, tx.SignerAuthority(alice)))
	_, _, r := ReadHolding(f.ctx, empty)
	assert.Equal(t, tx.TecNO_ENTRY, r)
}
