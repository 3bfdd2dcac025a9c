package account

import (
	"math"
	"testing"

	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/core/tx/account"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	jtx "github.com/LeJamon/offerd/internal/testing"
	"github.com/stretchr/testify/require"
)

func TestCreateAsset(t *testing.T) {
	env := jtx.NewTestEnv(t)
	issuer := env.Account("issuer")
	gold := jtx.NewAsset("gold", issuer)
	env.Fund(issuer)

	result := env.Submit(jtx.Signers(issuer, gold.Account), account.NewCreateAsset(gold.ID, issuer.ID, issuer.ID, 6))
	jtx.RequireTxSuccess(t, result)
	require.True(t, env.Exists(keylet.AssetKind(gold.ID)))
	require.Equal(t, uint64(0), env.Supply(gold))

	deposit := env.Deposit(&sle.AssetKind{})
	jtx.RequireBalance(t, env, issuer, jtx.DefaultFunding-deposit)
}

func TestCreateAsset_Duplicate(t *testing.T) {
	env := jtx.NewTestEnv(t)
	issuer := env.Account("issuer")
	gold := jtx.NewAsset("gold", issuer)
	env.Fund(issuer)
	env.CreateAsset(gold, issuer)

	result := env.Submit(jtx.Signers(issuer, gold.Account), account.NewCreateAsset(gold.ID, issuer.ID, issuer.ID, 0))
	jtx.RequireTxFail(t, result, tx.TecDUPLICATE)
}

func TestCreateAsset_RequiresAssetSignature(t *testing.T) {
	env := jtx.NewTestEnv(t)
	issuer := env.Account("issuer")
	gold := jtx.NewAsset("gold", issuer)
	env.Fund(issuer)

	result := env.Submit(jtx.Signers(issuer), account.NewCreateAsset(gold.ID, issuer.ID, issuer.ID, 0))
	jtx.RequireTxFail(t, result, tx.TefBAD_AUTH)
	require.False(t, env.Exists(keylet.AssetKind(gold.ID)))
}

func TestCreateAsset_UnfundedPayer(t *testing.T) {
	env := jtx.NewTestEnv(t)
	issuer := env.Account("issuer")
	gold := jtx.NewAsset("gold", issuer)

	result := env.Submit(jtx.Signers(issuer, gold.Account), account.NewCreateAsset(gold.ID, issuer.ID, issuer.ID, 0))
	jtx.RequireTxFail(t, result, tx.TecINSUFFICIENT_FUNDS)
}

func TestCreateHolding(t *testing.T) {
	env := jtx.NewTestEnv(t)
	issuer := env.Account("issuer")
	alice := env.Account("alice")
	gold := jtx.NewAsset("gold", issuer)
	env.Fund(issuer, alice)
	env.CreateAsset(gold, issuer)

	addr := env.CreateHolding(alice, gold)
	h := env.Holding(addr)
	require.NotNil(t, h)
	require.Equal(t, alice.ID, h.Owner)
	require.Equal(t, gold.ID, h.AssetKind)
	require.Equal(t, uint64(0), h.Amount)

	// creating it again is a no-op and charges nothing
	jtx.AssertBalanceChange(t, env, alice, 0, func() {
		env.CreateHolding(alice, gold)
	})
}

func TestCreateHolding_PaidByAnother(t *testing.T) {
	env := jtx.NewTestEnv(t)
	issuer := env.Account("issuer")
	alice := env.Account("alice")
	gold := jtx.NewAsset("gold", issuer)
	env.Fund(issuer)
	env.CreateAsset(gold, issuer)

	ins := account.NewCreateHolding(issuer.ID, alice.ID, gold.ID)
	jtx.RequireTxSuccess(t, env.Submit(jtx.Signers(issuer), ins))
	require.Equal(t, alice.ID, env.Holding(ins.Holding).Owner)
	jtx.RequireBalance(t, env, alice, 0)
}

func TestCreateHolding_Errors(t *testing.T) {
	env := jtx.NewTestEnv(t)
	issuer := env.Account("issuer")
	alice := env.Account("alice")
	gold := jtx.NewAsset("gold", issuer)
	silver := jtx.NewAsset("silver", issuer)
	env.Fund(issuer, alice)
	env.CreateAsset(gold, issuer)

	t.Run("unknown asset", func(t *testing.T) {
		result := env.Submit(jtx.Signers(alice), account.NewCreateHolding(alice.ID, alice.ID, silver.ID))
		jtx.RequireTxFail(t, result, tx.TecNO_ENTRY)
	})

	t.Run("address not derived", func(t *testing.T) {
		ins := account.NewCreateHolding(alice.ID, alice.ID, gold.ID)
		ins.Holding = issuer.ID
		jtx.RequireTxFail(t, env.Submit(jtx.Signers(alice), ins), tx.TecACCOUNT_MISMATCH)
	})

	t.Run("payer did not sign", func(t *testing.T) {
		result := env.Submit(jtx.Signers(issuer), account.NewCreateHolding(alice.ID, alice.ID, gold.ID))
		jtx.RequireTxFail(t, result, tx.TefBAD_AUTH)
	})
}

func TestMintTo(t *testing.T) {
	env := jtx.NewTestEnv(t)
	issuer := env.Account("issuer")
	alice := env.Account("alice")
	gold := jtx.NewAsset("gold", issuer)
	env.Fund(issuer, alice)
	env.CreateAsset(gold, issuer)

	env.Mint(gold, alice, 40)
	env.Mint(gold, alice, 2)
	jtx.RequireAssetBalance(t, env, alice, gold, 42)
	require.Equal(t, uint64(42), env.Supply(gold))
}

func TestMintTo_Errors(t *testing.T) {
	env := jtx.NewTestEnv(t)
	issuer := env.Account("issuer")
	alice := env.Account("alice")
	gold := jtx.NewAsset("gold", issuer)
	silver := jtx.NewAsset("silver", issuer)
	env.Fund(issuer, alice)
	env.CreateAsset(gold, issuer)
	env.CreateAsset(silver, issuer)
	goldHolding := env.CreateHolding(alice, gold)

	t.Run("zero amount", func(t *testing.T) {
		result := env.Submit(jtx.Signers(issuer), account.NewMintTo(gold.ID, goldHolding, issuer.ID, 0))
		jtx.RequireTxFail(t, result, tx.TemBAD_AMOUNT)
	})

	t.Run("not the authority", func(t *testing.T) {
		result := env.Submit(jtx.Signers(alice), account.NewMintTo(gold.ID, goldHolding, alice.ID, 1))
		jtx.RequireTxFail(t, result, tx.TecNO_PERMISSION)
	})

	t.Run("authority did not sign", func(t *testing.T) {
		result := env.Submit(jtx.Signers(alice), account.NewMintTo(gold.ID, goldHolding, issuer.ID, 1))
		jtx.RequireTxFail(t, result, tx.TefBAD_AUTH)
	})

	t.Run("holding of another asset", func(t *testing.T) {
		result := env.Submit(jtx.Signers(issuer), account.NewMintTo(silver.ID, goldHolding, issuer.ID, 1))
		jtx.RequireTxFail(t, result, tx.TecACCOUNT_MISMATCH)
	})

	t.Run("missing holding", func(t *testing.T) {
		k, _ := keylet.Holding(issuer.ID, gold.ID)
		result := env.Submit(jtx.Signers(issuer), account.NewMintTo(gold.ID, k.Key, issuer.ID, 1))
		jtx.RequireTxFail(t, result, tx.TecNO_ENTRY)
	})

	t.Run("supply overflow", func(t *testing.T) {
		env.Mint(gold, alice, math.MaxUint64)
		result := env.Submit(jtx.Signers(issuer), account.NewMintTo(gold.ID, goldHolding, issuer.ID, 1))
		jtx.RequireTxFail(t, result, tx.TecOVERFLOW)
		require.Equal(t, uint64(math.MaxUint64), env.Supply(gold))
	})
}

func TestFundNative(t *testing.T) {
	env := jtx.NewTestEnv(t)
	alice := env.Account("alice")

	env.FundAmount(alice, 5)
	env.FundAmount(alice, 7)
	jtx.RequireBalance(t, env, alice, 12)

	result := env.Submit(jtx.Signers(alice), account.NewFundNative(alice.ID, 0))
	jtx.RequireTxFail(t, result, tx.TemBAD_AMOUNT)

	result = env.Submit(jtx.Signers(alice), account.NewFundNative(alice.ID, math.MaxUint64))
	jtx.RequireTxFail(t, result, tx.TecOVERFLOW)
	jtx.RequireBalance(t, env, alice, 12)
}

func TestFundNative_AssetKindAddress(t *testing.T) {
	env := jtx.NewTestEnv(t)
	issuer := env.Account("issuer")
	gold := jtx.NewAsset("gold", issuer)
	env.Fund(issuer)
	env.CreateAsset(gold, issuer)

	result := env.Submit(jtx.Signers(issuer), account.NewFundNative(gold.ID, 10))
	jtx.RequireTxFail(t, result, tx.TecACCOUNT_MISMATCH)
	require.True(t, env.Exists(keylet.AssetKind(gold.ID)))
	require.Equal(t, uint64(0), env.Supply(gold))
}

func TestInstructionsRoundTrip(t *testing.T) {
	alice := jtx.NewAccount("alice")
	gold := jtx.NewAsset("gold", alice)

	instructions := []tx.Instruction{
		account.NewCreateAsset(gold.ID, alice.ID, alice.ID, 9),
		account.NewCreateHolding(alice.ID, alice.ID, gold.ID),
		account.NewMintTo(gold.ID, alice.ID, alice.ID, 77),
		account.NewFundNative(alice.ID, 123),
	}
	for _, in := range instructions {
		t.Run(in.TxType().String(), func(t *testing.T) {
			decoded, err := tx.DecodeInstruction(tx.EncodeInstruction(in))
			require.NoError(t, err)
			require.Equal(t, in, decoded)

			_, err = tx.DecodeInstruction(append(tx.EncodeInstruction(in), 0))
			require.ErrorIs(t, err, tx.ErrMalformed)
		})
	}
}
