package testing

import (
	"testing"

	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/stretchr/testify/require"
)

// RequireBalance asserts that an account has the expected native balance.
func RequireBalance(t *testing.T, env *TestEnv, acc *Account, expected uint64) {
	t.Helper()
	actual := env.Balance(acc)
	require.Equal(t, expected, actual,
		"Account %s balance mismatch: expected %d, got %d", acc.Name, expected, actual)
}

// RequireAssetBalance asserts that an account holds the expected amount of asset.
func RequireAssetBalance(t *testing.T, env *TestEnv, acc *Account, asset *Asset, expected uint64) {
	t.Helper()
	actual := env.AssetBalance(acc, asset)
	require.Equal(t, expected, actual,
		"Account %s %s balance mismatch: expected %d, got %d", acc.Name, asset.Name, expected, actual)
}

// RequireTxSuccess asserts that a transaction result indicates success.
func RequireTxSuccess(t *testing.T, result TxResult) {
	t.Helper()
	require.True(t, result.Success,
		"Expected transaction success, got %s: %s", result.Code, result.Message)
	require.Equal(t, "tesSUCCESS", result.Code)
}

// RequireTxFail asserts that a transaction failed with a specific code.
func RequireTxFail(t *testing.T, result TxResult, expected tx.Result) {
	t.Helper()
	require.False(t, result.Success,
		"Expected transaction failure with code %s, but transaction succeeded", expected)
	require.Equal(t, expected.String(), result.Code,
		"Expected failure code %s, got %s: %s", expected, result.Code, result.Message)
}

// RequireOfferExists asserts that the offer with id is open and its vault
// holds the offered amount.
func RequireOfferExists(t *testing.T, env *TestEnv, id uint64) {
	t.Helper()
	o := env.Offer(id)
	require.NotNil(t, o, "Expected offer %d to exist, but it does not", id)

	k, _ := keylet.Offer(id)
	vault := env.Holding(keylet.Vault(k.Key, o.OfferedAssetKind).Key)
	require.NotNil(t, vault, "Offer %d has no vault", id)
	require.Equal(t, o.OfferedAmount, vault.Amount, "Offer %d vault balance", id)
	require.Equal(t, k.Key, vault.Owner, "Offer %d vault owner", id)
}

// RequireOfferNotExists asserts that neither the offer with id nor its
// vault for asset is stored.
func RequireOfferNotExists(t *testing.T, env *TestEnv, id uint64, asset *Asset) {
	t.Helper()
	require.Nil(t, env.Offer(id), "Expected offer %d to be closed, but it is open", id)

	k, _ := keylet.Offer(id)
	require.Nil(t, env.Holding(keylet.Vault(k.Key, asset.ID).Key), "Offer %d vault still exists", id)
}

// AssertBalanceChange runs fn and asserts that acc's native balance changed
// by exactly expectedChange.
func AssertBalanceChange(t *testing.T, env *TestEnv, acc *Account, expectedChange int64, fn func()) {
	t.Helper()
	before := env.Balance(acc)
	fn()
	after := env.Balance(acc)
	require.Equal(t, expectedChange, int64(after)-int64(before),
		"Account %s balance change mismatch", acc.Name)
}
