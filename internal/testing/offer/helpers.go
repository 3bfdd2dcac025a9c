package offer

import (
	"testing"

	"github.com/LeJamon/offerd/internal/core/tx/sle"
	jtx "github.com/LeJamon/offerd/internal/testing"
)

const (
	// startingA is the maker's balance of the offered asset.
	startingA uint64 = 1_000
	// startingB is the taker's balance of the payment asset.
	startingB uint64 = 1_000
)

// market is a funded maker and taker trading assets A and B.
type market struct {
	env    *jtx.TestEnv
	issuer *jtx.Account
	maker  *jtx.Account
	taker  *jtx.Account
	A      *jtx.Asset
	B      *jtx.Asset
}

func newMarket(t *testing.T) *market {
	t.Helper()
	env := jtx.NewTestEnv(t)

	m := &market{
		env:    env,
		issuer: env.Account("issuer"),
		maker:  env.Account("maker"),
		taker:  env.Account("taker"),
	}
	m.A = jtx.NewAsset("A", m.issuer)
	m.B = jtx.NewAsset("B", m.issuer)

	env.Fund(m.issuer, m.maker, m.taker)
	env.CreateAsset(m.A, m.issuer)
	env.CreateAsset(m.B, m.issuer)
	env.Mint(m.A, m.maker, startingA)
	env.Mint(m.B, m.taker, startingB)
	return m
}

// offerDeposit is what the maker pays to open an offer with terms.
func (m *market) offerDeposit(terms sle.PaymentTerms) uint64 {
	return m.env.Deposit(&sle.Offer{Terms: terms}) + m.env.Deposit(&sle.Holding{})
}

// open makes offer id for amount of A and requires it to succeed.
func (m *market) open(t *testing.T, b *MakeOfferBuilder) {
	t.Helper()
	jtx.RequireTxSuccess(t, m.env.Submit(jtx.Signers(m.maker), b.Build()))
}
