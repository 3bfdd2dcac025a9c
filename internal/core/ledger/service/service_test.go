package service

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LeJamon/offerd/internal/core/ledger"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/core/tx/account"
	offertx "github.com/LeJamon/offerd/internal/core/tx/offer"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	"github.com/LeJamon/offerd/internal/crypto"
	"github.com/LeJamon/offerd/internal/storage/database/leveldb"
	"github.com/LeJamon/offerd/internal/storage/journal"
	"github.com/LeJamon/offerd/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEngine = tx.EngineConfig{
	DepositBase:    1_000,
	DepositPerByte: 10,
	FaucetEnabled:  true,
}

type fixture struct {
	ledger  *ledger.Ledger
	journal *journal.SQLJournal
	reg     *prometheus.Registry
	svc     *Service

	nonce atomic.Uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := leveldb.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	l, err := ledger.Open(ctx, db, ledger.Config{CacheSize: 64})
	require.NoError(t, err)

	j, err := journal.Open(ctx, journal.Config{
		Driver: journal.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "journal.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	f := &fixture{ledger: l, journal: j}
	f.svc, f.reg = f.newService(t)
	require.NoError(t, f.svc.Start(ctx))
	return f
}

// newService builds a second service over the same ledger and journal, as
// a restarted node would.
func (f *fixture) newService(t *testing.T) (*Service, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	svc, err := New(Config{
		Ledger:       f.ledger,
		Engine:       testEngine,
		Journal:      f.journal,
		Registerer:   reg,
		ReplayWindow: 100,
	})
	require.NoError(t, err)
	return svc, reg
}

func (f *fixture) tx(t *testing.T, signers []*crypto.Keypair, ins ...tx.Instruction) *tx.Transaction {
	t.Helper()
	txn := tx.NewTransaction(f.ledger.Sequence()+100, f.nonce.Add(1), ins...)
	list := make([]tx.Signer, len(signers))
	for i, s := range signers {
		list[i] = s
	}
	require.NoError(t, txn.Sign(list...))
	return txn
}

func (f *fixture) mustSubmit(t *testing.T, signers []*crypto.Keypair, ins ...tx.Instruction) *SubmitResult {
	t.Helper()
	res, err := f.svc.SubmitTx(context.Background(), f.tx(t, signers, ins...))
	require.NoError(t, err)
	require.True(t, res.Applied, "%s: %s", res.Result, res.Message)
	return res
}

func keys(names ...string) []*crypto.Keypair {
	out := make([]*crypto.Keypair, len(names))
	for i, n := range names {
		out[i] = crypto.KeypairFromName(n)
	}
	return out
}

func addr(name string) types.Address {
	return crypto.KeypairFromName(name).Address()
}

// market funds maker and taker, defines assets A and B and mints 100 A to
// the maker and 100 B to the taker.
func (f *fixture) market(t *testing.T) {
	t.Helper()
	maker, taker, issuer := addr("maker"), addr("taker"), addr("issuer")
	assetA, assetB := addr("asset:A"), addr("asset:B")

	f.mustSubmit(t, keys("maker", "taker", "issuer"),
		account.NewFundNative(maker, 1_000_000),
		account.NewFundNative(taker, 1_000_000),
		account.NewFundNative(issuer, 1_000_000),
	)
	f.mustSubmit(t, keys("issuer", "asset:A", "asset:B"),
		account.NewCreateAsset(assetA, issuer, issuer, 0),
		account.NewCreateAsset(assetB, issuer, issuer, 0),
	)
	holdA := account.NewCreateHolding(maker, maker, assetA)
	holdB := account.NewCreateHolding(taker, taker, assetB)
	f.mustSubmit(t, keys("maker", "taker", "issuer"),
		holdA,
		holdB,
		account.NewMintTo(assetA, holdA.Holding, issuer, 100),
		account.NewMintTo(assetB, holdB.Holding, issuer, 100),
	)
}

func (f *fixture) makeOffer(t *testing.T, id uint64) *SubmitResult {
	t.Helper()
	return f.mustSubmit(t, keys("maker"), offertx.NewMakeOffer(
		addr("maker"), addr("asset:A"), id, 10,
		sle.AssetTerms{AssetKind: addr("asset:B"), Quantity: 20},
	))
}

func TestSubmitBeforeStart(t *testing.T) {
	f := newFixture(t)
	svc, _ := f.newService(t)
	assert.False(t, svc.IsStarted())

	_, err := svc.SubmitTx(context.Background(), f.tx(t, keys("maker"), account.NewFundNative(addr("maker"), 1)))
	require.ErrorIs(t, err, ErrNotStarted)
}

func TestSubmitRejectsBadBlob(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), []byte{0x01, 0x02})
	require.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestSubmitAndQueryOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.market(t)

	res := f.makeOffer(t, 7)
	assert.Equal(t, "tesSUCCESS", res.Result)
	assert.Equal(t, f.svc.Sequence(), res.Sequence)
	assert.Equal(t, -1, res.FailedInstruction)
	assert.NotEmpty(t, res.Affected)

	info, err := f.svc.Offer(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), info.Escrowed)
	assert.Equal(t, addr("maker"), info.Offer.Maker)
	assert.Equal(t, uint64(20), info.Offer.Terms.Amount())
	assert.NotZero(t, info.Deposit)

	vault, err := f.svc.Holding(ctx, info.Vault)
	require.NoError(t, err)
	assert.Equal(t, info.Address, vault.Holding.Owner)

	maker, err := f.svc.HoldingOf(ctx, addr("maker"), addr("asset:A"))
	require.NoError(t, err)
	assert.Equal(t, uint64(90), maker.Holding.Amount)

	_, err = f.svc.Offer(ctx, 8)
	require.ErrorIs(t, err, ErrEntryNotFound)
}

func TestOffersFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.market(t)
	f.makeOffer(t, 3)
	f.makeOffer(t, 1)

	all, err := f.svc.Offers(ctx, OfferFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, uint64(1), all[0].Offer.ID)
	assert.Equal(t, uint64(3), all[1].Offer.ID)

	maker := addr("maker")
	mine, err := f.svc.Offers(ctx, OfferFilter{Maker: &maker})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	taker := addr("taker")
	none, err := f.svc.Offers(ctx, OfferFilter{Maker: &taker})
	require.NoError(t, err)
	assert.Empty(t, none)

	assetB := addr("asset:B")
	none, err = f.svc.Offers(ctx, OfferFilter{OfferedAssetKind: &assetB})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAccountQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.market(t)

	acct, err := f.svc.NativeBalance(ctx, addr("taker"))
	require.NoError(t, err)
	assert.Less(t, acct.Balance, uint64(1_000_000), "holding deposit was charged")

	asset, err := f.svc.Asset(ctx, addr("asset:A"))
	require.NoError(t, err)
	assert.Equal(t, addr("issuer"), asset.Asset.Authority)
	assert.Equal(t, uint64(100), asset.Asset.Supply)

	_, err = f.svc.NativeBalance(ctx, addr("nobody"))
	require.ErrorIs(t, err, ErrEntryNotFound)
	_, err = f.svc.HoldingOf(ctx, addr("taker"), addr("asset:A"))
	require.ErrorIs(t, err, ErrEntryNotFound)
}

func TestTxIsJournaled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.market(t)

	res := f.makeOffer(t, 1)
	got, err := f.svc.Tx(ctx, res.Hash)
	require.NoError(t, err)
	assert.True(t, got.Applied)
	assert.Equal(t, res.Sequence, got.Sequence)
	assert.Equal(t, res.Affected, got.Affected)

	parsed, err := tx.ParseTransaction(got.Raw)
	require.NoError(t, err)
	h, err := parsed.Hash()
	require.NoError(t, err)
	assert.Equal(t, res.Hash, h)

	// a rejected transaction is journaled too
	failed, err := f.svc.SubmitTx(ctx, f.tx(t, keys("maker"), offertx.NewRefundOffer(addr("maker"), 99, addr("asset:A"))))
	require.NoError(t, err)
	assert.False(t, failed.Applied)
	got, err = f.svc.Tx(ctx, failed.Hash)
	require.NoError(t, err)
	assert.False(t, got.Applied)
	assert.Equal(t, failed.Result, got.Result)

	recent, err := f.svc.RecentTxs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, failed.Hash, recent[0].Hash)

	_, err = f.svc.Tx(ctx, tx.Hash{1})
	require.ErrorIs(t, err, journal.ErrNotFound)
}

func TestReplayKeepsJournalEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.market(t)

	txn := f.tx(t, keys("maker"), account.NewFundNative(addr("maker"), 5))
	raw, err := txn.MarshalBinary()
	require.NoError(t, err)

	first, err := f.svc.Submit(ctx, raw)
	require.NoError(t, err)
	require.True(t, first.Applied)

	again, err := f.svc.Submit(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "tefALREADY", again.Result)

	got, err := f.svc.Tx(ctx, first.Hash)
	require.NoError(t, err)
	assert.True(t, got.Applied)
	assert.Equal(t, first.Sequence, got.Sequence)
}

func TestStartSeedsReplayCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn := f.tx(t, keys("maker"), account.NewFundNative(addr("maker"), 5))
	raw, err := txn.MarshalBinary()
	require.NoError(t, err)
	first, err := f.svc.Submit(ctx, raw)
	require.NoError(t, err)
	require.True(t, first.Applied)

	restarted, _ := f.newService(t)
	require.NoError(t, restarted.Start(ctx))

	again, err := restarted.Submit(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "tefALREADY", again.Result)
}

func TestTransactionEvents(t *testing.T) {
	f := newFixture(t)
	events := make(chan TransactionEvent, 4)
	remove := f.svc.Events().AddHooks(&EventHooks{
		OnTransaction: func(ev TransactionEvent) { events <- ev },
	})
	assert.True(t, f.svc.Events().HasSubscribers())

	res := f.mustSubmit(t, keys("maker"), account.NewFundNative(addr("maker"), 5))
	select {
	case ev := <-events:
		assert.Equal(t, res.Hash, ev.Hash)
		assert.True(t, ev.Applied)
		assert.Equal(t, res.Sequence, ev.Sequence)
	case <-time.After(2 * time.Second):
		t.Fatal("no transaction event")
	}

	remove()
	assert.False(t, f.svc.Events().HasSubscribers())
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustSubmit(t, keys("maker"), account.NewFundNative(addr("maker"), 5))
	_, err := f.svc.SubmitTx(ctx, f.tx(t, keys("maker"), account.NewMintTo(addr("asset:X"), addr("h"), addr("maker"), 1)))
	require.NoError(t, err)

	families, err := f.reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	var sequence float64
	for _, mf := range families {
		switch mf.GetName() {
		case "offerd_transactions_total":
			for _, m := range mf.GetMetric() {
				counts[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
			}
		case "offerd_ledger_sequence":
			sequence = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, float64(1), counts["tesSUCCESS"])
	assert.Len(t, counts, 2)
	assert.Equal(t, float64(f.svc.Sequence()), sequence)
}

func TestNewRequiresLedger(t *testing.T) {
	_, err := New(Config{Engine: testEngine})
	require.Error(t, err)
}
