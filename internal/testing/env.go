package testing

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/LeJamon/offerd/internal/core/ledger"
	"github.com/LeJamon/offerd/internal/core/ledger/entry"
	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/core/tx/account"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	"github.com/LeJamon/offerd/internal/storage/database/leveldb"
	"github.com/LeJamon/offerd/internal/types"

	// register every instruction decoder
	_ "github.com/LeJamon/offerd/internal/core/tx/all"
)

// Default test ledger parameters.
const (
	DefaultDepositBase    uint64 = 1_000
	DefaultDepositPerByte uint64 = 10
	DefaultFunding        uint64 = 1_000_000_000_000

	// DefaultWindow is how many sequences past the current one a test
	// transaction stays valid.
	DefaultWindow uint64 = 100
)

// DefaultConfig returns the engine configuration used by NewTestEnv.
func DefaultConfig() tx.EngineConfig {
	return tx.EngineConfig{
		DepositBase:    DefaultDepositBase,
		DepositPerByte: DefaultDepositPerByte,
		FaucetEnabled:  true,
	}
}

// TestEnv manages a test ledger environment for instruction testing.
// It provides a simplified interface for creating accounts, funding them,
// submitting transactions, and verifying results.
type TestEnv struct {
	t        *testing.T
	ledger   *ledger.Ledger
	engine   *tx.Engine
	config   tx.EngineConfig
	accounts map[string]*Account

	nonce  atomic.Uint64
	window uint64
}

// NewTestEnv creates a new test environment over an in-memory ledger.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	return NewTestEnvWithConfig(t, DefaultConfig())
}

// NewTestEnvWithConfig creates a test environment with a custom engine
// configuration.
func NewTestEnvWithConfig(t *testing.T, cfg tx.EngineConfig) *TestEnv {
	t.Helper()

	db, err := leveldb.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open memory database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	l, err := ledger.Open(context.Background(), db, ledger.Config{CacheSize: 256})
	if err != nil {
		t.Fatalf("Failed to open ledger: %v", err)
	}
	engine, err := tx.NewEngine(l, cfg)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	return &TestEnv{
		t:        t,
		ledger:   l,
		engine:   engine,
		config:   cfg,
		accounts: make(map[string]*Account),
		window:   DefaultWindow,
	}
}

// Account returns the named account, creating it on first use.
func (e *TestEnv) Account(name string) *Account {
	if acc, ok := e.accounts[name]; ok {
		return acc
	}
	acc := NewAccount(name)
	e.accounts[name] = acc
	return acc
}

// Tx builds and signs a transaction valid for the next DefaultWindow
// sequences. Each call uses a fresh nonce, so identical instruction lists
// still produce distinct transactions. Repeated signers are signed once.
func (e *TestEnv) Tx(signers []*Account, instructions ...tx.Instruction) *tx.Transaction {
	e.t.Helper()
	return e.TxValidUntil(e.ledger.Sequence()+e.window, signers, instructions...)
}

// TxValidUntil is Tx with an explicit last valid sequence.
func (e *TestEnv) TxValidUntil(lastValid uint64, signers []*Account, instructions ...tx.Instruction) *tx.Transaction {
	e.t.Helper()

	txn := tx.NewTransaction(lastValid, e.nonce.Add(1), instructions...)
	seen := make(map[types.Address]bool, len(signers))
	list := make([]tx.Signer, 0, len(signers))
	for _, s := range signers {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		list = append(list, s)
	}
	if err := txn.Sign(list...); err != nil {
		e.t.Fatalf("Failed to sign transaction: %v", err)
	}
	return txn
}

// Apply applies a built transaction. It does not touch the testing.T and
// is safe to call from several goroutines.
func (e *TestEnv) Apply(txn *tx.Transaction) TxResult {
	return newTxResult(e.engine.Apply(context.Background(), txn))
}

// Submit builds, signs and applies a transaction.
func (e *TestEnv) Submit(signers []*Account, instructions ...tx.Instruction) TxResult {
	e.t.Helper()
	return e.Apply(e.Tx(signers, instructions...))
}

// Signers is shorthand for a signer list.
func Signers(accs ...*Account) []*Account {
	return accs
}

func (e *TestEnv) mustSucceed(what string, r TxResult) {
	e.t.Helper()
	if !r.Success {
		e.t.Fatalf("%s failed: %s: %s", what, r.Code, r.Message)
	}
}

// Fund credits DefaultFunding native units to each account.
func (e *TestEnv) Fund(accounts ...*Account) {
	e.t.Helper()
	for _, acc := range accounts {
		e.FundAmount(acc, DefaultFunding)
	}
}

// FundAmount credits amount native units to acc through the faucet.
func (e *TestEnv) FundAmount(acc *Account, amount uint64) {
	e.t.Helper()
	e.mustSucceed("fund "+acc.Name, e.Submit(Signers(acc), account.NewFundNative(acc.ID, amount)))
}

// CreateAsset defines asset, paid for by payer.
func (e *TestEnv) CreateAsset(asset *Asset, payer *Account) {
	e.t.Helper()
	e.mustSucceed("create asset "+asset.Name, e.Submit(
		Signers(payer, asset.Account),
		account.NewCreateAsset(asset.ID, payer.ID, asset.Authority.ID, 0),
	))
}

// CreateHolding opens owner's holding of asset and returns its address.
func (e *TestEnv) CreateHolding(owner *Account, asset *Asset) types.Address {
	e.t.Helper()
	ins := account.NewCreateHolding(owner.ID, owner.ID, asset.ID)
	e.mustSucceed("create holding for "+owner.Name, e.Submit(Signers(owner), ins))
	return ins.Holding
}

// Mint credits amount of asset to owner, creating the holding if needed.
func (e *TestEnv) Mint(asset *Asset, owner *Account, amount uint64) {
	e.t.Helper()
	holding := account.NewCreateHolding(owner.ID, owner.ID, asset.ID)
	e.mustSucceed("mint to "+owner.Name, e.Submit(
		Signers(owner, asset.Authority),
		holding,
		account.NewMintTo(asset.ID, holding.Holding, asset.Authority.ID, amount),
	))
}

// Balance returns the native balance of acc.
func (e *TestEnv) Balance(acc *Account) uint64 {
	e.t.Helper()
	data, err := e.ledger.Read(context.Background(), keylet.Native(acc.ID))
	if errors.Is(err, ledger.ErrNotFound) {
		return 0
	}
	if err != nil {
		e.t.Fatalf("Failed to read native account: %v", err)
	}
	n, _, err := sle.ParseNative(data)
	if err != nil {
		e.t.Fatalf("Failed to parse native account: %v", err)
	}
	return n.Balance
}

// Holding returns the holding stored at addr, or nil if there is none.
func (e *TestEnv) Holding(addr types.Address) *sle.Holding {
	e.t.Helper()
	data, err := e.ledger.Read(context.Background(), keylet.At(entry.TypeHolding, addr))
	if errors.Is(err, ledger.ErrNotFound) {
		return nil
	}
	if err != nil {
		e.t.Fatalf("Failed to read holding: %v", err)
	}
	h, _, err := sle.ParseHolding(data)
	if err != nil {
		e.t.Fatalf("Failed to parse holding: %v", err)
	}
	return h
}

// AssetBalance returns acc's balance of asset. A missing holding is zero.
func (e *TestEnv) AssetBalance(acc *Account, asset *Asset) uint64 {
	e.t.Helper()
	k, _ := keylet.Holding(acc.ID, asset.ID)
	if h := e.Holding(k.Key); h != nil {
		return h.Amount
	}
	return 0
}

// Supply returns the minted supply of asset.
func (e *TestEnv) Supply(asset *Asset) uint64 {
	e.t.Helper()
	data, err := e.ledger.Read(context.Background(), keylet.AssetKind(asset.ID))
	if err != nil {
		e.t.Fatalf("Failed to read asset: %v", err)
	}
	a, _, err := sle.ParseAssetKind(data)
	if err != nil {
		e.t.Fatalf("Failed to parse asset: %v", err)
	}
	return a.Supply
}

// Offer returns the open offer with id, or nil if none exists.
func (e *TestEnv) Offer(id uint64) *sle.Offer {
	e.t.Helper()
	k, _ := keylet.Offer(id)
	data, err := e.ledger.Read(context.Background(), k)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil
	}
	if err != nil {
		e.t.Fatalf("Failed to read offer: %v", err)
	}
	o, _, err := sle.ParseOffer(data)
	if err != nil {
		e.t.Fatalf("Failed to parse offer: %v", err)
	}
	return o
}

// Exists reports whether any entry is stored at k.
func (e *TestEnv) Exists(k keylet.Keylet) bool {
	e.t.Helper()
	ok, err := e.ledger.Exists(context.Background(), k)
	if err != nil {
		e.t.Fatalf("Failed to check entry: %v", err)
	}
	return ok
}

// Deposit returns the storage deposit an entry like en costs.
func (e *TestEnv) Deposit(en sle.Entry) uint64 {
	return e.config.DepositBase + e.config.DepositPerByte*uint64(sle.EncodedSize(en))
}

// Ledger returns the underlying ledger.
func (e *TestEnv) Ledger() *ledger.Ledger {
	return e.ledger
}

// Engine returns the transaction engine.
func (e *TestEnv) Engine() *tx.Engine {
	return e.engine
}

// LedgerSeq returns the current ledger sequence.
func (e *TestEnv) LedgerSeq() uint64 {
	return e.ledger.Sequence()
}
