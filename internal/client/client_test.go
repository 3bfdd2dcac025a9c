package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/LeJamon/offerd/internal/core/ledger"
	"github.com/LeJamon/offerd/internal/core/ledger/service"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/core/tx/account"
	offertx "github.com/LeJamon/offerd/internal/core/tx/offer"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	"github.com/LeJamon/offerd/internal/crypto"
	"github.com/LeJamon/offerd/internal/rpc"
	"github.com/LeJamon/offerd/internal/storage/database/leveldb"
	"github.com/LeJamon/offerd/internal/storage/journal"
	"github.com/LeJamon/offerd/internal/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNode(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()

	db, err := leveldb.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	l, err := ledger.Open(ctx, db, ledger.Config{})
	require.NoError(t, err)

	j, err := journal.Open(ctx, journal.Config{
		Driver: journal.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "journal.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	svc, err := service.New(service.Config{
		Ledger:  l,
		Engine:  tx.EngineConfig{DepositBase: 1_000, DepositPerByte: 10, FaucetEnabled: true},
		Journal: j,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Start(ctx))

	handler, closeFn := rpc.NewHandler(svc, rpc.HandlerConfig{})
	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		closeFn()
		server.Close()
	})
	return New(server.URL, WithRetries(2, func() backoff.BackOff { return &backoff.ZeroBackOff{} }))
}

func key(name string) *crypto.Keypair {
	return crypto.KeypairFromName(name)
}

func signers(names ...string) []tx.Signer {
	out := make([]tx.Signer, len(names))
	for i, n := range names {
		out[i] = key(n)
	}
	return out
}

func addr(name string) types.Address {
	return key(name).Address()
}

func mustConfirm(t *testing.T, c *Client, names []string, ins ...tx.Instruction) *SubmitResult {
	t.Helper()
	res, err := c.SubmitAndConfirm(context.Background(), signers(names...), ins...)
	require.NoError(t, err)
	require.True(t, res.Applied)
	return res
}

func TestNativeSettlement(t *testing.T) {
	c := newNode(t)
	ctx := context.Background()
	maker, taker, issuer := addr("maker"), addr("taker"), addr("issuer")
	asset := addr("asset:A")

	require.NoError(t, c.Ping(ctx))
	info, err := c.ServerInfo(ctx)
	require.NoError(t, err)
	assert.True(t, info.FaucetEnabled)
	assert.Equal(t, uint64(1_000), info.DepositBase)
	assert.Contains(t, info.Methods, "submit")

	mustConfirm(t, c, []string{"maker", "taker", "issuer"},
		account.NewFundNative(maker, 1_000_000),
		account.NewFundNative(taker, 1_000_000),
		account.NewFundNative(issuer, 1_000_000),
	)
	mustConfirm(t, c, []string{"issuer", "asset:A"}, account.NewCreateAsset(asset, issuer, issuer, 2))
	makerHold := account.NewCreateHolding(maker, maker, asset)
	mustConfirm(t, c, []string{"maker", "issuer"},
		makerHold,
		account.NewMintTo(asset, makerHold.Holding, issuer, 100),
	)
	made := mustConfirm(t, c, []string{"maker"},
		offertx.NewMakeOffer(maker, asset, 1, 40, sle.NativeTerms{Quantity: 5_000}),
	)

	offer, err := c.Offer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), offer.Escrowed)
	assert.Equal(t, sle.NativeTerms{Quantity: 5_000}, offer.Offer.Terms)

	offers, err := c.Offers(ctx, service.OfferFilter{Maker: &maker})
	require.NoError(t, err)
	require.Len(t, offers, 1)

	hold, err := c.HoldingOf(ctx, maker, asset)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), hold.Holding.Amount)

	def, err := c.Asset(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), def.Asset.Supply)
	assert.Equal(t, uint8(2), def.Asset.Decimals)

	takerHold := account.NewCreateHolding(taker, taker, asset)
	mustConfirm(t, c, []string{"taker"},
		takerHold,
		offertx.NewTakeOfferWithNative(taker, maker, 1, asset),
	)

	_, err = c.Offer(ctx, 1)
	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "entryNotFound", rpcErr.Name)

	got, err := c.Holding(ctx, takerHold.Holding)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), got.Holding.Amount)

	before, err := c.Account(ctx, taker)
	require.NoError(t, err)
	assert.Less(t, before.Balance, uint64(1_000_000-5_000))

	journaled, err := c.Tx(ctx, made.Hash)
	require.NoError(t, err)
	assert.True(t, journaled.Applied)
	assert.Equal(t, made.Sequence, journaled.Sequence)

	history, err := c.TxHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, journaled.Hash, history[1].Hash)
}

func TestRejectedTransactionIsNotRetried(t *testing.T) {
	c := newNode(t)
	ctx := context.Background()

	before, err := c.LedgerCurrent(ctx)
	require.NoError(t, err)

	_, err = c.SubmitAndConfirm(ctx, signers("maker"),
		offertx.NewMakeOffer(addr("maker"), addr("asset:A"), 1, 10, sle.NativeTerms{Quantity: 1}),
	)
	var txErr *TxError
	require.ErrorAs(t, err, &txErr)
	assert.False(t, txErr.Result.Applied)
	assert.NotEqual(t, tx.TesSUCCESS.String(), txErr.Result.Result)

	after, err := c.LedgerCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	history, err := c.TxHistory(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

// scriptedNode answers ledger_current with 1 and every other method with
// the next reply from its script.
type scriptedNode struct {
	mu      sync.Mutex
	calls   []string
	blobs   []string
	replies []func(w http.ResponseWriter)
}

func (s *scriptedNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string                   `json:"method"`
		Params []map[string]interface{} `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Method == "ledger_current" {
		reply(w, map[string]interface{}{"ledger_current_index": 1})
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, req.Method)
	if req.Method == "submit" {
		s.blobs = append(s.blobs, req.Params[0]["tx_blob"].(string))
	}
	next := s.replies[0]
	s.replies = s.replies[1:]
	s.mu.Unlock()
	next(w)
}

func reply(w http.ResponseWriter, result map[string]interface{}) {
	if _, ok := result["status"]; !ok {
		result["status"] = "success"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": result})
}

func engine(r tx.Result) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		reply(w, map[string]interface{}{
			"engine_result":      r.String(),
			"engine_result_code": int(r),
			"applied":            r == tx.TesSUCCESS,
			"failed_instruction": -1,
		})
	}
}

func notFound(w http.ResponseWriter) {
	reply(w, map[string]interface{}{"status": "error", "error": "txnNotFound", "error_code": 29})
}

func unavailable(w http.ResponseWriter) {
	http.Error(w, "busy", http.StatusServiceUnavailable)
}

func scripted(t *testing.T, replies ...func(w http.ResponseWriter)) (*Client, *scriptedNode) {
	t.Helper()
	node := &scriptedNode{replies: replies}
	server := httptest.NewServer(node)
	t.Cleanup(server.Close)
	c := New(server.URL, WithRetries(3, func() backoff.BackOff { return &backoff.ZeroBackOff{} }))
	return c, node
}

func fund() tx.Instruction {
	return account.NewFundNative(addr("alice"), 10)
}

func TestExpiredTransactionIsRebuilt(t *testing.T) {
	c, node := scripted(t, engine(tx.TefMAX_LEDGER), engine(tx.TesSUCCESS))

	res, err := c.SubmitAndConfirm(context.Background(), signers("alice"), fund())
	require.NoError(t, err)
	assert.True(t, res.Applied)

	assert.Equal(t, []string{"submit", "submit"}, node.calls)
	require.Len(t, node.blobs, 2)
	assert.NotEqual(t, node.blobs[0], node.blobs[1])
}

func TestTransportFailureResubmitsSameTransaction(t *testing.T) {
	c, node := scripted(t, unavailable, notFound, engine(tx.TesSUCCESS))

	res, err := c.SubmitAndConfirm(context.Background(), signers("alice"), fund())
	require.NoError(t, err)
	assert.True(t, res.Applied)

	assert.Equal(t, []string{"submit", "tx", "submit"}, node.calls)
	require.Len(t, node.blobs, 2)
	assert.Equal(t, node.blobs[0], node.blobs[1])
}

func TestTransportFailureFindsJournaledResult(t *testing.T) {
	applied := func(w http.ResponseWriter) {
		reply(w, map[string]interface{}{
			"engine_result": "tesSUCCESS",
			"applied":       true,
			"ledger_index":  2,
		})
	}
	c, node := scripted(t, unavailable, applied)

	res, err := c.SubmitAndConfirm(context.Background(), signers("alice"), fund())
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, uint64(2), res.Sequence)
	assert.Equal(t, []string{"submit", "tx"}, node.calls)
}

func TestRetriesAreBounded(t *testing.T) {
	replies := make([]func(w http.ResponseWriter), 4)
	for i := range replies {
		replies[i] = engine(tx.TefMAX_LEDGER)
	}
	c, node := scripted(t, replies...)

	_, err := c.SubmitAndConfirm(context.Background(), signers("alice"), fund())
	assert.True(t, errors.Is(err, ErrExpired))
	assert.Len(t, node.calls, 4)
}

func TestNodeErrorIsPermanent(t *testing.T) {
	c, node := scripted(t, func(w http.ResponseWriter) {
		reply(w, map[string]interface{}{
			"status":        "error",
			"error":         "invalidTransaction",
			"error_code":    31,
			"error_message": "bad blob",
		})
	})

	_, err := c.SubmitAndConfirm(context.Background(), signers("alice"), fund())
	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "invalidTransaction", rpcErr.Name)
	assert.Equal(t, "invalidTransaction: bad blob", rpcErr.Error())
	assert.Len(t, node.calls, 1)
}
