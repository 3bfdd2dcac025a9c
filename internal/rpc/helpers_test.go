package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/LeJamon/offerd/internal/core/ledger"
	"github.com/LeJamon/offerd/internal/core/ledger/service"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/core/tx/account"
	offertx "github.com/LeJamon/offerd/internal/core/tx/offer"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	"github.com/LeJamon/offerd/internal/crypto"
	"github.com/LeJamon/offerd/internal/storage/database/leveldb"
	"github.com/LeJamon/offerd/internal/storage/journal"
	"github.com/LeJamon/offerd/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type testNode struct {
	svc    *service.Service
	server *httptest.Server
	nonce  atomic.Uint64
}

func newTestNode(t *testing.T, opts Options) *testNode {
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

	reg := prometheus.NewRegistry()
	svc, err := service.New(service.Config{
		Ledger:     l,
		Engine:     tx.EngineConfig{DepositBase: 1_000, DepositPerByte: 10, FaucetEnabled: true},
		Journal:    j,
		Registerer: reg,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Start(ctx))

	handler, closeFn := NewHandler(svc, HandlerConfig{Options: opts, WebSocket: true, Gatherer: reg})
	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		closeFn()
		server.Close()
	})
	return &testNode{svc: svc, server: server}
}

func addr(name string) types.Address {
	return crypto.KeypairFromName(name).Address()
}

// blob signs instructions with the named keys and returns the hex blob.
func (n *testNode) blob(t *testing.T, signers []string, ins ...tx.Instruction) string {
	t.Helper()
	txn := tx.NewTransaction(n.svc.Sequence()+100, n.nonce.Add(1), ins...)
	list := make([]tx.Signer, len(signers))
	for i, name := range signers {
		list[i] = crypto.KeypairFromName(name)
	}
	require.NoError(t, txn.Sign(list...))
	raw, err := txn.MarshalBinary()
	require.NoError(t, err)
	return hex.EncodeToString(raw)
}

func (n *testNode) mustApply(t *testing.T, signers []string, ins ...tx.Instruction) {
	t.Helper()
	raw, err := hex.DecodeString(n.blob(t, signers, ins...))
	require.NoError(t, err)
	res, err := n.svc.Submit(context.Background(), raw)
	require.NoError(t, err)
	require.True(t, res.Applied, "%s: %s", res.Result, res.Message)
}

// market funds a maker, defines asset A and B, mints 100 A to the maker
// and opens offer 7 selling 10 A for 20 B.
func (n *testNode) market(t *testing.T) {
	t.Helper()
	maker, issuer := addr("maker"), addr("issuer")
	n.mustApply(t, []string{"maker", "issuer"},
		account.NewFundNative(maker, 1_000_000),
		account.NewFundNative(issuer, 1_000_000),
	)
	n.mustApply(t, []string{"issuer", "asset:A", "asset:B"},
		account.NewCreateAsset(addr("asset:A"), issuer, issuer, 0),
		account.NewCreateAsset(addr("asset:B"), issuer, issuer, 0),
	)
	hold := account.NewCreateHolding(maker, maker, addr("asset:A"))
	n.mustApply(t, []string{"maker", "issuer"},
		hold,
		account.NewMintTo(addr("asset:A"), hold.Holding, issuer, 100),
	)
	n.mustApply(t, []string{"maker"}, offertx.NewMakeOffer(
		maker, addr("asset:A"), 7, 10, sle.AssetTerms{AssetKind: addr("asset:B"), Quantity: 20},
	))
}

// call posts a JSON-RPC request and returns the result object.
func (n *testNode) call(t *testing.T, method string, params interface{}) map[string]interface{} {
	t.Helper()
	req := map[string]interface{}{"method": method}
	if params != nil {
		req["params"] = []interface{}{params}
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)
	return n.post(t, body)
}

func (n *testNode) post(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	resp, err := http.Post(n.server.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Result map[string]interface{} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotNil(t, out.Result)
	return out.Result
}
