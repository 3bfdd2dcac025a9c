package rpc

import (
	"strings"
	"testing"
	"time"

	"github.com/LeJamon/offerd/internal/core/tx/account"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, n *testNode) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(n.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketCommands(t *testing.T) {
	n := newTestNode(t, Options{})
	conn := dialWS(t, n)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"id": 1, "command": "ledger_current"}))
	msg := readJSON(t, conn)
	assert.Equal(t, float64(1), msg["id"])
	assert.Equal(t, "response", msg["type"])
	assert.Equal(t, "success", msg["status"])
	result, ok := msg["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(n.svc.Sequence()), result["ledger_current_index"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"id": 2, "command": "account_info"}))
	msg = readJSON(t, conn)
	assert.Equal(t, float64(2), msg["id"])
	assert.Equal(t, "error", msg["status"])
	assert.Equal(t, "invalidParams", msg["error"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"id": 3}))
	msg = readJSON(t, conn)
	assert.Equal(t, "missingCommand", msg["error"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	msg = readJSON(t, conn)
	assert.Equal(t, "jsonInvalid", msg["error"])
}

func TestWebSocketTransactionStream(t *testing.T) {
	n := newTestNode(t, Options{})
	conn := dialWS(t, n)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"id": "sub", "command": "subscribe", "streams": []string{"bogus"},
	}))
	msg := readJSON(t, conn)
	assert.Equal(t, "malformedStream", msg["error"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"id": "sub", "command": "subscribe", "streams": []string{StreamTransactions},
	}))
	msg = readJSON(t, conn)
	require.Equal(t, "success", msg["status"])
	assert.Equal(t, "sub", msg["id"])

	res := n.call(t, "submit", map[string]interface{}{
		"tx_blob": n.blob(t, []string{"alice"}, account.NewFundNative(addr("alice"), 5)),
	})
	require.Equal(t, "tesSUCCESS", res["engine_result"])

	msg = readJSON(t, conn)
	assert.Equal(t, "transaction", msg["type"])
	assert.Equal(t, res["hash"], msg["hash"])
	assert.Equal(t, "tesSUCCESS", msg["engine_result"])
	assert.Equal(t, true, msg["applied"])
	assert.NotEmpty(t, msg["affected"])
}

func TestWebSocketUnsubscribe(t *testing.T) {
	n := newTestNode(t, Options{})
	conn := dialWS(t, n)

	for _, cmd := range []string{"subscribe", "unsubscribe"} {
		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"command": cmd, "streams": []string{StreamTransactions},
		}))
		require.Equal(t, "success", readJSON(t, conn)["status"])
	}

	n.call(t, "submit", map[string]interface{}{
		"tx_blob": n.blob(t, []string{"alice"}, account.NewFundNative(addr("alice"), 5)),
	})

	// the next message is the ping reply, not a transaction event
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"id": 9, "command": "ping"}))
	msg := readJSON(t, conn)
	assert.Equal(t, "response", msg["type"])
	assert.Equal(t, float64(9), msg["id"])
}

func TestWebSocketServerClose(t *testing.T) {
	ws := NewWebSocketServer(NewMethodRegistry(), time.Second)
	ws.Close()
	assert.Equal(t, 0, ws.ConnectionCount())
}
