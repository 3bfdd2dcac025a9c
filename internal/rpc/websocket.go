package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/LeJamon/offerd/internal/core/ledger/service"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// StreamTransactions is the stream of submitted transaction outcomes
const StreamTransactions = "transactions"

const (
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsPingPeriod  = 54 * time.Second
	wsMaxMessage  = 512 * 1024
	wsSendBacklog = 256
)

// WebSocketServer handles WebSocket connections: every RPC method can be
// called over it, and subscribers receive transaction events.
type WebSocketServer struct {
	upgrader websocket.Upgrader
	registry *MethodRegistry
	timeout  time.Duration

	mu     sync.RWMutex
	conns  map[*WebSocketConnection]struct{}
	closed bool
}

// WebSocketConnection represents a single WebSocket connection
type WebSocketConnection struct {
	conn *websocket.Conn
	send chan []byte
	ctx  context.Context

	cancel    context.CancelFunc
	closeOnce sync.Once

	mu      sync.RWMutex
	streams map[string]bool
}

// NewWebSocketServer creates a new WebSocket server dispatching commands
// to registry
func NewWebSocketServer(registry *MethodRegistry, timeout time.Duration) *WebSocketServer {
	return &WebSocketServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		registry: registry,
		timeout:  timeout,
		conns:    make(map[*WebSocketConnection]struct{}),
	}
}

// Hooks returns the event hooks that feed subscribers
func (ws *WebSocketServer) Hooks() *service.EventHooks {
	return &service.EventHooks{OnTransaction: ws.BroadcastTransaction}
}

// ServeHTTP handles WebSocket upgrade requests
func (ws *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	wsConn := &WebSocketConnection{
		conn:    conn,
		send:    make(chan []byte, wsSendBacklog),
		ctx:     ctx,
		cancel:  cancel,
		streams: make(map[string]bool),
	}

	ws.mu.Lock()
	if ws.closed {
		ws.mu.Unlock()
		cancel()
		conn.Close()
		return
	}
	ws.conns[wsConn] = struct{}{}
	ws.mu.Unlock()

	go ws.writeLoop(wsConn)
	go ws.readLoop(wsConn)
}

// Close disconnects every client
func (ws *WebSocketServer) Close() {
	ws.mu.Lock()
	ws.closed = true
	conns := make([]*WebSocketConnection, 0, len(ws.conns))
	for c := range ws.conns {
		conns = append(conns, c)
	}
	ws.mu.Unlock()

	for _, c := range conns {
		ws.closeConnection(c)
	}
}

// ConnectionCount returns the number of open connections
func (ws *WebSocketServer) ConnectionCount() int {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return len(ws.conns)
}

func (ws *WebSocketServer) closeConnection(c *WebSocketConnection) {
	c.closeOnce.Do(func() {
		c.cancel()
		c.conn.Close()
		ws.mu.Lock()
		delete(ws.conns, c)
		ws.mu.Unlock()
	})
}

// readLoop processes messages from a WebSocket connection
func (ws *WebSocketServer) readLoop(c *WebSocketConnection) {
	defer ws.closeConnection(c)

	c.conn.SetReadLimit(wsMaxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("websocket read failed")
			}
			return
		}
		ws.handleMessage(c, message)
	}
}

// writeLoop sends queued messages and keeps the connection alive
func (ws *WebSocketServer) writeLoop(c *WebSocketConnection) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		ws.closeConnection(c)
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.WithError(err).Debug("websocket send failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue queues message for c. A client that cannot keep up is dropped.
func (ws *WebSocketServer) enqueue(c *WebSocketConnection, message []byte) {
	select {
	case <-c.ctx.Done():
	case c.send <- message:
	default:
		log.Warn("dropping slow websocket client")
		ws.closeConnection(c)
	}
}

// handleMessage processes a single command. Commands carry their
// parameters at the top level next to "command" and an optional "id".
func (ws *WebSocketServer) handleMessage(c *WebSocketConnection, message []byte) {
	var cmdMap map[string]interface{}
	if err := json.Unmarshal(message, &cmdMap); err != nil {
		ws.reply(c, nil, nil, nil, NewRpcError(RpcPARSE_ERROR, "jsonInvalid", "jsonInvalid", "Invalid JSON: "+err.Error()))
		return
	}

	id := cmdMap["id"]
	command, _ := cmdMap["command"].(string)
	if command == "" {
		ws.reply(c, id, cmdMap, nil, NewRpcError(RpcMISSING_COMMAND, "missingCommand", "missingCommand", "Missing command field"))
		return
	}

	params := make(map[string]interface{}, len(cmdMap))
	for k, v := range cmdMap {
		if k != "command" && k != "id" {
			params[k] = v
		}
	}
	raw, _ := json.Marshal(params)

	var (
		result interface{}
		rpcErr *RpcError
	)
	switch command {
	case "subscribe":
		result, rpcErr = ws.subscribe(c, raw, true)
	case "unsubscribe":
		result, rpcErr = ws.subscribe(c, raw, false)
	default:
		handler, ok := ws.registry.Get(command)
		if !ok {
			rpcErr = RpcErrorMethodNotFound(command)
			break
		}
		result, rpcErr = callWithTimeout(handler, &RpcContext{
			Context:  c.ctx,
			ClientIP: c.conn.RemoteAddr().String(),
		}, raw, ws.timeout)
	}
	ws.reply(c, id, cmdMap, result, rpcErr)
}

func (ws *WebSocketServer) subscribe(c *WebSocketConnection, params json.RawMessage, on bool) (interface{}, *RpcError) {
	var request struct {
		Streams []string `json:"streams"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	if len(request.Streams) == 0 {
		return nil, RpcErrorMissingField("streams")
	}
	for _, s := range request.Streams {
		if s != StreamTransactions {
			return nil, NewRpcError(RpcSTREAM_MALFORMED, "malformedStream", "malformedStream", "Unknown stream: "+s)
		}
	}

	c.mu.Lock()
	for _, s := range request.Streams {
		if on {
			c.streams[s] = true
		} else {
			delete(c.streams, s)
		}
	}
	c.mu.Unlock()
	return map[string]interface{}{}, nil
}

func (c *WebSocketConnection) subscribed(stream string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.streams[stream]
}

func (ws *WebSocketServer) reply(c *WebSocketConnection, id interface{}, request map[string]interface{}, result interface{}, rpcErr *RpcError) {
	var response map[string]interface{}
	if rpcErr != nil {
		response = errorObject(request, rpcErr)
	} else {
		response = map[string]interface{}{
			"status": "success",
			"result": result,
		}
	}
	response["type"] = "response"
	if id != nil {
		response["id"] = id
	}

	data, err := json.Marshal(response)
	if err != nil {
		log.WithError(err).Error("failed to marshal websocket response")
		return
	}
	ws.enqueue(c, data)
}

// BroadcastTransaction sends ev to every client subscribed to the
// transactions stream
func (ws *WebSocketServer) BroadcastTransaction(ev service.TransactionEvent) {
	msg, rpcErr := toMap(ev)
	if rpcErr != nil {
		log.WithField("error", rpcErr.Message).Error("failed to encode transaction event")
		return
	}
	msg["type"] = "transaction"
	data, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).Error("failed to encode transaction event")
		return
	}

	ws.mu.RLock()
	targets := make([]*WebSocketConnection, 0, len(ws.conns))
	for c := range ws.conns {
		if c.subscribed(StreamTransactions) {
			targets = append(targets, c)
		}
	}
	ws.mu.RUnlock()

	for _, c := range targets {
		ws.enqueue(c, data)
	}
}
