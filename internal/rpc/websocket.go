package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/service"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 54 * time.Second
	wsMaxMessageSize = 512 * 1024
)

// commandExecutor runs a JSON-RPC method on behalf of a websocket client
type commandExecutor func(method string, params json.RawMessage, ctx *RpcContext) (interface{}, *RpcError)

// WebSocketServer streams committed transactions to websocket clients and
// answers JSON-RPC commands sent over the same connection.
type WebSocketServer struct {
	upgrader  websocket.Upgrader
	publisher *service.EventPublisher
	queue     int
	execute   commandExecutor
	timeout   time.Duration
	logger    logrus.FieldLogger

	mu    sync.Mutex
	conns map[*wsConnection]struct{}
}

// wsConnection is one websocket client. Only the writer goroutine writes
// to conn.
type wsConnection struct {
	conn   *websocket.Conn
	sub    *service.Subscription
	send   chan interface{}
	ctx    context.Context
	cancel context.CancelFunc
	ip     string
	role   Role

	mu       sync.RWMutex
	accounts map[string]struct{}
	escrows  map[string]struct{}
}

// streamMessage is a transaction pushed to subscribers
type streamMessage struct {
	Type string `json:"type"`
	service.TransactionEvent
}

// responseMessage answers a command sent over the socket
type responseMessage struct {
	ID     interface{} `json:"id,omitempty"`
	Type   string      `json:"type"`
	Status string      `json:"status"`
	Result interface{} `json:"result,omitempty"`

	Error        string `json:"error,omitempty"`
	ErrorCode    int    `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// NewWebSocketServer creates a new WebSocket server. queue bounds the
// events buffered per client before they are dropped.
func NewWebSocketServer(publisher *service.EventPublisher, queue int, logger logrus.FieldLogger) *WebSocketServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WebSocketServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		publisher: publisher,
		queue:     queue,
		logger:    logger.WithField("component", "websocket"),
		conns:     make(map[*wsConnection]struct{}),
	}
}

// ServeHTTP upgrades the request and starts streaming. The account and
// escrow query parameters, each repeatable, restrict the stream to
// transactions sent by those accounts or touching those escrows.
func (ws *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	accounts, escrows, rpcErr := parseFilters(query["account"], query["escrow"])
	if rpcErr != nil {
		http.Error(w, rpcErr.Message, http.StatusBadRequest)
		return
	}

	// Subscribe first so the client sees every event committed after the
	// handshake completes.
	sub := ws.publisher.Subscribe(ws.queue)
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		ws.logger.WithError(err).Debug("websocket upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &wsConnection{
		conn:     conn,
		sub:      sub,
		send:     make(chan interface{}, 16),
		ctx:      ctx,
		cancel:   cancel,
		ip:       getClientIP(r),
		role:     roleForRemote(r.RemoteAddr),
		accounts: make(map[string]struct{}),
		escrows:  make(map[string]struct{}),
	}
	c.addFilters(accounts, escrows)

	ws.mu.Lock()
	ws.conns[c] = struct{}{}
	ws.mu.Unlock()

	go ws.writeLoop(c)
	go ws.readLoop(c)
}

// ConnectionCount returns the number of open connections
func (ws *WebSocketServer) ConnectionCount() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.conns)
}

// CloseAll disconnects every client
func (ws *WebSocketServer) CloseAll() {
	ws.mu.Lock()
	conns := make([]*wsConnection, 0, len(ws.conns))
	for c := range ws.conns {
		conns = append(conns, c)
	}
	ws.mu.Unlock()

	for _, c := range conns {
		c.cancel()
	}
}

func (ws *WebSocketServer) closeConnection(c *wsConnection) {
	c.cancel()
	c.sub.Close()
	_ = c.conn.Close()

	ws.mu.Lock()
	delete(ws.conns, c)
	ws.mu.Unlock()

	if dropped := c.sub.Dropped(); dropped > 0 {
		ws.logger.WithFields(logrus.Fields{
			"client":  c.ip,
			"dropped": dropped,
		}).Warn("websocket client fell behind")
	}
}

func (ws *WebSocketServer) writeLoop(c *wsConnection) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		ws.closeConnection(c)
	}()

	for {
		var msg interface{}
		select {
		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		case ev, ok := <-c.sub.C:
			if !ok {
				return
			}
			if !c.wants(ev) {
				continue
			}
			msg = streamMessage{Type: "transaction", TransactionEvent: ev}
		case msg = <-c.send:
		}

		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			ws.logger.WithError(err).Debug("websocket send failed")
			return
		}
	}
}

func (ws *WebSocketServer) readLoop(c *wsConnection) {
	defer c.cancel()

	c.conn.SetReadLimit(wsMaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.logger.WithError(err).Debug("websocket read failed")
			}
			return
		}
		resp := ws.handleMessage(c, message)
		select {
		case c.send <- resp:
		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes one command. Commands use the XRPL websocket
// form: command and id at the top level next to the parameters.
func (ws *WebSocketServer) handleMessage(c *wsConnection, message []byte) responseMessage {
	var cmd map[string]json.RawMessage
	if err := json.Unmarshal(message, &cmd); err != nil {
		return errorResponse(nil, NewRpcError(RpcPARSE_ERROR, "jsonInvalid", "Invalid JSON: "+err.Error()))
	}

	var id interface{}
	if raw, ok := cmd["id"]; ok {
		_ = json.Unmarshal(raw, &id)
	}
	var command string
	if raw, ok := cmd["command"]; ok {
		_ = json.Unmarshal(raw, &command)
	}
	if command == "" {
		return errorResponse(id, NewRpcError(RpcMISSING_COMMAND, "missingCommand", "Missing command field"))
	}
	delete(cmd, "command")
	delete(cmd, "id")
	params, _ := json.Marshal(cmd)

	var (
		result interface{}
		rpcErr *RpcError
	)
	switch command {
	case "subscribe", "unsubscribe":
		result, rpcErr = c.updateFilters(command == "subscribe", params)
	default:
		if ws.execute == nil {
			rpcErr = RpcErrorMethodNotFound(command)
			break
		}
		timeout := ws.timeout
		if timeout <= 0 {
			timeout = wsWriteWait
		}
		ctx, cancel := context.WithTimeout(c.ctx, timeout)
		result, rpcErr = ws.execute(command, params, &RpcContext{Context: ctx, ClientIP: c.ip, Role: c.role})
		cancel()
	}
	if rpcErr != nil {
		return errorResponse(id, rpcErr)
	}
	return responseMessage{ID: id, Type: "response", Status: "success", Result: result}
}

func errorResponse(id interface{}, rpcErr *RpcError) responseMessage {
	return responseMessage{
		ID:           id,
		Type:         "response",
		Status:       "error",
		Error:        rpcErr.ErrorString,
		ErrorCode:    rpcErr.Code,
		ErrorMessage: rpcErr.Message,
	}
}

type subscribeParams struct {
	Accounts []string `json:"accounts"`
	Escrows  []string `json:"escrows"`
}

// parseFilters validates subscription filters and returns them in the
// form events carry them.
func parseFilters(accounts, escrows []string) ([]string, []string, *RpcError) {
	outAccounts := make([]string, 0, len(accounts))
	for _, a := range accounts {
		id, err := parseAccountParam("accounts", a)
		if err != nil {
			return nil, nil, err
		}
		outAccounts = append(outAccounts, id.String())
	}
	outEscrows := make([]string, 0, len(escrows))
	for _, e := range escrows {
		h, err := parseHashParam("escrows", e)
		if err != nil {
			return nil, nil, err
		}
		outEscrows = append(outEscrows, h.String())
	}
	return outAccounts, outEscrows, nil
}

func (c *wsConnection) updateFilters(add bool, params json.RawMessage) (interface{}, *RpcError) {
	var p subscribeParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	accounts, escrows, err := parseFilters(p.Accounts, p.Escrows)
	if err != nil {
		return nil, err
	}

	if add {
		c.addFilters(accounts, escrows)
	} else {
		c.removeFilters(accounts, escrows)
	}
	return map[string]interface{}{}, nil
}

func (c *wsConnection) addFilters(accounts, escrows []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range accounts {
		c.accounts[a] = struct{}{}
	}
	for _, e := range escrows {
		c.escrows[e] = struct{}{}
	}
}

func (c *wsConnection) removeFilters(accounts, escrows []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range accounts {
		delete(c.accounts, a)
	}
	for _, e := range escrows {
		delete(c.escrows, e)
	}
}

// wants reports whether ev passes the connection's filters. A connection
// with no filters receives everything.
func (c *wsConnection) wants(ev service.TransactionEvent) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.accounts) == 0 && len(c.escrows) == 0 {
		return true
	}
	if _, ok := c.accounts[ev.Account]; ok {
		return true
	}
	if ev.Escrow != "" {
		if _, ok := c.escrows[ev.Escrow]; ok {
			return true
		}
	}
	return false
}
