package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goEscrowd/internal/config"
	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/ledger/service"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
	"github.com/LeJamon/goEscrowd/internal/core/tx/escrow"
	"github.com/LeJamon/goEscrowd/internal/core/tx/mint"
	jtx "github.com/LeJamon/goEscrowd/internal/testing"
	"github.com/LeJamon/goEscrowd/internal/types"
)

type recordingMetrics struct {
	mu        sync.Mutex
	calls     map[string]int
	failures  map[string]int
	throttled int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{calls: map[string]int{}, failures: map[string]int{}}
}

func (m *recordingMetrics) ObserveRPC(method string, failed bool, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
	if failed {
		m.failures[method]++
	}
}

func (m *recordingMetrics) RecordThrottle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.throttled++
}

func (m *recordingMetrics) count(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *recordingMetrics) failed(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[method]
}

func (m *recordingMetrics) throttles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.throttled
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Listen:          "127.0.0.1:0",
		RequestTimeout:  5 * time.Second,
		ShutdownTimeout: time.Second,
		MaxBodyBytes:    1 << 20,
		SendQueueLimit:  16,
	}
}

// rpcHarness runs a Server over httptest against a service that checks
// signatures. Every transaction is signed by its account's key.
type rpcHarness struct {
	t       *testing.T
	svc     *service.Service
	server  *Server
	http    *httptest.Server
	metrics *recordingMetrics
	seqs    map[string]uint32

	alice, bob *jtx.Account
	x, y       types.AssetID
}

func newRPCHarness(t *testing.T, cfg config.ServerConfig) *rpcHarness {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svcCfg := service.DefaultConfig()
	svcCfg.Logger = logger
	svc, err := service.New(svcCfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })

	metrics := newRecordingMetrics()
	server := NewServer(cfg, svc, WithLogger(logger), WithMetrics(metrics, nil))
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	h := &rpcHarness{
		t:       t,
		svc:     svc,
		server:  server,
		http:    ts,
		metrics: metrics,
		seqs:    make(map[string]uint32),
		alice:   jtx.NewAccount("alice"),
		bob:     jtx.NewAccount("bob"),
	}
	require.NoError(t, svc.Fund(h.alice.ID, jtx.DefaultFunding))
	require.NoError(t, svc.Fund(h.bob.ID, jtx.DefaultFunding))
	return h
}

// call posts a JSON-RPC request and returns the result object
func (h *rpcHarness) call(method string, params interface{}) map[string]interface{} {
	h.t.Helper()

	body := map[string]interface{}{"method": method}
	if params != nil {
		body["params"] = []interface{}{params}
	}
	data, err := json.Marshal(body)
	require.NoError(h.t, err)

	resp, err := http.Post(h.http.URL, "application/json", bytes.NewReader(data))
	require.NoError(h.t, err)
	defer resp.Body.Close()
	require.Equal(h.t, http.StatusOK, resp.StatusCode)

	var out struct {
		Result map[string]interface{} `json:"result"`
	}
	require.NoError(h.t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Result
}

func (h *rpcHarness) submit(acc *jtx.Account, t tx.Transaction) map[string]interface{} {
	h.t.Helper()

	seq, ok := h.seqs[acc.Address]
	if !ok {
		seq = 1
	}
	t.GetCommon().SetSequence(seq)
	require.NoError(h.t, tx.Sign(t, acc.Keypair))
	txJSON, err := tx.ToJSON(t)
	require.NoError(h.t, err)

	result := h.call("submit", map[string]interface{}{"tx_json": json.RawMessage(txJSON)})
	require.Equal(h.t, "success", result["status"], "submit failed: %v", result)
	if result["applied"] == true {
		h.seqs[acc.Address] = seq + 1
	}
	return result
}

func (h *rpcHarness) mustApply(acc *jtx.Account, t tx.Transaction) map[string]interface{} {
	h.t.Helper()
	result := h.submit(acc, t)
	require.Equal(h.t, "tesSUCCESS", result["engine_result"], "unexpected result: %v", result)
	return result
}

func (h *rpcHarness) issueAssets() {
	h.t.Helper()
	h.mustApply(h.alice, mint.NewAssetCreate(h.alice.ID, "XXX", 2))
	h.mustApply(h.bob, mint.NewAssetCreate(h.bob.ID, "YYY", 0))
	h.x = keylet.AssetID(h.alice.ID, "XXX")
	h.y = keylet.AssetID(h.bob.ID, "YYY")
	h.mustApply(h.alice, mint.NewAssetIssue(h.alice.ID, h.x, h.alice.ID, 10000))
	h.mustApply(h.bob, mint.NewAssetIssue(h.bob.ID, h.y, h.bob.ID, 50))
}

func TestSwapOverRPC(t *testing.T) {
	h := newRPCHarness(t, testServerConfig())
	h.issueAssets()

	derived := h.call("escrow_derive", map[string]interface{}{
		"seller":        h.alice.Address,
		"offer_asset":   h.x.String(),
		"request_asset": h.y.String(),
	})
	require.Equal(t, "success", derived["status"])
	addr := service.DeriveEscrow(h.alice.ID, h.x, h.y)
	assert.Equal(t, addr.Escrow.String(), derived["escrow"])
	assert.Equal(t, addr.Vault.String(), derived["vault"])

	create := escrow.NewEscrowCreate(h.alice.ID, h.x, h.y, 1000, 20)
	created := h.mustApply(h.alice, create)
	wantHash, err := tx.ComputeHash(create)
	require.NoError(t, err)
	assert.Equal(t, wantHash.String(), created["hash"])
	assert.Equal(t, true, created["applied"])
	assert.NotNil(t, created["meta"])

	info := h.call("escrow_info", map[string]interface{}{"escrow": addr.Escrow.String()})
	require.Equal(t, "success", info["status"])
	node := info["node"].(map[string]interface{})
	assert.Equal(t, "open", node["Status"])
	assert.Equal(t, "10.00", node["OfferAmount"])
	assert.Equal(t, "20", node["RequestAmount"])
	assert.Equal(t, "10.00", info["vault_balance"])
	assert.Equal(t, wantHash.String(), node["CreateTxnID"])

	// The natural key finds the same escrow.
	byKey := h.call("escrow_info", map[string]interface{}{
		"seller":        h.alice.Address,
		"offer_asset":   h.x.String(),
		"request_asset": h.y.String(),
	})
	assert.Equal(t, addr.Escrow.String(), byKey["index"])

	list := h.call("escrow_list", map[string]interface{}{"status": "open"})
	require.Equal(t, "success", list["status"])
	require.Len(t, list["escrows"], 1)

	h.mustApply(h.bob, escrow.NewEscrowAccept(h.bob.ID, h.alice.ID, h.x, h.y))

	info = h.call("escrow_info", map[string]interface{}{"escrow": addr.Escrow.String()})
	node = info["node"].(map[string]interface{})
	assert.Equal(t, "closed", node["Status"])
	assert.Equal(t, "settled", node["Outcome"])
	assert.Equal(t, h.bob.Address, node["Buyer"])
	assert.Equal(t, "0.00", info["vault_balance"])

	holding := h.call("holding_info", map[string]interface{}{"account": h.bob.Address, "asset": h.x.String()})
	require.Equal(t, "success", holding["status"])
	assert.Equal(t, "10.00", holding["holding"].(map[string]interface{})["Balance"])

	holding = h.call("holding_info", map[string]interface{}{"account": h.alice.Address, "asset": h.y.String()})
	assert.Equal(t, "20", holding["holding"].(map[string]interface{})["Balance"])

	list = h.call("escrow_list", map[string]interface{}{"status": "open"})
	assert.Empty(t, list["escrows"])
	list = h.call("escrow_list", map[string]interface{}{"buyer": h.bob.Address})
	require.Len(t, list["escrows"], 1)

	acct := h.call("account_info", map[string]interface{}{"account": h.alice.Address})
	data := acct["account_data"].(map[string]interface{})
	assert.Equal(t, float64(4), data["Sequence"])

	asset := h.call("asset_info", map[string]interface{}{"asset": h.x.String()})
	assert.Equal(t, "100.00", asset["asset"].(map[string]interface{})["Supply"])

	assert.Equal(t, 1, h.metrics.count("escrow_derive"))
	assert.Zero(t, h.metrics.failed("submit"))
}

func TestSubmitRejections(t *testing.T) {
	h := newRPCHarness(t, testServerConfig())
	h.issueAssets()

	// Accepting an escrow that does not exist fails without applying.
	result := h.submit(h.bob, escrow.NewEscrowAccept(h.bob.ID, h.alice.ID, h.x, h.y))
	assert.Equal(t, false, result["applied"])
	assert.NotEqual(t, "tesSUCCESS", result["engine_result"])
	assert.Nil(t, result["meta"])

	// A transaction signed by the wrong key is refused.
	forged := escrow.NewEscrowCreate(h.alice.ID, h.x, h.y, 10, 5)
	forged.GetCommon().SetSequence(h.seqs[h.alice.Address])
	require.NoError(t, tx.Sign(forged, h.bob.Keypair))
	txJSON, err := tx.ToJSON(forged)
	require.NoError(t, err)
	result = h.call("submit", map[string]interface{}{"tx_json": json.RawMessage(txJSON)})
	assert.Equal(t, "tefBAD_SIGNATURE", result["engine_result"])
	assert.Equal(t, false, result["applied"])

	result = h.call("submit", map[string]interface{}{"tx_json": map[string]interface{}{
		"TransactionType": "Nope",
		"Account":         h.alice.Address,
	}})
	assert.Equal(t, "error", result["status"])
	assert.Equal(t, float64(RpcINVALID_FIELD), result["error_code"])

	result = h.call("submit", map[string]interface{}{})
	assert.Equal(t, "error", result["status"])
	assert.Equal(t, "invalidParams", result["error"])
}

func TestQueryErrors(t *testing.T) {
	h := newRPCHarness(t, testServerConfig())
	stranger := jtx.NewAccount("carol")

	tests := []struct {
		name    string
		method  string
		params  interface{}
		errName string
	}{
		{"unknown method", "no_such_method", nil, "unknownCmd"},
		{"missing account", "account_info", map[string]interface{}{}, "invalidParams"},
		{"malformed account", "account_info", map[string]interface{}{"account": "not-an-address"}, "actMalformed"},
		{"unfunded account", "account_info", map[string]interface{}{"account": stranger.Address}, "actNotFound"},
		{"unknown escrow", "escrow_info", map[string]interface{}{"escrow": strings.Repeat("AB", 32)}, "entryNotFound"},
		{"malformed escrow", "escrow_info", map[string]interface{}{"escrow": "zz"}, "invalidHash"},
		{"bad status", "escrow_list", map[string]interface{}{"status": "pending"}, "invalidField"},
		{"negative limit", "escrow_list", map[string]interface{}{"limit": -1}, "invalidField"},
		{"history without index", "tx", map[string]interface{}{"transaction": strings.Repeat("00", 32)}, "notEnabled"},
		{"account_tx without index", "account_tx", map[string]interface{}{"account": h.alice.Address}, "notEnabled"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := h.call(tc.method, tc.params)
			assert.Equal(t, "error", result["status"])
			assert.Equal(t, tc.errName, result["error"])
		})
	}
	assert.Equal(t, 1, h.metrics.failed("unknown"))
}

func TestMalformedRequests(t *testing.T) {
	h := newRPCHarness(t, testServerConfig())

	post := func(body string) map[string]interface{} {
		resp, err := http.Post(h.http.URL, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		var out struct {
			Result map[string]interface{} `json:"result"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out.Result
	}

	assert.Equal(t, "jsonInvalid", post("{")["error"])
	assert.Equal(t, "missingCommand", post(`{"params":[{}]}`)["error"])
}

func TestGetRequestAndHealth(t *testing.T) {
	h := newRPCHarness(t, testServerConfig())

	resp, err := http.Get(h.http.URL + "/")
	require.NoError(t, err)
	var out struct {
		Result map[string]interface{} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	assert.Equal(t, "success", out.Result["status"])
	info := out.Result["info"].(map[string]interface{})
	assert.Equal(t, false, info["index_enabled"])
	assert.Equal(t, float64(200), info["reserve_base"])

	resp, err = http.Get(h.http.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// No metrics handler was configured.
	resp, err = http.Get(h.http.URL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestMetricsEndpoint(t *testing.T) {
	svc, err := service.New(service.DefaultConfig())
	require.NoError(t, err)
	defer svc.Stop(context.Background())

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "escrowd_up 1\n")
	})
	server := NewServer(testServerConfig(), svc, WithMetrics(noopMetrics{}, handler))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "escrowd_up")
}

func TestRateLimitedServer(t *testing.T) {
	cfg := testServerConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 2
	h := newRPCHarness(t, cfg)

	for i := 0; i < 2; i++ {
		assert.Equal(t, "success", h.call("ping", nil)["status"])
	}

	resp, err := http.Post(h.http.URL, "application/json", strings.NewReader(`{"method":"ping"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	assert.Equal(t, 1, h.metrics.throttles())

	// Health checks are not limited.
	resp, err = http.Get(h.http.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBodyLimit(t *testing.T) {
	cfg := testServerConfig()
	cfg.MaxBodyBytes = 64
	h := newRPCHarness(t, cfg)

	body := `{"method":"ping","params":[{"pad":"` + strings.Repeat("x", 128) + `"}]}`
	resp, err := http.Post(h.http.URL, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out struct {
		Result map[string]interface{} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "invalidParams", out.Result["error"])
}

func dialStream(t *testing.T, h *rpcHarness, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
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

func TestWebSocketStream(t *testing.T) {
	h := newRPCHarness(t, testServerConfig())
	conn := dialStream(t, h, "?account="+h.alice.Address)

	// bob's transaction is filtered out; alice's arrives.
	h.mustApply(h.bob, mint.NewAssetCreate(h.bob.ID, "YYY", 0))
	created := h.mustApply(h.alice, mint.NewAssetCreate(h.alice.ID, "XXX", 2))

	msg := readJSON(t, conn)
	assert.Equal(t, "transaction", msg["type"])
	assert.Equal(t, created["hash"], msg["hash"])
	assert.Equal(t, "AssetCreate", msg["transaction_type"])
	assert.Equal(t, h.alice.Address, msg["account"])
	assert.Equal(t, "tesSUCCESS", msg["engine_result"])
}

func TestWebSocketCommands(t *testing.T) {
	h := newRPCHarness(t, testServerConfig())
	h.issueAssets()
	// An unmatched filter keeps transactions off this connection.
	conn := dialStream(t, h, "?escrow="+strings.Repeat("00", 32))

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"id":            7,
		"command":       "escrow_derive",
		"seller":        h.alice.Address,
		"offer_asset":   h.x.String(),
		"request_asset": h.y.String(),
	}))
	msg := readJSON(t, conn)
	assert.Equal(t, "response", msg["type"])
	assert.Equal(t, float64(7), msg["id"])
	assert.Equal(t, "success", msg["status"])
	result := msg["result"].(map[string]interface{})
	assert.Equal(t, service.DeriveEscrow(h.alice.ID, h.x, h.y).Escrow.String(), result["escrow"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"id": 8}))
	msg = readJSON(t, conn)
	assert.Equal(t, "error", msg["status"])
	assert.Equal(t, "missingCommand", msg["error"])

	// Subscribing to the escrow address delivers its creation.
	escrowKey := service.DeriveEscrow(h.alice.ID, h.x, h.y).Escrow.String()
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"id":      9,
		"command": "subscribe",
		"escrows": []string{escrowKey},
	}))
	msg = readJSON(t, conn)
	assert.Equal(t, "success", msg["status"])

	h.mustApply(h.alice, escrow.NewEscrowCreate(h.alice.ID, h.x, h.y, 10, 5))
	msg = readJSON(t, conn)
	assert.Equal(t, "transaction", msg["type"])
	assert.Equal(t, escrowKey, msg["escrow"])
}

func TestWebSocketRejectsBadFilter(t *testing.T) {
	h := newRPCHarness(t, testServerConfig())

	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/ws?account=bogus"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, h.svc.Publisher().SubscriberCount())
}

func TestRunShutsDown(t *testing.T) {
	svc, err := service.New(service.DefaultConfig())
	require.NoError(t, err)
	defer svc.Stop(context.Background())

	cfg := testServerConfig()
	cfg.RateLimit = 10
	cfg.RateBurst = 10
	server := NewServer(cfg, svc)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestFundRequiresAdmin(t *testing.T) {
	h := newRPCHarness(t, testServerConfig())
	carol := jtx.NewAccount("carol")

	// httptest connections arrive over loopback.
	result := h.call("fund", map[string]interface{}{"account": carol.Address, "amount": "750"})
	require.Equal(t, "success", result["status"], "%v", result)
	assert.Equal(t, float64(750), result["balance"])

	result = h.call("fund", map[string]interface{}{"account": carol.Address, "amount": "0"})
	assert.Equal(t, "invalidField", result["error"])

	remote := &RpcContext{Context: context.Background(), ClientIP: "203.0.113.9", Role: RoleGuest}
	params, err := json.Marshal(map[string]interface{}{"account": carol.Address, "amount": "1"})
	require.NoError(t, err)
	_, rpcErr := h.server.executeMethod("fund", params, remote)
	require.NotNil(t, rpcErr)
	assert.Equal(t, RpcNO_PERMISSION, rpcErr.Code)

	info, err := h.svc.GetAccountInfo(carol.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(750), info.Balance)
}

func TestRoleForRemote(t *testing.T) {
	assert.Equal(t, RoleAdmin, roleForRemote("127.0.0.1:5555"))
	assert.Equal(t, RoleAdmin, roleForRemote("[::1]:5555"))
	assert.Equal(t, RoleGuest, roleForRemote("10.1.2.3:5555"))
	assert.Equal(t, RoleGuest, roleForRemote("garbage"))
}
