package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeswap/internal/ledger"
	"freeswap/internal/middleware"
	"freeswap/internal/session"
	"freeswap/internal/vault"
	"freeswap/internal/wallet"
	apperrors "freeswap/pkg/errors"
	"freeswap/pkg/logger"
	"freeswap/pkg/validator"
)

// stubNode is a canned ledger node for handler tests.
type stubNode struct {
	mu        sync.Mutex
	available int64
	submitted []*ledger.TransferRequest
	submitErr error
}

func (n *stubNode) Balance(ctx context.Context, address string) (*ledger.BalanceSnapshot, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return &ledger.BalanceSnapshot{
		BaseCoin: ledger.CoinBalance{Available: n.available, Total: n.available},
	}, nil
}

func (n *stubNode) SubmitTransfer(ctx context.Context, req *ledger.TransferRequest) (*ledger.Transfer, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.submitErr != nil {
		return nil, n.submitErr
	}
	n.submitted = append(n.submitted, req)
	return &ledger.Transfer{ID: fmt.Sprintf("0x%02x", len(n.submitted)), Amount: 1, Timestamp: 1}, nil
}

func (n *stubNode) Transactions(ctx context.Context, address string) ([]ledger.Transfer, error) {
	return []ledger.Transfer{
		{ID: "0x01", Amount: 100, Incoming: true},
		{ID: "0x02", Amount: 200, Incoming: false},
	}, nil
}

func (n *stubNode) submitCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.submitted)
}

type testEnv struct {
	srv      *httptest.Server
	node     *stubNode
	sessions *session.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := logger.NewNop()
	node := &stubNode{available: 5_000_000}
	wallets := wallet.NewService(vault.NewManager(t.TempDir()), node, "smr", log)
	sessions := session.NewStore(time.Hour, time.Minute, log)
	t.Cleanup(sessions.Stop)

	val := validator.New()
	authHandler := NewAuthHandler(wallets, sessions, val, log)
	walletHandler := NewWalletHandler(wallets, "smr", val, log)

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", authHandler.Login).Methods("POST")
	api.HandleFunc("/recover", authHandler.Recover).Methods("POST")
	api.HandleFunc("/create", authHandler.Create).Methods("POST")
	api.HandleFunc("/logout", authHandler.Logout).Methods("POST")

	authMW := middleware.NewAuthMiddleware(sessions)
	protected := api.PathPrefix("").Subrouter()
	protected.Use(authMW.Authenticate)
	protected.HandleFunc("/balance", walletHandler.Balance).Methods("GET")
	protected.HandleFunc("/address", walletHandler.Address).Methods("GET")
	protected.HandleFunc("/transactions", walletHandler.Transactions).Methods("GET")
	protected.HandleFunc("/send", walletHandler.Send).Methods("POST")

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, node: node, sessions: sessions}
}

func (e *testEnv) post(t *testing.T, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(t, req)
}

func (e *testEnv) get(t *testing.T, path, token string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(t, req)
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

// signUp provisions an account and logs it in, returning the bearer token.
func (e *testEnv) signUp(t *testing.T, name string) string {
	t.Helper()
	resp, body := e.post(t, "/api/create", "", map[string]string{
		"account_name": name,
		"password":     "hunter2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "create: %v", body)

	resp, body = e.post(t, "/api/login", "", map[string]string{
		"account_name": name,
		"pin":          name,
		"password":     "hunter2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "login: %v", body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestCreateAccount(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.post(t, "/api/create", "", map[string]string{
		"account_name": "alice",
		"password":     "hunter2",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	mnemonic, _ := body["mnemonic"].(string)
	assert.NotEmpty(t, mnemonic)

	// Same name again conflicts.
	resp, _ = env.post(t, "/api/create", "", map[string]string{
		"account_name": "alice",
		"password":     "other",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateAccount_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.post(t, "/api/create", "", map[string]string{"account_name": "alice"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.post(t, "/api/create", "", map[string]string{
		"account_name": "alice",
		"password":     "pw",
		"surprise":     "field",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "alice")

	// Wrong password.
	resp, _ := env.post(t, "/api/login", "", map[string]string{
		"account_name": "alice",
		"pin":          "alice",
		"password":     "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Wrong pin.
	resp, _ = env.post(t, "/api/login", "", map[string]string{
		"account_name": "alice",
		"pin":          "0000",
		"password":     "hunter2",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Unknown account.
	resp, _ = env.post(t, "/api/login", "", map[string]string{
		"account_name": "nobody",
		"pin":          "x",
		"password":     "x",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRecoverAccount(t *testing.T) {
	env := newTestEnv(t)
	mn := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"

	resp, body := env.post(t, "/api/recover", "", map[string]string{
		"account_name": "bob",
		"pin":          "1234",
		"password":     "pw",
		"mnemonic":     mn,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])

	resp, _ = env.post(t, "/api/login", "", map[string]string{
		"account_name": "bob",
		"pin":          "1234",
		"password":     "pw",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Garbage mnemonic.
	resp, _ = env.post(t, "/api/recover", "", map[string]string{
		"account_name": "carol",
		"pin":          "1",
		"password":     "pw",
		"mnemonic":     "definitely not words",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/balance", "/api/address", "/api/transactions"} {
		resp, _ := env.get(t, path, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)

		resp, _ = env.get(t, path, "bogus-token")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestBalanceAndAddress(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUp(t, "alice")

	resp, body := env.get(t, "/api/balance", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(5_000_000), body["available"])

	resp, body = env.get(t, "/api/address", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	addr, _ := body["address"].(string)
	assert.NoError(t, ledger.ValidateAddress("smr", addr))
}

func TestLogoutInvalidatesToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUp(t, "alice")

	resp, _ := env.get(t, "/api/balance", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.post(t, "/api/logout", token, map[string]string{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])

	resp, _ = env.get(t, "/api/balance", token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Logging out twice is harmless.
	resp, _ = env.post(t, "/api/logout", token, map[string]string{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSend(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUp(t, "alice")

	_, body := env.get(t, "/api/address", token)
	recipient := body["address"].(string)

	resp, body := env.post(t, "/api/send", token, map[string]interface{}{
		"recipient": recipient,
		"amount":    1_000_000,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode, "%v", body)
	assert.NotEmpty(t, body["txid"])
	assert.Equal(t, 1, env.node.submitCount())
}

func TestSend_RejectsBeforeSubmitting(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUp(t, "alice")

	_, addrBody := env.get(t, "/api/address", token)
	recipient := addrBody["address"].(string)

	cases := []map[string]interface{}{
		{"recipient": "not-a-bech32-address", "amount": 100},
		{"recipient": "iota1qinvalidprefix", "amount": 100},
		{"recipient": recipient, "amount": 0},
		{"recipient": recipient, "amount": -5},
		{"recipient": recipient},
		{"amount": 100},
	}
	for i, payload := range cases {
		resp, body := env.post(t, "/api/send", token, payload)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "case %d: %v", i, body)
	}
	assert.Equal(t, 0, env.node.submitCount())
}

func TestTransactions(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUp(t, "alice")

	resp, body := env.get(t, "/api/transactions", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])

	transfers, ok := body["transactions"].([]interface{})
	require.True(t, ok)
	require.Len(t, transfers, 1)
	first := transfers[0].(map[string]interface{})
	assert.Equal(t, "0x01", first["txid"])
}

func TestStatusFor(t *testing.T) {
	env := newTestEnv(t)
	token := env.signUp(t, "alice")

	_, addrBody := env.get(t, "/api/address", token)
	recipient := addrBody["address"].(string)

	env.node.submitErr = fmt.Errorf("node said no: %w", apperrors.ErrInsufficientBalance)
	resp, _ := env.post(t, "/api/send", token, map[string]interface{}{
		"recipient": recipient,
		"amount":    10,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
