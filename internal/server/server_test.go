package server

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betcast/gocast/internal/session"
	"github.com/betcast/gocast/internal/wallet"
)

func newTestServer(t *testing.T, cfg Config) (*gin.Engine, *session.Store) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	deriver, err := wallet.NewDeriver(key)
	require.NoError(t, err)

	store := session.NewStore(deriver, 24*time.Hour, time.Minute)
	srv := New(cfg, store, deriver, nil, nil)
	return srv.Router(), store
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.1:1234"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("X-Session-Token", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func connectOwner(t *testing.T, r *gin.Engine, address string) (token, proxy string) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/connect", "", gin.H{"address": address})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	return body["session_id"].(string), body["proxy_address"].(string)
}

const testOwner = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

func TestHealthz(t *testing.T) {
	r, _ := newTestServer(t, Config{DegradedMode: true})
	w := doJSON(t, r, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestConnect_BadRequests(t *testing.T) {
	r, _ := newTestServer(t, Config{DegradedMode: true})

	w := doJSON(t, r, http.MethodPost, "/api/connect", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/connect", "", gin.H{"address": "not-an-address"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid address", decode(t, w)["error"])
}

func TestConnect_Idempotent(t *testing.T) {
	r, store := newTestServer(t, Config{DegradedMode: true})

	token1, proxy1 := connectOwner(t, r, testOwner)
	token2, proxy2 := connectOwner(t, r, testOwner)

	assert.Equal(t, token1, token2)
	assert.Equal(t, proxy1, proxy2)
	assert.NotEqual(t, testOwner, proxy1)
	assert.Equal(t, 1, store.Len())
}

func TestConnect_NoCredentialsStrictMode(t *testing.T) {
	// Without degraded mode and without an upstream client, connect
	// must fail loudly rather than hand out a half-working session.
	r, store := newTestServer(t, Config{DegradedMode: false})

	w := doJSON(t, r, http.MethodPost, "/api/connect", "", gin.H{"address": testOwner})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, 0, store.Len())
}

func TestConnect_SignatureVerification(t *testing.T) {
	r, _ := newTestServer(t, Config{DegradedMode: true})

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)
	msg := "gocast connect"
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	sig, err := crypto.Sign(crypto.Keccak256([]byte(prefixed)), key)
	require.NoError(t, err)
	sig[64] += 27

	w := doJSON(t, r, http.MethodPost, "/api/connect", "", gin.H{
		"address":   addr.Hex(),
		"message":   msg,
		"signature": "0x" + hex.EncodeToString(sig),
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Same signature presented for a different address fails closed.
	w = doJSON(t, r, http.MethodPost, "/api/connect", "", gin.H{
		"address":   testOwner,
		"message":   msg,
		"signature": "0x" + hex.EncodeToString(sig),
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decode(t, w)["error"])

	// Signature without its message is rejected too.
	w = doJSON(t, r, http.MethodPost, "/api/connect", "", gin.H{
		"address":   addr.Hex(),
		"signature": "0x" + hex.EncodeToString(sig),
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionInfo(t *testing.T) {
	r, _ := newTestServer(t, Config{DegradedMode: true})
	token, proxy := connectOwner(t, r, testOwner)

	w := doJSON(t, r, http.MethodGet, "/api/session", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, testOwner, body["owner"])
	assert.Equal(t, proxy, body["proxy_address"])
	assert.Equal(t, false, body["has_credential"])
	assert.Greater(t, body["expires_at"].(float64), body["created_at"].(float64))
}

func TestSessionAuth_GenericUnauthorized(t *testing.T) {
	r, _ := newTestServer(t, Config{DegradedMode: true})

	// Missing and bogus tokens produce the identical body.
	for _, token := range []string{"", "deadbeef"} {
		w := doJSON(t, r, http.MethodGet, "/api/session", token, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
	}
}

func TestAttachCredential(t *testing.T) {
	r, _ := newTestServer(t, Config{DegradedMode: true})
	token, _ := connectOwner(t, r, testOwner)

	w := doJSON(t, r, http.MethodPost, "/api/session/credential", token, gin.H{
		"key": "k", "secret": "s", "passphrase": "p",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/session", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["has_credential"])

	// Incomplete credentials are rejected before touching the store.
	w = doJSON(t, r, http.MethodPost, "/api/session/credential", token, gin.H{"key": "k"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogout(t *testing.T) {
	r, store := newTestServer(t, Config{DegradedMode: true})
	token, _ := connectOwner(t, r, testOwner)

	w := doJSON(t, r, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, store.Len())

	// The token is dead: every later use is a plain 401.
	w = doJSON(t, r, http.MethodGet, "/api/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(t, r, http.MethodPost, "/api/logout", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Reconnect issues a fresh session for the same owner.
	token2, _ := connectOwner(t, r, testOwner)
	assert.NotEqual(t, token, token2)
}

func TestDepositAddress(t *testing.T) {
	r, _ := newTestServer(t, Config{DegradedMode: true})
	token, proxy := connectOwner(t, r, testOwner)

	w := doJSON(t, r, http.MethodGet, "/api/deposit-address", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, proxy, body["deposit_address"])
	assert.Equal(t, "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", body["token_address"])
	assert.Equal(t, "USDC", body["token_symbol"])
}

func TestTradeRoutes_NoUpstream(t *testing.T) {
	r, _ := newTestServer(t, Config{DegradedMode: true})
	token, _ := connectOwner(t, r, testOwner)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/markets"},
		{http.MethodGet, "/api/markets/some-slug"},
		{http.MethodGet, "/api/orders"},
		{http.MethodPost, "/api/cancel"},
	} {
		w := doJSON(t, r, route.method, route.path, token, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, "%s %s", route.method, route.path)
	}

	w := doJSON(t, r, http.MethodPost, "/api/order", token, gin.H{
		"token_id": "123", "side": "BUY", "price": 0.5, "size": 10,
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/balance", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestConnect_RateLimited(t *testing.T) {
	r, _ := newTestServer(t, Config{DegradedMode: true, ConnectRatePerMin: 3})

	var limited bool
	for i := 0; i < 10; i++ {
		w := doJSON(t, r, http.MethodPost, "/api/connect", "", gin.H{"address": testOwner})
		if w.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.True(t, limited, "burst above the per-IP budget must hit 429")
}

func TestRequestIDHeader(t *testing.T) {
	r, _ := newTestServer(t, Config{DegradedMode: true})

	w := doJSON(t, r, http.MethodGet, "/healthz", "", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	assert.Equal(t, "abc-123", w2.Header().Get("X-Request-Id"))
}
