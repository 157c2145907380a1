package simulator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/tradedesk/internal/api"
)

type testEnv struct {
	ledger *Ledger
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	l := newTestLedger()
	return &testEnv{ledger: l, router: NewRouter(l, zaptest.NewLogger(t))}
}

// doJSON sends a JSON request and returns the recorder.
func (env *testEnv) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (env *testEnv) login(t *testing.T) string {
	t.Helper()
	rec := env.doJSON(t, http.MethodPost, "/api/register", "", api.RegisterRequest{
		FullNames: "Alice A", Username: "alice", Email: "alice@example.com", Password: "pw", Confirmation: "pw",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.doJSON(t, http.MethodPost, "/api/login", "", api.LoginRequest{UsernameOrEmail: "alice", Password: "pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[api.LoginResponse](t, rec).AccessToken
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.doJSON(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestRegisterErrors(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	tests := []struct {
		name string
		req  api.RegisterRequest
		want string
	}{
		{"missing field", api.RegisterRequest{Username: "x", Email: "x@example.com", Password: "pw"}, "Missing field: full_names"},
		{"mismatch", api.RegisterRequest{FullNames: "X", Username: "x", Email: "x@example.com", Password: "pw", Confirmation: "no"}, "Passwords do not match"},
		{"duplicate email", api.RegisterRequest{FullNames: "X", Username: "x", Email: "alice@example.com", Password: "pw"}, "Email already exists"},
		{"duplicate username", api.RegisterRequest{FullNames: "X", Username: "alice", Email: "x@example.com", Password: "pw"}, "Username already exists"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.doJSON(t, http.MethodPost, "/api/register", "", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decode[api.ErrorResponse](t, rec).Error)
		})
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	rec := env.doJSON(t, http.MethodPost, "/api/login", "", api.LoginRequest{UsernameOrEmail: "alice", Password: "bad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decode[api.ErrorResponse](t, rec).Error)
}

func TestAuthenticatedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/user", "/api/portfolio", "/api/history"} {
		rec := env.doJSON(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		rec = env.doJSON(t, http.MethodGet, path, "not-a-token", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := env.doJSON(t, http.MethodGet, "/api/market-snapshot", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "market snapshot is public")
	assert.Len(t, decode[[]api.MarketTick](t, rec), 2)
}

func TestTradeRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.doJSON(t, http.MethodPost, "/api/buy", token, api.TradeRequest{Symbol: "AAPL", Quantity: 10})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	trade := decode[api.TradeResponse](t, rec)
	require.NotNil(t, trade.NewBalance)
	assert.True(t, d("8140.80").Equal(*trade.NewBalance))
	assert.Equal(t, int64(10), trade.Quantity)

	rec = env.doJSON(t, http.MethodGet, "/api/portfolio", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pf := decode[api.PortfolioResponse](t, rec)
	require.Len(t, pf.Holdings, 1)
	assert.Equal(t, "AAPL", pf.Holdings[0].Symbol)
	assert.Equal(t, int64(10), pf.Holdings[0].Quantity)

	rec = env.doJSON(t, http.MethodPost, "/api/sell", token, api.TradeRequest{Symbol: "AAPL", Quantity: 11})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient shares", decode[api.ErrorResponse](t, rec).Error)

	rec = env.doJSON(t, http.MethodPost, "/api/buy", token, api.TradeRequest{Symbol: "AAPL", Quantity: 1000})
	assert.Equal(t, "insufficient funds", decode[api.ErrorResponse](t, rec).Error)

	rec = env.doJSON(t, http.MethodGet, "/api/history", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hist := decode[api.HistoryResponse](t, rec)
	require.Len(t, hist.Transactions, 1)
	assert.Equal(t, "BUY", hist.Transactions[0].TransactionType)

	rec = env.doJSON(t, http.MethodGet, "/api/user", token, nil)
	assert.True(t, d("8140.80").Equal(decode[api.User](t, rec).Cash))
}

func TestQuote(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.doJSON(t, http.MethodPost, "/api/quote", token, api.QuoteRequest{Symbol: "ibm"})
	require.Equal(t, http.StatusOK, rec.Code)
	q := decode[api.QuoteResponse](t, rec)
	assert.Equal(t, "IBM", q.Symbol)
	assert.True(t, d("190.20").Equal(q.Price))

	rec = env.doJSON(t, http.MethodPost, "/api/quote", token, api.QuoteRequest{Symbol: "ZZZ"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid symbol", decode[api.ErrorResponse](t, rec).Error)
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.doJSON(t, http.MethodPost, "/api/logout", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSON(t, http.MethodGet, "/api/user", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestWithoutJSONBody(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewBufferString("username=alice"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
